package brief

import (
	"strings"
	"testing"

	"github.com/conjurecontent/backend/pkg/enums"
	pkgerrors "github.com/conjurecontent/backend/pkg/errors"
)

func TestCompileEveryKnownCategory(t *testing.T) {
	for _, category := range Categories() {
		compiled, err := Compile(category, "a rainy night shift")
		if err != nil {
			t.Fatalf("Compile(%s): %v", category, err)
		}
		if compiled.Prompt == "" {
			t.Fatalf("category %s: empty prompt", category)
		}
		if len(compiled.Tags) == 0 {
			t.Fatalf("category %s: empty tags", category)
		}
		if !strings.Contains(compiled.Prompt, "a rainy night shift") {
			t.Fatalf("category %s: context not embedded in prompt", category)
		}
		if !strings.Contains(compiled.Prompt, "JSON object") {
			t.Fatalf("category %s: style constraint missing", category)
		}
	}
}

func TestCompileWithoutContext(t *testing.T) {
	compiled, err := Compile(enums.JobCategoryNarrativeStory, "  ")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if strings.Contains(compiled.Prompt, "Incorporate") {
		t.Fatal("blank context must not add an incorporate clause")
	}
}

func TestCompileUnknownCategory(t *testing.T) {
	_, err := Compile(enums.JobCategory("breaking-news"), "")
	if err == nil {
		t.Fatal("expected error for unknown category")
	}
	if !pkgerrors.HasCode(err, pkgerrors.CodeUnsupportedCategory) {
		t.Fatalf("expected UNSUPPORTED_CATEGORY, got %v", err)
	}
}

func TestCompileReturnsTagCopy(t *testing.T) {
	first, err := Compile(enums.JobCategoryNarrativeStory, "")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	first.Tags[0] = "#mutated"

	second, err := Compile(enums.JobCategoryNarrativeStory, "")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if second.Tags[0] == "#mutated" {
		t.Fatal("tags must not share backing storage between calls")
	}
}
