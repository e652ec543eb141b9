package brief

import (
	"fmt"
	"strings"

	pkgerrors "github.com/conjurecontent/backend/pkg/errors"

	"github.com/conjurecontent/backend/pkg/enums"
)

// Brief is the compiled generation prompt plus the caption tags for the
// eventual upload.
type Brief struct {
	Prompt string
	Tags   []string
}

// The model must answer with bare JSON so the story extractor has a fighting
// chance; prose wrapping still happens and is handled downstream.
const styleConstraint = "Respond only with a JSON object containing \"title\" and \"content\" fields, nothing else."

type template struct {
	instruction string
	tags        []string
}

var templatesByCategory = map[enums.JobCategory]template{
	enums.JobCategoryNarrativeStory: {
		instruction: "Write a short, gripping first-person story suitable for narration in a vertical short-form video. Keep it under 250 words with a strong hook in the first sentence.",
		tags:        []string{"#story", "#storytime", "#fyp", "#viral"},
	},
	enums.JobCategoryReflectiveCommentary: {
		instruction: "Write a short reflective monologue on everyday life suitable for narration in a vertical short-form video. Keep it under 250 words, conversational and sincere.",
		tags:        []string{"#thoughts", "#reflection", "#fyp", "#deep"},
	},
}

// Compile maps a job category and its stored free-text context to the
// generation prompt and platform tags.
func Compile(category enums.JobCategory, extraContext string) (Brief, error) {
	tmpl, ok := templatesByCategory[category]
	if !ok {
		return Brief{}, pkgerrors.New(pkgerrors.CodeUnsupportedCategory,
			fmt.Sprintf("no brief template for category %q", category))
	}

	var b strings.Builder
	b.WriteString(tmpl.instruction)
	if ctx := strings.TrimSpace(extraContext); ctx != "" {
		b.WriteString(fmt.Sprintf(" Incorporate the following: %s.", ctx))
	}
	b.WriteString(" ")
	b.WriteString(styleConstraint)

	tags := make([]string, len(tmpl.tags))
	copy(tags, tmpl.tags)

	return Brief{Prompt: b.String(), Tags: tags}, nil
}

// Categories lists every category the compiler supports.
func Categories() []enums.JobCategory {
	categories := make([]enums.JobCategory, 0, len(templatesByCategory))
	for category := range templatesByCategory {
		categories = append(categories, category)
	}
	return categories
}
