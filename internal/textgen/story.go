package textgen

import (
	"encoding/json"
	"strings"

	pkgerrors "github.com/conjurecontent/backend/pkg/errors"
)

// Story is the generated title/content pair for one job execution. It is
// never persisted; it lives only for the duration of a pipeline run.
type Story struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// ExtractStory pulls the first balanced {...} substring out of raw model
// output and parses it. Models frequently wrap the requested JSON in prose
// ("Sure! Here's your story: {...}"), so the extraction is deliberate rather
// than trusting structured output.
func ExtractStory(raw string) (Story, error) {
	jsonText, ok := firstBalancedObject(raw)
	if !ok {
		return Story{}, pkgerrors.New(pkgerrors.CodeGenerationParse,
			"model output contains no balanced JSON object")
	}

	var story Story
	if err := json.Unmarshal([]byte(jsonText), &story); err != nil {
		return Story{}, pkgerrors.Wrap(pkgerrors.CodeGenerationParse, err,
			"model output is not the expected JSON shape")
	}
	if strings.TrimSpace(story.Title) == "" || strings.TrimSpace(story.Content) == "" {
		return Story{}, pkgerrors.New(pkgerrors.CodeGenerationParse,
			"model output is missing title or content")
	}
	return story, nil
}

func firstBalancedObject(raw string) (string, bool) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	for i := start; i < len(raw); i++ {
		switch raw[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1], true
			}
		}
	}
	return "", false
}
