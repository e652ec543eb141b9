package enums

import "fmt"

// JobCategory selects the generation template for an automation job.
type JobCategory string

const (
	JobCategoryNarrativeStory       JobCategory = "narrative-story"
	JobCategoryReflectiveCommentary JobCategory = "reflective-commentary"
)

var validJobCategories = []JobCategory{
	JobCategoryNarrativeStory,
	JobCategoryReflectiveCommentary,
}

// String returns the literal string for the category.
func (c JobCategory) String() string {
	return string(c)
}

// IsValid reports whether the category is known.
func (c JobCategory) IsValid() bool {
	for _, candidate := range validJobCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseJobCategory converts raw input into a JobCategory.
func ParseJobCategory(value string) (JobCategory, error) {
	for _, candidate := range validJobCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid job category %q", value)
}
