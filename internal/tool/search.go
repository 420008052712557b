package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lectic-ai/lectic/internal/index"
)

// Searcher is the slice of the course index the search tool needs.
type Searcher interface {
	Search(ctx context.Context, query, courseName string, lessonNumber *int) index.Outcome
	GetCourse(title string) (*index.CourseMeta, error)
}

// SearchTool retrieves course content by semantic similarity, with optional
// course and lesson filters.
type SearchTool struct {
	citationTracker
	store Searcher
}

func NewSearchTool(store Searcher) *SearchTool {
	return &SearchTool{store: store}
}

func (t *SearchTool) Definition() Definition {
	return Definition{
		Name:        "search_course_content",
		Description: "Search course materials with smart course name matching and lesson filtering",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "What to search for in the course content",
				},
				"course_name": map[string]any{
					"type":        "string",
					"description": "Course title (partial matches work, e.g. 'MCP', 'Introduction')",
				},
				"lesson_number": map[string]any{
					"type":        "integer",
					"description": "Specific lesson number to search within (e.g. 1, 2, 3)",
				},
			},
			"required": []string{"query"},
		},
	}
}

func (t *SearchTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	query, err := stringArg(args, "query", true)
	if err != nil {
		return "", err
	}
	courseName, err := stringArg(args, "course_name", false)
	if err != nil {
		return "", err
	}
	lessonNumber, err := intArg(args, "lesson_number")
	if err != nil {
		return "", err
	}

	outcome := t.store.Search(ctx, query, courseName, lessonNumber)
	if outcome.Err != "" {
		return outcome.Err, nil
	}
	if outcome.IsEmpty() {
		return emptyResultMessage(courseName, lessonNumber), nil
	}
	return t.formatResults(outcome), nil
}

func emptyResultMessage(courseName string, lessonNumber *int) string {
	var sb strings.Builder
	sb.WriteString("No relevant content found")
	if courseName != "" {
		fmt.Fprintf(&sb, " in course '%s'", courseName)
	}
	if lessonNumber != nil {
		fmt.Fprintf(&sb, " in lesson %d", *lessonNumber)
	}
	sb.WriteString(".")
	return sb.String()
}

// formatResults renders one header+body block per document, blank-line
// separated, preserving ranking order, and records one citation per result.
func (t *SearchTool) formatResults(outcome index.Outcome) string {
	blocks := make([]string, 0, len(outcome.Documents))
	citations := make([]Citation, 0, len(outcome.Documents))

	for i, doc := range outcome.Documents {
		meta := index.ChunkMeta{}
		if i < len(outcome.Metadata) {
			meta = outcome.Metadata[i]
		}
		courseTitle := meta.CourseTitle
		if courseTitle == "" {
			courseTitle = "unknown"
		}

		header := "[" + courseTitle
		citationTitle := courseTitle
		if meta.LessonNumber != nil {
			header += fmt.Sprintf(" - Lesson %d", *meta.LessonNumber)
			citationTitle += fmt.Sprintf(" - Lesson %d", *meta.LessonNumber)
		}
		header += "]"

		blocks = append(blocks, header+"\n"+doc)
		citations = append(citations, Citation{
			Title: citationTitle,
			URL:   t.lessonURL(courseTitle, meta.LessonNumber),
		})
	}

	t.record(citations)
	return strings.Join(blocks, "\n\n")
}

// lessonURL resolves a lesson link from the course catalog's serialized
// lesson table. Any missing piece degrades to no URL, never an error.
func (t *SearchTool) lessonURL(courseTitle string, lessonNumber *int) string {
	if lessonNumber == nil {
		return ""
	}
	meta, err := t.store.GetCourse(courseTitle)
	if err != nil || meta == nil {
		return ""
	}

	var lessons []index.Lesson
	if err := json.Unmarshal([]byte(meta.LessonsJSON), &lessons); err != nil {
		return ""
	}
	for _, lesson := range lessons {
		if lesson.Number == *lessonNumber {
			return lesson.Link
		}
	}
	return ""
}

func stringArg(args map[string]any, key string, required bool) (string, error) {
	raw, exists := args[key]
	if !exists || raw == nil {
		if required {
			return "", fmt.Errorf("missing required argument %q", key)
		}
		return "", nil
	}
	value, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("argument %q must be a string", key)
	}
	if required && strings.TrimSpace(value) == "" {
		return "", fmt.Errorf("missing required argument %q", key)
	}
	return value, nil
}

func intArg(args map[string]any, key string) (*int, error) {
	raw, exists := args[key]
	if !exists || raw == nil {
		return nil, nil
	}
	switch v := raw.(type) {
	case int:
		return &v, nil
	case float64:
		n := int(v)
		return &n, nil
	case json.Number:
		parsed, err := v.Int64()
		if err != nil {
			return nil, fmt.Errorf("argument %q must be an integer", key)
		}
		n := int(parsed)
		return &n, nil
	default:
		return nil, fmt.Errorf("argument %q must be an integer", key)
	}
}
