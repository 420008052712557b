package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lectic-ai/lectic/internal/index"
)

// CourseResolver is the catalog slice the outline tool needs.
type CourseResolver interface {
	ResolveCourse(name string) (string, bool, error)
	GetCourse(title string) (*index.CourseMeta, error)
}

// OutlineTool returns a course's title, link and numbered lesson list so
// the model can answer structural questions without content search.
type OutlineTool struct {
	citationTracker
	store CourseResolver
}

func NewOutlineTool(store CourseResolver) *OutlineTool {
	return &OutlineTool{store: store}
}

func (t *OutlineTool) Definition() Definition {
	return Definition{
		Name:        "get_course_outline",
		Description: "Get the full outline of a course: title, link, and all lesson numbers and titles",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"course_name": map[string]any{
					"type":        "string",
					"description": "Course title (partial matches work)",
				},
			},
			"required": []string{"course_name"},
		},
	}
}

func (t *OutlineTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	courseName, err := stringArg(args, "course_name", true)
	if err != nil {
		return "", err
	}

	title, ok, err := t.store.ResolveCourse(courseName)
	if err != nil {
		return fmt.Sprintf("Search error: %v", err), nil
	}
	if !ok {
		return fmt.Sprintf("No course found matching '%s'", courseName), nil
	}

	meta, err := t.store.GetCourse(title)
	if err != nil || meta == nil {
		return fmt.Sprintf("No course found matching '%s'", courseName), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Course: %s\n", meta.Title)
	if meta.Link != "" {
		fmt.Fprintf(&sb, "Link: %s\n", meta.Link)
	}
	if meta.Instructor != "" {
		fmt.Fprintf(&sb, "Instructor: %s\n", meta.Instructor)
	}

	var lessons []index.Lesson
	if err := json.Unmarshal([]byte(meta.LessonsJSON), &lessons); err == nil && len(lessons) > 0 {
		sb.WriteString("Lessons:\n")
		for _, lesson := range lessons {
			if strings.TrimSpace(lesson.Title) != "" {
				fmt.Fprintf(&sb, "  %d. %s\n", lesson.Number, lesson.Title)
			} else {
				fmt.Fprintf(&sb, "  %d.\n", lesson.Number)
			}
		}
	}

	t.record([]Citation{{Title: meta.Title, URL: meta.Link}})
	return strings.TrimRight(sb.String(), "\n"), nil
}
