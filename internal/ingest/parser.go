package ingest

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/lectic-ai/lectic/internal/index"
)

var lessonHeaderRegex = regexp.MustCompile(`^Lesson\s+(\d+):\s*(.*)$`)

// sentenceRegex splits on sentence-ending punctuation followed by
// whitespace. Abbreviation handling is deliberately naive; chunk overlap
// absorbs the occasional bad split.
var sentenceRegex = regexp.MustCompile(`[.!?]+\s+`)

// ParseDocument reads one course script. Expected shape:
//
//	Course Title: <title>
//	Course Link: <url>
//	Course Instructor: <name>
//	Lesson N: <title>
//	Lesson Link: <url>
//	<transcript...>
//
// Content before the first lesson header is indexed without a lesson
// number.
func ParseDocument(path string, chunkSize, chunkOverlap int) (index.Course, []index.Chunk, error) {
	f, err := os.Open(path)
	if err != nil {
		return index.Course{}, nil, fmt.Errorf("open document: %w", err)
	}
	defer f.Close()

	course := index.Course{}
	chunks := make([]index.Chunk, 0)
	chunkIndex := 0

	var currentLesson *index.Lesson
	var body strings.Builder

	flush := func() {
		text := strings.TrimSpace(body.String())
		body.Reset()
		if text == "" {
			return
		}

		var lessonNumber *int
		prefix := fmt.Sprintf("Course %s content: ", course.Title)
		if currentLesson != nil {
			n := currentLesson.Number
			lessonNumber = &n
			prefix = fmt.Sprintf("Course %s Lesson %d content: ", course.Title, n)
		}

		for _, piece := range chunkText(text, chunkSize, chunkOverlap) {
			chunks = append(chunks, index.Chunk{
				CourseTitle:  course.Title,
				LessonNumber: lessonNumber,
				ChunkIndex:   chunkIndex,
				Content:      prefix + piece,
			})
			chunkIndex++
		}
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(trimmed, "Course Title:"):
			course.Title = strings.TrimSpace(strings.TrimPrefix(trimmed, "Course Title:"))
		case strings.HasPrefix(trimmed, "Course Link:"):
			course.Link = strings.TrimSpace(strings.TrimPrefix(trimmed, "Course Link:"))
		case strings.HasPrefix(trimmed, "Course Instructor:"):
			course.Instructor = strings.TrimSpace(strings.TrimPrefix(trimmed, "Course Instructor:"))
		case strings.HasPrefix(trimmed, "Lesson Link:"):
			if currentLesson != nil {
				currentLesson.Link = strings.TrimSpace(strings.TrimPrefix(trimmed, "Lesson Link:"))
			}
		default:
			if m := lessonHeaderRegex.FindStringSubmatch(trimmed); m != nil {
				flush()
				number, _ := strconv.Atoi(m[1])
				course.Lessons = append(course.Lessons, index.Lesson{Number: number, Title: strings.TrimSpace(m[2])})
				currentLesson = &course.Lessons[len(course.Lessons)-1]
				continue
			}
			body.WriteString(line)
			body.WriteString("\n")
		}
	}
	if err := scanner.Err(); err != nil {
		return index.Course{}, nil, fmt.Errorf("read document: %w", err)
	}
	flush()

	if course.Title == "" {
		return index.Course{}, nil, fmt.Errorf("document %s has no course title", path)
	}
	return course, chunks, nil
}

// chunkText splits text into sentence-aligned pieces of at most chunkSize
// characters, overlapping consecutive pieces by roughly chunkOverlap
// characters of trailing sentences.
func chunkText(text string, chunkSize, chunkOverlap int) []string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return nil
	}
	if chunkSize <= 0 {
		return []string{text}
	}

	sentences := splitSentences(text)
	pieces := make([]string, 0)

	i := 0
	for i < len(sentences) {
		var sb strings.Builder
		j := i
		for j < len(sentences) {
			next := sentences[j]
			if sb.Len() > 0 && sb.Len()+1+len(next) > chunkSize {
				break
			}
			if sb.Len() > 0 {
				sb.WriteString(" ")
			}
			sb.WriteString(next)
			j++
		}
		pieces = append(pieces, sb.String())
		if j >= len(sentences) {
			break
		}
		i = nextStart(sentences, i, j, chunkOverlap)
	}
	return pieces
}

// nextStart backs up from the chunk end far enough to carry about
// overlap characters into the next chunk, always advancing at least one
// sentence.
func nextStart(sentences []string, start, end, overlap int) int {
	if overlap <= 0 {
		return end
	}
	carried := 0
	next := end
	for next > start+1 {
		carried += len(sentences[next-1]) + 1
		if carried > overlap {
			break
		}
		next--
	}
	return next
}

func splitSentences(text string) []string {
	bounds := sentenceRegex.FindAllStringIndex(text, -1)
	if len(bounds) == 0 {
		return []string{text}
	}

	sentences := make([]string, 0, len(bounds)+1)
	prev := 0
	for _, b := range bounds {
		sentences = append(sentences, strings.TrimSpace(text[prev:b[1]]))
		prev = b[1]
	}
	if rest := strings.TrimSpace(text[prev:]); rest != "" {
		sentences = append(sentences, rest)
	}
	return sentences
}
