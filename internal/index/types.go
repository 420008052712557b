package index

// Lesson is one entry of a course's lesson table.
type Lesson struct {
	Number int    `json:"lesson_number"`
	Title  string `json:"lesson_title,omitempty"`
	Link   string `json:"lesson_link,omitempty"`
}

// Course is the catalog record for one indexed course.
type Course struct {
	Title      string
	Link       string
	Instructor string
	Lessons    []Lesson
}

// CourseMeta is the stored catalog row, with the lesson table kept in its
// serialized form the way the search tool consumes it.
type CourseMeta struct {
	Title       string
	Link        string
	Instructor  string
	LessonsJSON string
}

// Chunk is one indexable piece of course content.
type Chunk struct {
	CourseTitle  string
	LessonNumber *int
	ChunkIndex   int
	Content      string
}

// ChunkMeta identifies where a retrieved document came from.
type ChunkMeta struct {
	CourseTitle  string
	LessonNumber *int
	ChunkIndex   *int
}

// Outcome is an ordered search result set. Err is a terminal error string;
// when set the other fields are empty.
type Outcome struct {
	Documents []string
	Metadata  []ChunkMeta
	Distances []float64
	Err       string
}

// IsEmpty reports whether the outcome carries no documents and no error.
func (o Outcome) IsEmpty() bool {
	return o.Err == "" && len(o.Documents) == 0
}
