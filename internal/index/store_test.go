package index

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

// stubEmbedder maps keyword hits to fixed directions so similarity
// ordering in tests is deterministic.
type stubEmbedder struct{}

func (stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "feline"):
		return []float32{1, 0, 0}, nil
	case strings.Contains(lower, "canine"):
		return []float32{0, 1, 0}, nil
	default:
		return []float32{0, 0, 1}, nil
	}
}

func (s stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := s.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func newTestStore(t *testing.T, maxResults int) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "index.db"), stubEmbedder{}, maxResults)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func seedCourse(t *testing.T, store *Store) {
	t.Helper()
	course := Course{
		Title:      "Intro to ML",
		Link:       "https://example.com/ml",
		Instructor: "Ada Lovelace",
		Lessons: []Lesson{
			{Number: 1, Title: "Felines", Link: "https://example.com/ml/1"},
			{Number: 2, Title: "Canines"},
		},
	}
	if err := store.AddCourse(course); err != nil {
		t.Fatalf("AddCourse error: %v", err)
	}

	one, two := 1, 2
	chunks := []Chunk{
		{CourseTitle: "Intro to ML", LessonNumber: &one, ChunkIndex: 0, Content: "All about feline behavior"},
		{CourseTitle: "Intro to ML", LessonNumber: &two, ChunkIndex: 1, Content: "All about canine behavior"},
	}
	if err := store.AddChunks(context.Background(), chunks); err != nil {
		t.Fatalf("AddChunks error: %v", err)
	}
}

func TestStoreCourseCatalog(t *testing.T) {
	store := newTestStore(t, 5)
	seedCourse(t, store)

	meta, err := store.GetCourse("Intro to ML")
	if err != nil {
		t.Fatalf("GetCourse error: %v", err)
	}
	if meta == nil {
		t.Fatal("course not found after AddCourse")
	}
	if meta.Instructor != "Ada Lovelace" || meta.Link != "https://example.com/ml" {
		t.Fatalf("unexpected meta: %+v", meta)
	}
	if !strings.Contains(meta.LessonsJSON, `"lesson_number":1`) {
		t.Fatalf("lessons not serialized: %s", meta.LessonsJSON)
	}

	count, err := store.CourseCount()
	if err != nil {
		t.Fatalf("CourseCount error: %v", err)
	}
	if count != 1 {
		t.Fatalf("count=%d, want 1", count)
	}

	missing, err := store.GetCourse("Nope")
	if err != nil {
		t.Fatalf("GetCourse error: %v", err)
	}
	if missing != nil {
		t.Fatal("absent course must return nil, not error")
	}
}

func TestStoreAddCourseUpsert(t *testing.T) {
	store := newTestStore(t, 5)
	seedCourse(t, store)

	if err := store.AddCourse(Course{Title: "Intro to ML", Instructor: "Grace Hopper"}); err != nil {
		t.Fatalf("AddCourse error: %v", err)
	}

	meta, err := store.GetCourse("Intro to ML")
	if err != nil {
		t.Fatalf("GetCourse error: %v", err)
	}
	if meta.Instructor != "Grace Hopper" {
		t.Fatalf("upsert did not replace instructor: %+v", meta)
	}

	count, _ := store.CourseCount()
	if count != 1 {
		t.Fatalf("count=%d after upsert, want 1", count)
	}
}

func TestSearchRanksBySimilarity(t *testing.T) {
	store := newTestStore(t, 5)
	seedCourse(t, store)

	outcome := store.Search(context.Background(), "tell me about felines", "", nil)
	if outcome.Err != "" {
		t.Fatalf("unexpected outcome error: %s", outcome.Err)
	}
	if len(outcome.Documents) != 2 {
		t.Fatalf("documents=%d, want 2", len(outcome.Documents))
	}
	if !strings.Contains(outcome.Documents[0], "feline") {
		t.Fatalf("best match should be the feline chunk: %q", outcome.Documents[0])
	}
	if outcome.Distances[0] >= outcome.Distances[1] {
		t.Fatalf("distances not ascending: %v", outcome.Distances)
	}
	if outcome.Metadata[0].LessonNumber == nil || *outcome.Metadata[0].LessonNumber != 1 {
		t.Fatalf("unexpected metadata: %+v", outcome.Metadata[0])
	}
}

func TestSearchLessonFilter(t *testing.T) {
	store := newTestStore(t, 5)
	seedCourse(t, store)

	two := 2
	outcome := store.Search(context.Background(), "anything", "", &two)
	if outcome.Err != "" {
		t.Fatalf("unexpected outcome error: %s", outcome.Err)
	}
	if len(outcome.Documents) != 1 || !strings.Contains(outcome.Documents[0], "canine") {
		t.Fatalf("lesson filter leaked other lessons: %v", outcome.Documents)
	}
}

func TestSearchMaxResultsCap(t *testing.T) {
	store := newTestStore(t, 1)
	seedCourse(t, store)

	outcome := store.Search(context.Background(), "feline", "", nil)
	if outcome.Err != "" {
		t.Fatalf("unexpected outcome error: %s", outcome.Err)
	}
	if len(outcome.Documents) != 1 {
		t.Fatalf("documents=%d, want cap of 1", len(outcome.Documents))
	}
}

func TestSearchUnresolvedCourse(t *testing.T) {
	store := newTestStore(t, 5)
	seedCourse(t, store)

	outcome := store.Search(context.Background(), "anything", "Quantum Computing", nil)
	if outcome.Err != "No course found matching 'Quantum Computing'" {
		t.Fatalf("outcome error=%q", outcome.Err)
	}
	if !outcome.IsEmpty() {
		t.Fatal("failed resolution must not return documents")
	}
}

func TestResolveCourse(t *testing.T) {
	store := newTestStore(t, 5)
	seedCourse(t, store)
	if err := store.AddCourse(Course{Title: "Advanced Retrieval"}); err != nil {
		t.Fatalf("AddCourse error: %v", err)
	}

	cases := []struct {
		name   string
		needle string
		want   string
		found  bool
	}{
		{"exact", "Intro to ML", "Intro to ML", true},
		{"partial", "ML", "Intro to ML", true},
		{"case insensitive", "advanced retrieval", "Advanced Retrieval", true},
		{"substring", "retriev", "Advanced Retrieval", true},
		{"no match", "zzzz", "", false},
		{"blank", "  ", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			title, ok, err := store.ResolveCourse(tc.needle)
			if err != nil {
				t.Fatalf("ResolveCourse error: %v", err)
			}
			if ok != tc.found || title != tc.want {
				t.Fatalf("ResolveCourse(%q)=(%q,%v), want (%q,%v)", tc.needle, title, ok, tc.want, tc.found)
			}
		})
	}
}

func TestStoreClear(t *testing.T) {
	store := newTestStore(t, 5)
	seedCourse(t, store)

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear error: %v", err)
	}

	count, err := store.CourseCount()
	if err != nil {
		t.Fatalf("CourseCount error: %v", err)
	}
	if count != 0 {
		t.Fatalf("count=%d after clear, want 0", count)
	}

	outcome := store.Search(context.Background(), "feline", "", nil)
	if outcome.Err != "" || !outcome.IsEmpty() {
		t.Fatalf("cleared index should return empty outcome: %+v", outcome)
	}
}
