package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"
)

// Store is the sqlite-backed course index: a course catalog plus
// embedded content chunks.
type Store struct {
	db         *sql.DB
	embedder   Embedder
	maxResults int
	mu         sync.Mutex
}

func Open(dbPath string, embedder Embedder, maxResults int) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if maxResults <= 0 {
		maxResults = 5
	}
	s := &Store{db: db, embedder: embedder, maxResults: maxResults}
	if err := s.configure(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) configure() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("sqlite pragma %q: %w", p, err)
		}
	}
	return nil
}

func (s *Store) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS courses (
			title TEXT PRIMARY KEY,
			link TEXT NOT NULL DEFAULT '',
			instructor TEXT NOT NULL DEFAULT '',
			lessons_json TEXT NOT NULL DEFAULT '[]',
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE TABLE IF NOT EXISTS chunks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			course_title TEXT NOT NULL REFERENCES courses(title) ON DELETE CASCADE,
			lesson_number INTEGER,
			chunk_index INTEGER NOT NULL,
			content TEXT NOT NULL,
			embedding BLOB NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_course ON chunks(course_title, lesson_number)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// AddCourse upserts the catalog row for a course.
func (s *Store) AddCourse(course Course) error {
	title := strings.TrimSpace(course.Title)
	if title == "" {
		return fmt.Errorf("add course: empty title")
	}

	lessonsJSON, err := json.Marshal(course.Lessons)
	if err != nil {
		return fmt.Errorf("add course: marshal lessons: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(`
		INSERT INTO courses (title, link, instructor, lessons_json)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(title) DO UPDATE SET
			link = excluded.link,
			instructor = excluded.instructor,
			lessons_json = excluded.lessons_json
	`, title, strings.TrimSpace(course.Link), strings.TrimSpace(course.Instructor), string(lessonsJSON))
	if err != nil {
		return fmt.Errorf("add course: %w", err)
	}
	return nil
}

// AddChunks embeds and stores content chunks in one transaction.
func (s *Store) AddChunks(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if s.embedder == nil {
		return fmt.Errorf("add chunks: no embedder configured")
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("add chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("add chunks: embedding count mismatch: got %d want %d", len(vectors), len(chunks))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("add chunks: begin: %w", err)
	}
	defer tx.Rollback()

	for i, c := range chunks {
		blob, err := encodeVector(vectors[i])
		if err != nil {
			return fmt.Errorf("add chunks: %w", err)
		}
		var lesson any
		if c.LessonNumber != nil {
			lesson = *c.LessonNumber
		}
		if _, err := tx.Exec(`
			INSERT INTO chunks (course_title, lesson_number, chunk_index, content, embedding)
			VALUES (?, ?, ?, ?, ?)
		`, c.CourseTitle, lesson, c.ChunkIndex, c.Content, blob); err != nil {
			return fmt.Errorf("add chunks: insert: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("add chunks: commit: %w", err)
	}
	return nil
}

// GetCourse returns the catalog row for an exact title, or nil when absent.
func (s *Store) GetCourse(title string) (*CourseMeta, error) {
	row := s.db.QueryRow(`
		SELECT title, link, instructor, lessons_json
		FROM courses
		WHERE title = ?
	`, strings.TrimSpace(title))

	var meta CourseMeta
	if err := row.Scan(&meta.Title, &meta.Link, &meta.Instructor, &meta.LessonsJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get course: %w", err)
	}
	return &meta, nil
}

// CourseTitles lists all indexed course titles in insertion order.
func (s *Store) CourseTitles() ([]string, error) {
	rows, err := s.db.Query(`SELECT title FROM courses ORDER BY created_at, title`)
	if err != nil {
		return nil, fmt.Errorf("course titles: %w", err)
	}
	defer rows.Close()

	titles := make([]string, 0)
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, fmt.Errorf("scan course title: %w", err)
		}
		titles = append(titles, title)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate course titles: %w", err)
	}
	return titles, nil
}

func (s *Store) CourseCount() (int, error) {
	row := s.db.QueryRow(`SELECT COUNT(*) FROM courses`)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("course count: %w", err)
	}
	return count, nil
}

// Clear removes all catalog rows and chunks.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, stmt := range []string{`DELETE FROM chunks`, `DELETE FROM courses`} {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("clear index: %w", err)
		}
	}
	return nil
}

type chunkRow struct {
	meta      ChunkMeta
	content   string
	embedding []byte
}

func (s *Store) queryChunkRows(courseTitle string, lessonNumber *int) ([]chunkRow, error) {
	query := `
		SELECT course_title, lesson_number, chunk_index, content, embedding
		FROM chunks
	`
	conds := make([]string, 0, 2)
	args := make([]any, 0, 2)
	if courseTitle != "" {
		conds = append(conds, `course_title = ?`)
		args = append(args, courseTitle)
	}
	if lessonNumber != nil {
		conds = append(conds, `lesson_number = ?`)
		args = append(args, *lessonNumber)
	}
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	query += ` ORDER BY id`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	result := make([]chunkRow, 0)
	for rows.Next() {
		var r chunkRow
		var lesson sql.NullInt64
		var chunkIndex int
		if err := rows.Scan(&r.meta.CourseTitle, &lesson, &chunkIndex, &r.content, &r.embedding); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		if lesson.Valid {
			n := int(lesson.Int64)
			r.meta.LessonNumber = &n
		}
		r.meta.ChunkIndex = &chunkIndex
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return result, nil
}
