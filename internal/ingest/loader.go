package ingest

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/lectic-ai/lectic/internal/config"
	"github.com/lectic-ai/lectic/internal/index"
)

// Loader feeds parsed course documents into the search index.
type Loader struct {
	store        *index.Store
	chunkSize    int
	chunkOverlap int
}

func NewLoader(store *index.Store, cfg config.IngestConfig) *Loader {
	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = config.DefaultChunkSize
	}
	chunkOverlap := cfg.ChunkOverlap
	if chunkOverlap < 0 {
		chunkOverlap = config.DefaultChunkOverlap
	}
	return &Loader{store: store, chunkSize: chunkSize, chunkOverlap: chunkOverlap}
}

// AddCourseFile parses and indexes a single document.
func (l *Loader) AddCourseFile(ctx context.Context, path string) (index.Course, int, error) {
	course, chunks, err := ParseDocument(path, l.chunkSize, l.chunkOverlap)
	if err != nil {
		return index.Course{}, 0, err
	}
	if err := l.store.AddCourse(course); err != nil {
		return index.Course{}, 0, fmt.Errorf("add course %q: %w", course.Title, err)
	}
	if err := l.store.AddChunks(ctx, chunks); err != nil {
		return index.Course{}, 0, fmt.Errorf("add chunks for %q: %w", course.Title, err)
	}
	return course, len(chunks), nil
}

// AddCourseFolder indexes every readable document in dir, skipping
// courses already present unless clearExisting is set. Returns counts of
// newly added courses and chunks.
func (l *Loader) AddCourseFolder(ctx context.Context, dir string, clearExisting bool) (int, int, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return 0, 0, fmt.Errorf("stat docs dir: %w", err)
	}
	if !info.IsDir() {
		return 0, 0, fmt.Errorf("docs path %s is not a directory", dir)
	}

	if clearExisting {
		log.Printf("[ingest] clearing existing index")
		if err := l.store.Clear(); err != nil {
			return 0, 0, fmt.Errorf("clear index: %w", err)
		}
	}

	existing, err := l.store.CourseTitles()
	if err != nil {
		return 0, 0, fmt.Errorf("list indexed courses: %w", err)
	}
	indexed := make(map[string]bool, len(existing))
	for _, title := range existing {
		indexed[title] = true
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0, fmt.Errorf("read docs dir: %w", err)
	}

	courses, chunks := 0, 0
	for _, entry := range entries {
		if entry.IsDir() || !isCourseDocument(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())

		course, parsed, err := ParseDocument(path, l.chunkSize, l.chunkOverlap)
		if err != nil {
			log.Printf("[ingest] skipping %s: %v", entry.Name(), err)
			continue
		}
		if indexed[course.Title] {
			continue
		}

		if err := l.store.AddCourse(course); err != nil {
			return courses, chunks, fmt.Errorf("add course %q: %w", course.Title, err)
		}
		if err := l.store.AddChunks(ctx, parsed); err != nil {
			return courses, chunks, fmt.Errorf("add chunks for %q: %w", course.Title, err)
		}
		indexed[course.Title] = true
		courses++
		chunks += len(parsed)
		log.Printf("[ingest] indexed %q (%d chunks)", course.Title, len(parsed))
	}
	return courses, chunks, nil
}

func isCourseDocument(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".md":
		return true
	}
	return false
}
