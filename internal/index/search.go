package index

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
)

// Search runs a similarity query over indexed chunks. courseName, when
// non-empty, is resolved fuzzily against stored titles; lessonNumber, when
// non-nil, restricts results to that lesson. Failures surface through
// Outcome.Err so callers get a single channel for terminal conditions.
func (s *Store) Search(ctx context.Context, query, courseName string, lessonNumber *int) Outcome {
	resolvedTitle := ""
	if strings.TrimSpace(courseName) != "" {
		title, ok, err := s.ResolveCourse(courseName)
		if err != nil {
			return Outcome{Err: fmt.Sprintf("Search error: %v", err)}
		}
		if !ok {
			return Outcome{Err: fmt.Sprintf("No course found matching '%s'", courseName)}
		}
		resolvedTitle = title
	}

	if s.embedder == nil {
		return Outcome{Err: "Search error: no embedder configured"}
	}
	queryVector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return Outcome{Err: fmt.Sprintf("Search error: %v", err)}
	}

	rows, err := s.queryChunkRows(resolvedTitle, lessonNumber)
	if err != nil {
		return Outcome{Err: fmt.Sprintf("Search error: %v", err)}
	}

	type candidate struct {
		row   chunkRow
		score float64
	}
	candidates := make([]candidate, 0, len(rows))
	for _, row := range rows {
		vec, err := decodeVector(row.embedding)
		if err != nil {
			continue
		}
		score, err := cosineSimilarity(queryVector, vec)
		if err != nil {
			continue
		}
		candidates = append(candidates, candidate{row: row, score: score})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > s.maxResults {
		candidates = candidates[:s.maxResults]
	}

	outcome := Outcome{
		Documents: make([]string, 0, len(candidates)),
		Metadata:  make([]ChunkMeta, 0, len(candidates)),
		Distances: make([]float64, 0, len(candidates)),
	}
	for _, c := range candidates {
		outcome.Documents = append(outcome.Documents, c.row.content)
		outcome.Metadata = append(outcome.Metadata, c.row.meta)
		outcome.Distances = append(outcome.Distances, cosineDistance(c.score))
	}
	return outcome
}

// ResolveCourse maps a possibly partial or misspelled course reference to a
// stored title. Fuzzy ranking first, case-insensitive substring as a
// fallback for references fuzzy scoring rejects.
func (s *Store) ResolveCourse(name string) (string, bool, error) {
	needle := strings.TrimSpace(name)
	if needle == "" {
		return "", false, nil
	}

	titles, err := s.CourseTitles()
	if err != nil {
		return "", false, err
	}
	if len(titles) == 0 {
		return "", false, nil
	}

	if matches := fuzzy.Find(strings.ToLower(needle), lowered(titles)); len(matches) > 0 {
		return titles[matches[0].Index], true, nil
	}

	for _, title := range titles {
		if strings.Contains(strings.ToLower(title), strings.ToLower(needle)) {
			return title, true, nil
		}
	}
	return "", false, nil
}

func lowered(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToLower(v)
	}
	return out
}
