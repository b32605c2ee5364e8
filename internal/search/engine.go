// Package search combines vector-index candidates with exact-filter
// predicates into a deterministic, side-effect-free result set.
package search

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/npolatykin/mas-sandbox/internal/index"
	"github.com/npolatykin/mas-sandbox/internal/store"
)

const (
	// semanticTopK over-fetches candidates; exact filters trim afterwards.
	semanticTopK = 100
	// semanticThreshold is the minimum cosine similarity for a match.
	semanticThreshold = 0.3
)

// TaskSource supplies the full task set for filtering.
type TaskSource interface {
	ListAllTasks() []store.Task
}

// SemanticIndex is the optional nearest-neighbor collaborator. A nil
// index switches semantic search off and the engine falls back to
// substring matching.
type SemanticIndex interface {
	Query(ctx context.Context, text string, k int, threshold float64) ([]index.Match, error)
}

// Engine is the hybrid search engine over a task source.
type Engine struct {
	tasks TaskSource
	index SemanticIndex
}

// NewEngine creates a search engine. idx may be nil when the embedding
// subsystem is unavailable.
func NewEngine(tasks TaskSource, idx SemanticIndex) *Engine {
	return &Engine{tasks: tasks, index: idx}
}

// SemanticAvailable reports whether the vector index is wired in.
func (e *Engine) SemanticAvailable() bool {
	return e.index != nil
}

// Search returns the tasks matching the criteria. When the semantic path
// is taken, similarity selects the candidate *set* only; the result order
// is the order exact filtering encounters candidates during store
// iteration, not similarity rank. No re-sort happens after filtering.
func (e *Engine) Search(ctx context.Context, c Criteria) ([]store.Task, error) {
	all := e.tasks.ListAllTasks()

	semanticUsed := false
	candidates := all

	if c.UseSemanticSearch && e.index != nil && (c.Name != "" || c.Description != "") {
		query := strings.TrimSpace(strings.TrimSpace(c.Name) + " " + strings.TrimSpace(c.Description))
		matches, err := e.index.Query(ctx, query, semanticTopK, semanticThreshold)
		if err != nil {
			// Index trouble degrades to substring matching, never fails
			// the search.
			log.Printf("Warning: semantic query failed, falling back to substring match: %v", err)
		} else {
			semanticUsed = true
			matched := make(map[string]bool, len(matches))
			for _, m := range matches {
				matched[m.Task.TaskID] = true
			}
			candidates = make([]store.Task, 0, len(matches))
			for _, t := range all {
				if matched[t.TaskID] {
					candidates = append(candidates, t)
				}
			}
		}
	}

	from, fromOK := parseDate(c.DateFrom)
	to, toOK := parseDate(c.DateTo)

	var result []store.Task
	for _, t := range candidates {
		if c.UserID != "" && t.UserID != c.UserID {
			continue
		}
		if c.TaskID != "" && t.TaskID != c.TaskID {
			continue
		}
		if c.Date != "" && t.Date != c.Date {
			continue
		}
		if fromOK || toOK {
			// Only tasks whose own date parses participate in range
			// filtering; a task with an unparsable date passes the range
			// test unconditionally.
			if taskDate, ok := parseDate(t.Date); ok {
				if fromOK && taskDate.Before(from) {
					continue
				}
				if toOK && taskDate.After(to) {
					continue
				}
			}
		}
		if c.Status != "" && string(t.Status) != c.Status {
			continue
		}
		if !semanticUsed {
			if c.Name != "" && !strings.Contains(strings.ToLower(t.Name), strings.ToLower(c.Name)) {
				continue
			}
			if c.Description != "" && !strings.Contains(strings.ToLower(t.Description), strings.ToLower(c.Description)) {
				continue
			}
		}
		result = append(result, t)
	}
	return result, nil
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}
