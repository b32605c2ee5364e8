// Package index maintains an embedding-based nearest-neighbor structure
// over task text. The index is rebuilt in full on every store mutation;
// that trades efficiency for correctness simplicity and is the documented
// baseline policy, not an accident. An incremental implementation must
// preserve identical query results.
package index

import (
	"container/heap"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/npolatykin/mas-sandbox/internal/store"
)

// Embedder generates vector embeddings for task text and queries.
type Embedder interface {
	EmbedDocument(ctx context.Context, text string) ([]float32, error)
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
	Dimensions(ctx context.Context) (int, error)
}

// Match pairs a task with its similarity score.
type Match struct {
	Task  store.Task
	Score float64
}

// Index holds one normalized embedding per indexed task in memory, with a
// parallel slot-to-task mapping, and caches both to SQLite so restarts
// skip re-embedding. Exact inner-product search over normalized vectors
// equals cosine similarity.
type Index struct {
	embedder Embedder
	db       *sql.DB
	dims     int

	mu      sync.RWMutex
	vectors [][]float32
	tasks   []store.Task
}

// Open probes the embedder, opens the vector cache at dbPath and loads it
// when its dimensionality matches the current model. Any load problem,
// and likewise an empty cache while tasks exist, falls back to a full
// rebuild over the given task set instead of a startup failure. An
// embedder probe failure is returned to the caller, which switches
// semantic search off entirely.
func Open(ctx context.Context, dbPath string, embedder Embedder, tasks []store.Task) (*Index, error) {
	dims, err := embedder.Dimensions(ctx)
	if err != nil {
		return nil, fmt.Errorf("embedding model unavailable: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open vector cache: %w", err)
	}

	idx := &Index{embedder: embedder, db: db, dims: dims}
	if err := idx.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("vector cache migrate: %w", err)
	}

	if err := idx.load(); err != nil {
		log.Printf("Warning: vector cache unusable (%v), rebuilding", err)
		if err := idx.Build(ctx, tasks); err != nil {
			db.Close()
			return nil, err
		}
	} else if len(idx.vectors) == 0 && len(tasks) > 0 {
		// A freshly created cache loads as zero rows. When the store
		// already holds tasks that is a miss, not a valid empty index.
		log.Printf("vector cache empty, indexing %d tasks", len(tasks))
		if err := idx.Build(ctx, tasks); err != nil {
			db.Close()
			return nil, err
		}
	}
	return idx, nil
}

// Close releases the vector cache.
func (idx *Index) Close() error {
	return idx.db.Close()
}

func (idx *Index) migrate() error {
	_, err := idx.db.Exec(`
		CREATE TABLE IF NOT EXISTS vectors (
			slot       INTEGER PRIMARY KEY,
			task_id    TEXT NOT NULL,
			task       TEXT NOT NULL,
			embedding  BLOB NOT NULL,
			dimensions INTEGER NOT NULL
		)
	`)
	return err
}

// load reads the cached vectors in slot order. A dimensionality mismatch
// (the embedding model changed) or a corrupt row invalidates the whole
// cache.
func (idx *Index) load() error {
	rows, err := idx.db.Query("SELECT task, embedding, dimensions FROM vectors ORDER BY slot")
	if err != nil {
		return err
	}
	defer rows.Close()

	var vectors [][]float32
	var tasks []store.Task
	for rows.Next() {
		var taskJSON string
		var blob []byte
		var dims int
		if err := rows.Scan(&taskJSON, &blob, &dims); err != nil {
			return err
		}
		if dims != idx.dims {
			return fmt.Errorf("cached dimensions %d, model has %d", dims, idx.dims)
		}
		var task store.Task
		if err := json.Unmarshal([]byte(taskJSON), &task); err != nil {
			return fmt.Errorf("decode cached task: %w", err)
		}
		vectors = append(vectors, blobToFloat32(blob, dims))
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	idx.mu.Lock()
	idx.vectors = vectors
	idx.tasks = tasks
	idx.mu.Unlock()
	return nil
}

// taskText derives the embedded text: name and description concatenated.
func taskText(t store.Task) string {
	return strings.TrimSpace(t.Name + " " + t.Description)
}

// Build recomputes the whole index from the given task set. Tasks whose
// derived text is blank carry no searchable content and are excluded.
// The in-memory structure and the SQLite cache are replaced together.
func (idx *Index) Build(ctx context.Context, tasks []store.Task) error {
	var vectors [][]float32
	var kept []store.Task
	for _, t := range tasks {
		text := taskText(t)
		if text == "" {
			continue
		}
		vec, err := idx.embedder.EmbedDocument(ctx, text)
		if err != nil {
			return fmt.Errorf("embed task %s: %w", t.TaskID, err)
		}
		vectors = append(vectors, normalize(vec))
		kept = append(kept, t)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err := idx.persist(ctx, vectors, kept); err != nil {
		return fmt.Errorf("persist vector cache: %w", err)
	}
	idx.vectors = vectors
	idx.tasks = kept
	return nil
}

// persist replaces the cache contents in one transaction. Callers hold
// the write lock.
func (idx *Index) persist(ctx context.Context, vectors [][]float32, tasks []store.Task) error {
	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM vectors"); err != nil {
		return err
	}
	stmt, err := tx.Prepare("INSERT INTO vectors (slot, task_id, task, embedding, dimensions) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for slot, vec := range vectors {
		taskJSON, err := json.Marshal(tasks[slot])
		if err != nil {
			return err
		}
		if _, err := stmt.Exec(slot, tasks[slot].TaskID, string(taskJSON), float32ToBlob(vec), len(vec)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Refresh rebuilds the index from the given task snapshot. It satisfies
// the store's post-mutation notification hook.
func (idx *Index) Refresh(ctx context.Context, reason string, tasks []store.Task) error {
	log.Printf("rebuilding vector index (%s), %d tasks", reason, len(tasks))
	return idx.Build(ctx, tasks)
}

// Len returns the number of indexed tasks.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.vectors)
}

// Query embeds the text and returns up to k tasks whose cosine similarity
// reaches the threshold, in descending score order. A blank query or an
// empty index yields no matches.
func (idx *Index) Query(ctx context.Context, text string, k int, threshold float64) ([]Match, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	idx.mu.RLock()
	empty := len(idx.vectors) == 0
	idx.mu.RUnlock()
	if empty {
		return nil, nil
	}

	vec, err := idx.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	query := normalize(vec)

	idx.mu.RLock()
	h := &minHeap{}
	heap.Init(h)
	for slot, v := range idx.vectors {
		if len(v) != len(query) {
			continue
		}
		score := dotProduct(query, v)
		if h.Len() < k {
			heap.Push(h, scoredSlot{slot: slot, score: score})
		} else if score > (*h)[0].score {
			(*h)[0] = scoredSlot{slot: slot, score: score}
			heap.Fix(h, 0)
		}
	}

	// Extract in descending score order, dropping sub-threshold slots.
	ordered := make([]scoredSlot, h.Len())
	for i := len(ordered) - 1; i >= 0; i-- {
		ordered[i] = heap.Pop(h).(scoredSlot)
	}
	var matches []Match
	for _, s := range ordered {
		if s.score < threshold {
			continue
		}
		matches = append(matches, Match{Task: idx.tasks[s.slot], Score: s.score})
	}
	idx.mu.RUnlock()

	return matches, nil
}

type scoredSlot struct {
	slot  int
	score float64
}

// minHeap implements heap.Interface for top-K selection (min at root).
type minHeap []scoredSlot

func (h minHeap) Len() int           { return len(h) }
func (h minHeap) Less(i, j int) bool { return h[i].score < h[j].score }
func (h minHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x any)        { *h = append(*h, x.(scoredSlot)) }
func (h *minHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
