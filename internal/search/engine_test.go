package search

import (
	"context"
	"errors"
	"testing"

	"github.com/npolatykin/mas-sandbox/internal/index"
	"github.com/npolatykin/mas-sandbox/internal/store"
)

type staticSource []store.Task

func (s staticSource) ListAllTasks() []store.Task { return s }

// fakeIndex returns a fixed candidate set regardless of the query text.
type fakeIndex struct {
	matches []index.Match
	err     error
	calls   int
}

func (f *fakeIndex) Query(ctx context.Context, text string, k int, threshold float64) ([]index.Match, error) {
	f.calls++
	return f.matches, f.err
}

func fixtureTasks() []store.Task {
	return []store.Task{
		{TaskID: "1", UserID: "u1", Name: "Buy milk", Description: "two liters", Status: store.StatusPending, Date: "2025-01-01"},
		{TaskID: "2", UserID: "u1", Name: "Dentist appointment", Description: "book a slot", Status: store.StatusCompleted, Date: "2025-06-15"},
		{TaskID: "3", UserID: "u2", Name: "Water the plants", Description: "balcony herbs", Status: store.StatusPending, Date: "2025-12-31"},
		{TaskID: "4", UserID: "u2", Name: "Review budget", Description: "monthly numbers", Status: store.StatusInProgress, Date: "someday"},
	}
}

func taskIDs(tasks []store.Task) []string {
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.TaskID
	}
	return ids
}

func equalIDs(a []store.Task, want ...string) bool {
	if len(a) != len(want) {
		return false
	}
	for i := range want {
		if a[i].TaskID != want[i] {
			return false
		}
	}
	return true
}

func TestSearch_ExactFilters(t *testing.T) {
	e := NewEngine(staticSource(fixtureTasks()), nil)
	ctx := context.Background()

	cases := []struct {
		name string
		c    Criteria
		want []string
	}{
		{"by user", Criteria{UserID: "u1"}, []string{"1", "2"}},
		{"by id", Criteria{TaskID: "3"}, []string{"3"}},
		{"by status", Criteria{Status: "pending"}, []string{"1", "3"}},
		{"by exact date", Criteria{Date: "2025-06-15"}, []string{"2"}},
		{"user and status", Criteria{UserID: "u1", Status: "completed"}, []string{"2"}},
		{"no match", Criteria{UserID: "nobody"}, nil},
	}
	for _, tc := range cases {
		got, err := e.Search(ctx, tc.c)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if !equalIDs(got, tc.want...) {
			t.Errorf("%s: got %v, want %v", tc.name, taskIDs(got), tc.want)
		}
	}
}

func TestSearch_DateRange(t *testing.T) {
	e := NewEngine(staticSource(fixtureTasks()), nil)
	ctx := context.Background()

	cases := []struct {
		name string
		c    Criteria
		want []string
	}{
		// Range bounds are inclusive. Task 4 has an unparsable date and
		// passes every range test.
		{"from only", Criteria{DateFrom: "2025-06-15"}, []string{"2", "3", "4"}},
		{"to only", Criteria{DateTo: "2025-06-15"}, []string{"1", "2", "4"}},
		{"both", Criteria{DateFrom: "2025-01-02", DateTo: "2025-12-30"}, []string{"2", "4"}},
		{"unparsable bound is ignored", Criteria{DateFrom: "soon", Status: "pending"}, []string{"1", "3"}},
	}
	for _, tc := range cases {
		got, err := e.Search(ctx, tc.c)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if !equalIDs(got, tc.want...) {
			t.Errorf("%s: got %v, want %v", tc.name, taskIDs(got), tc.want)
		}
	}
}

func TestSearch_SubstringMatching(t *testing.T) {
	e := NewEngine(staticSource(fixtureTasks()), nil)
	ctx := context.Background()

	got, err := e.Search(ctx, Criteria{Name: "DENTIST"})
	if err != nil {
		t.Fatal(err)
	}
	if !equalIDs(got, "2") {
		t.Errorf("case-insensitive name match: got %v", taskIDs(got))
	}

	got, err = e.Search(ctx, Criteria{Description: "liters"})
	if err != nil {
		t.Fatal(err)
	}
	if !equalIDs(got, "1") {
		t.Errorf("description match: got %v", taskIDs(got))
	}
}

func TestSearch_SemanticSelectsSetNotOrder(t *testing.T) {
	// The index ranks task 3 above task 1, but results come back in
	// source order. Similarity picks the set; it never reorders.
	tasks := fixtureTasks()
	idx := &fakeIndex{matches: []index.Match{
		{Task: tasks[2], Score: 0.95},
		{Task: tasks[0], Score: 0.65},
	}}
	e := NewEngine(staticSource(tasks), idx)

	got, err := e.Search(context.Background(), Criteria{Name: "chores", UseSemanticSearch: true})
	if err != nil {
		t.Fatal(err)
	}
	if !equalIDs(got, "1", "3") {
		t.Errorf("got %v, want source order [1 3]", taskIDs(got))
	}
	if idx.calls != 1 {
		t.Errorf("index queried %d times", idx.calls)
	}
}

func TestSearch_SemanticCombinesWithExactFilters(t *testing.T) {
	tasks := fixtureTasks()
	idx := &fakeIndex{matches: []index.Match{
		{Task: tasks[0], Score: 0.9},
		{Task: tasks[2], Score: 0.8},
	}}
	e := NewEngine(staticSource(tasks), idx)

	got, err := e.Search(context.Background(), Criteria{
		Name:              "chores",
		UserID:            "u2",
		UseSemanticSearch: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !equalIDs(got, "3") {
		t.Errorf("exact filter should trim semantic candidates: got %v", taskIDs(got))
	}
}

func TestSearch_SemanticSkipsSubstringFilter(t *testing.T) {
	// A semantic candidate whose text does not literally contain the
	// query term still belongs to the result set.
	tasks := fixtureTasks()
	idx := &fakeIndex{matches: []index.Match{{Task: tasks[1], Score: 0.9}}}
	e := NewEngine(staticSource(tasks), idx)

	got, err := e.Search(context.Background(), Criteria{Name: "teeth", UseSemanticSearch: true})
	if err != nil {
		t.Fatal(err)
	}
	if !equalIDs(got, "2") {
		t.Errorf("got %v, want the dentist task", taskIDs(got))
	}
}

func TestSearch_IndexErrorFallsBackToSubstring(t *testing.T) {
	tasks := fixtureTasks()
	idx := &fakeIndex{err: errors.New("embedding service down")}
	e := NewEngine(staticSource(tasks), idx)

	got, err := e.Search(context.Background(), Criteria{Name: "milk", UseSemanticSearch: true})
	if err != nil {
		t.Fatalf("index failure must not fail the search: %v", err)
	}
	if !equalIDs(got, "1") {
		t.Errorf("substring fallback: got %v", taskIDs(got))
	}
}

func TestSearch_NilIndexUsesSubstring(t *testing.T) {
	e := NewEngine(staticSource(fixtureTasks()), nil)
	if e.SemanticAvailable() {
		t.Fatal("nil index reported as available")
	}

	got, err := e.Search(context.Background(), Criteria{Name: "plants", UseSemanticSearch: true})
	if err != nil {
		t.Fatal(err)
	}
	if !equalIDs(got, "3") {
		t.Errorf("got %v", taskIDs(got))
	}
}

func TestSearch_SemanticNotUsedWithoutTextCriteria(t *testing.T) {
	tasks := fixtureTasks()
	idx := &fakeIndex{}
	e := NewEngine(staticSource(tasks), idx)

	got, err := e.Search(context.Background(), Criteria{UserID: "u1", UseSemanticSearch: true})
	if err != nil {
		t.Fatal(err)
	}
	if idx.calls != 0 {
		t.Errorf("index queried without text criteria")
	}
	if !equalIDs(got, "1", "2") {
		t.Errorf("got %v", taskIDs(got))
	}
}

func TestCriteria_Empty(t *testing.T) {
	if !(Criteria{UseSemanticSearch: true}).Empty() {
		t.Error("semantic flag alone should not make criteria non-empty")
	}
	if (Criteria{Status: "pending"}).Empty() {
		t.Error("status filter should make criteria non-empty")
	}
}
