package agent

import (
	"context"
	"errors"

	"github.com/npolatykin/mas-sandbox/internal/search"
	"github.com/npolatykin/mas-sandbox/internal/store"
)

// scriptedCompleter returns canned responses in order: typically one
// classification answer followed by one extraction answer.
type scriptedCompleter struct {
	responses []string
	err       error
	prompts   []string
}

func (c *scriptedCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	c.prompts = append(c.prompts, prompt)
	if c.err != nil {
		return "", c.err
	}
	if len(c.responses) == 0 {
		return "", errors.New("scripted completer exhausted")
	}
	resp := c.responses[0]
	c.responses = c.responses[1:]
	return resp, nil
}

type createCall struct {
	userID, name, description, date string
}

type mockStore struct {
	users map[string]bool

	creates   []createCall
	createID  string
	createErr error

	updates   map[string]store.TaskUpdate
	updated   bool
	updateErr error

	deletes   []string
	deleted   bool
	deleteErr error
}

func newMockStore(users ...string) *mockStore {
	m := &mockStore{
		users:    map[string]bool{},
		updates:  map[string]store.TaskUpdate{},
		createID: "1",
		updated:  true,
		deleted:  true,
	}
	for _, u := range users {
		m.users[u] = true
	}
	return m
}

func (m *mockStore) UserExists(userID string) bool { return m.users[userID] }

func (m *mockStore) CreateTask(ctx context.Context, userID, name, description, date string) (string, error) {
	m.creates = append(m.creates, createCall{userID, name, description, date})
	return m.createID, m.createErr
}

func (m *mockStore) UpdateTask(ctx context.Context, taskID string, update store.TaskUpdate) (bool, error) {
	m.updates[taskID] = update
	return m.updated, m.updateErr
}

func (m *mockStore) DeleteTask(ctx context.Context, taskID string) (bool, error) {
	m.deletes = append(m.deletes, taskID)
	return m.deleted, m.deleteErr
}

type mockSearcher struct {
	criteria search.Criteria
	tasks    []store.Task
	err      error
	calls    int
}

func (m *mockSearcher) Search(ctx context.Context, c search.Criteria) ([]store.Task, error) {
	m.calls++
	m.criteria = c
	return m.tasks, m.err
}
