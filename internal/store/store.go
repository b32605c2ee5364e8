package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// Refresher is notified synchronously after every successful mutation so a
// derived structure (the vector index) can rebuild itself. It receives a
// snapshot of the full task set because the store's write lock is still
// held during the call. A refresh failure is logged and swallowed; the
// store remains the source of truth.
type Refresher interface {
	Refresh(ctx context.Context, reason string, tasks []Task) error
}

// document is the persisted layout: one record per user with an embedded
// ordered task list.
type document struct {
	Users []User `json:"users"`
}

// legacyDocument is the pre-multiuser layout: a single user's profile
// fields at the top level with a flat task list.
type legacyDocument struct {
	UserID string `json:"user_id"`
	Name   string `json:"user_name"`
	Email  string `json:"user_email"`
	Phone  string `json:"user_phone"`
	Tasks  []Task `json:"tasks"`
}

// Store is a durable collection of users and their tasks backed by a
// single JSON document. All mutations hold the write lock across the
// read-modify-write, the persistence flush, and the index-refresh
// notification, so concurrent sessions never observe a half-applied
// mutation.
type Store struct {
	path string

	mu        sync.RWMutex
	doc       document
	refresher Refresher
}

// Open loads the document at path, migrating the legacy single-user
// layout if present. A missing file yields an empty store.
func Open(path string) (*Store, error) {
	s := &Store{path: path}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read task data: %w", err)
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err == nil && doc.Users != nil {
		s.doc = doc
		s.backfillOwners()
		return s, nil
	}

	// Older data files carried a single user at the top level. Wrap it
	// into the multiuser layout and persist once, so the migration runs
	// at load time rather than on every query.
	var legacy legacyDocument
	if err := json.Unmarshal(raw, &legacy); err == nil && legacy.UserID != "" {
		user := User{
			UserID: legacy.UserID,
			Name:   legacy.Name,
			Email:  legacy.Email,
			Phone:  legacy.Phone,
			Tasks:  legacy.Tasks,
		}
		s.doc = document{Users: []User{user}}
		s.backfillOwners()
		if err := s.persist(); err != nil {
			return nil, fmt.Errorf("persist migrated data: %w", err)
		}
		return s, nil
	}

	log.Printf("Warning: task data at %s is unreadable, starting empty", path)
	return s, nil
}

// SetRefresher installs the post-mutation notification hook. The index is
// built after the store, so this cannot be a constructor argument.
func (s *Store) SetRefresher(r Refresher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresher = r
}

// backfillOwners guarantees every task carries its owner's user_id, even
// for records written before the field existed.
func (s *Store) backfillOwners() {
	for i := range s.doc.Users {
		u := &s.doc.Users[i]
		for j := range u.Tasks {
			if u.Tasks[j].UserID == "" {
				u.Tasks[j].UserID = u.UserID
			}
		}
	}
}

// persist writes the whole document to disk atomically. Callers hold the
// write lock.
func (s *Store) persist() error {
	data, err := json.MarshalIndent(s.doc, "", "    ")
	if err != nil {
		return fmt.Errorf("encode task data: %w", err)
	}
	tmp := s.path + ".tmp"
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write task data: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace task data: %w", err)
	}
	return nil
}

// notifyRefresh runs the refresher hook after a successful persist.
// Callers hold the write lock; the hook is best-effort.
func (s *Store) notifyRefresh(ctx context.Context, reason string) {
	if s.refresher == nil {
		return
	}
	if err := s.refresher.Refresh(ctx, reason, s.listAllLocked()); err != nil {
		log.Printf("Warning: index refresh (%s) failed: %v", reason, err)
	}
}

// listAllLocked flattens every task. Callers hold a lock.
func (s *Store) listAllLocked() []Task {
	var tasks []Task
	for i := range s.doc.Users {
		tasks = append(tasks, s.doc.Users[i].Tasks...)
	}
	return tasks
}

// GetUser returns a copy of the user with the given id.
func (s *Store) GetUser(userID string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u := s.findUser(userID)
	if u == nil {
		return nil, fmt.Errorf("user %q: %w", userID, ErrUserNotFound)
	}
	out := *u
	out.Tasks = append([]Task(nil), u.Tasks...)
	return &out, nil
}

// UserExists reports whether a user with the given id exists.
func (s *Store) UserExists(userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findUser(userID) != nil
}

// findUser returns a pointer into the live document. Callers hold a lock.
func (s *Store) findUser(userID string) *User {
	for i := range s.doc.Users {
		if s.doc.Users[i].UserID == userID {
			return &s.doc.Users[i]
		}
	}
	return nil
}

// nextTaskID scans all tasks, takes the maximum of the ids that parse as
// integers and returns max+1 as a string, or "1" when no task exists.
// Non-numeric ids are tolerated by excluding them from the computation;
// this is the store's only uniqueness guarantee. Callers hold a lock.
func (s *Store) nextTaskID() string {
	maxID := 0
	for i := range s.doc.Users {
		for _, t := range s.doc.Users[i].Tasks {
			n, err := strconv.Atoi(t.TaskID)
			if err != nil {
				continue
			}
			if n > maxID {
				maxID = n
			}
		}
	}
	return strconv.Itoa(maxID + 1)
}

// CreateTask appends a new pending task to the given user and returns its
// freshly assigned id. The date defaults to today when empty. Success is
// reported only after the document is persisted and the index refresh has
// been attempted.
func (s *Store) CreateTask(ctx context.Context, userID, name, description, date string) (string, error) {
	if date == "" {
		date = time.Now().Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		return "", fmt.Errorf("date %q: %w", date, ErrInvalidDate)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user := s.findUser(userID)
	if user == nil {
		return "", fmt.Errorf("user %q: %w", userID, ErrUserNotFound)
	}

	task := Task{
		TaskID:      s.nextTaskID(),
		UserID:      userID,
		Name:        name,
		Description: description,
		Status:      StatusPending,
		Date:        date,
	}
	user.Tasks = append(user.Tasks, task)

	if err := s.persist(); err != nil {
		user.Tasks = user.Tasks[:len(user.Tasks)-1]
		return "", err
	}
	s.notifyRefresh(ctx, "create")
	return task.TaskID, nil
}

// UpdateTask applies a partial update to the task with the given id.
// Only the recognized fields are touched; invalid status or date values
// are rejected before anything changes. Returns false when the id is
// unknown.
func (s *Store) UpdateTask(ctx context.Context, taskID string, update TaskUpdate) (bool, error) {
	if update.Status != nil && !ValidStatus(*update.Status) {
		return false, fmt.Errorf("status %q: %w", *update.Status, ErrInvalidStatus)
	}
	if update.Date != nil {
		if _, err := time.Parse("2006-01-02", *update.Date); err != nil {
			return false, fmt.Errorf("date %q: %w", *update.Date, ErrInvalidDate)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	task := s.findTask(taskID)
	if task == nil {
		return false, nil
	}

	prev := *task
	if update.Name != nil {
		task.Name = *update.Name
	}
	if update.Description != nil {
		task.Description = *update.Description
	}
	if update.Status != nil {
		task.Status = Status(*update.Status)
	}
	if update.Date != nil {
		task.Date = *update.Date
	}

	if err := s.persist(); err != nil {
		*task = prev
		return false, err
	}
	s.notifyRefresh(ctx, "update")
	return true, nil
}

// DeleteTask removes the task with the given id. Returns false when the
// id is unknown.
func (s *Store) DeleteTask(ctx context.Context, taskID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.doc.Users {
		u := &s.doc.Users[i]
		for j := range u.Tasks {
			if u.Tasks[j].TaskID != taskID {
				continue
			}
			removed := u.Tasks[j]
			u.Tasks = append(u.Tasks[:j], u.Tasks[j+1:]...)
			if err := s.persist(); err != nil {
				u.Tasks = append(u.Tasks[:j], append([]Task{removed}, u.Tasks[j:]...)...)
				return false, err
			}
			s.notifyRefresh(ctx, "delete")
			return true, nil
		}
	}
	return false, nil
}

// GetTaskByID returns a copy of the task with the given id.
func (s *Store) GetTaskByID(taskID string) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t := s.findTask(taskID)
	if t == nil {
		return nil, fmt.Errorf("task %q: %w", taskID, ErrTaskNotFound)
	}
	out := *t
	return &out, nil
}

// findTask returns a pointer into the live document. Callers hold a lock.
func (s *Store) findTask(taskID string) *Task {
	for i := range s.doc.Users {
		for j := range s.doc.Users[i].Tasks {
			if s.doc.Users[i].Tasks[j].TaskID == taskID {
				return &s.doc.Users[i].Tasks[j]
			}
		}
	}
	return nil
}

// ListAllTasks returns every task across all users, in document order.
func (s *Store) ListAllTasks() []Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listAllLocked()
}

// CountTasks returns the total number of tasks in the store.
func (s *Store) CountTasks() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for i := range s.doc.Users {
		n += len(s.doc.Users[i].Tasks)
	}
	return n
}

// AddUser registers a user record. Provisioning is normally external;
// this exists for bootstrapping data files and tests.
func (s *Store) AddUser(user User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findUser(user.UserID) != nil {
		return fmt.Errorf("user %q already exists", user.UserID)
	}
	if user.Tasks == nil {
		user.Tasks = []Task{}
	}
	s.doc.Users = append(s.doc.Users, user)
	if err := s.persist(); err != nil {
		s.doc.Users = s.doc.Users[:len(s.doc.Users)-1]
		return err
	}
	return nil
}

// Flush persists the current document without mutating it.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persist()
}
