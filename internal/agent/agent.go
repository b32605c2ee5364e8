// Package agent drives the intent routing state machine: every message is
// classified once, dispatched to a single handler, and always terminates
// with a response, whatever the completion collaborator returns.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/npolatykin/mas-sandbox/internal/llm"
	"github.com/npolatykin/mas-sandbox/internal/search"
	"github.com/npolatykin/mas-sandbox/internal/store"
)

// User-facing terminal messages for recovered failures.
const (
	msgRephrase = "I couldn't make sense of that, please rephrase your request."
	msgFallback = "I'm not sure what you want to do. I can create, update, delete and search tasks, or answer a question."
)

// TaskStore is the slice of the store the handlers need.
type TaskStore interface {
	UserExists(userID string) bool
	CreateTask(ctx context.Context, userID, name, description, date string) (string, error)
	UpdateTask(ctx context.Context, taskID string, update store.TaskUpdate) (bool, error)
	DeleteTask(ctx context.Context, taskID string) (bool, error)
}

// Searcher is the hybrid search collaborator.
type Searcher interface {
	Search(ctx context.Context, c search.Criteria) ([]store.Task, error)
}

// Agent is the intent router. It holds no per-session state; any number
// of sessions may call HandleMessage concurrently.
type Agent struct {
	completer llm.Completer
	store     TaskStore
	searcher  Searcher
}

// New creates an agent over explicit collaborators.
func New(completer llm.Completer, st TaskStore, searcher Searcher) *Agent {
	return &Agent{completer: completer, store: st, searcher: searcher}
}

// HandleMessage runs the state machine once to its terminal state and
// returns the accumulated response text. It never returns an error and
// never lets a handler panic escape; every failure path degrades to a
// user-facing message.
func (a *Agent) HandleMessage(ctx context.Context, sessionID, message string) (response string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("session %s: handler panic: %v", sessionID, r)
			response = fmt.Sprintf("Something went wrong while handling your request: %v", r)
		}
	}()

	state := a.route(ctx, sessionID, message)

	switch state {
	case StateCreate:
		return a.handleCreate(ctx, message)
	case StateUpdate:
		return a.handleUpdate(ctx, message)
	case StateDelete:
		return a.handleDelete(ctx, message)
	case StateSearch:
		return a.handleSearch(ctx, message)
	case StateGenericAnswer:
		return a.handleGenericAnswer(ctx, message)
	default:
		return msgFallback
	}
}

// route asks the completion collaborator to classify the message and maps
// the result to a handler state. A collaborator failure routes to the
// fallback state rather than surfacing an error.
func (a *Agent) route(ctx context.Context, sessionID, message string) State {
	raw, err := a.completer.Complete(ctx, fmt.Sprintf(classifyPromptTemplate, message))
	if err != nil {
		log.Printf("session %s: classification failed: %v", sessionID, err)
		return StateFallback
	}
	intent := ClassifyResponse(raw)
	log.Printf("session %s: intent %s", sessionID, intent)
	return stateFor(intent)
}

// extract runs one extraction completion and the two-stage JSON parse.
// The bool result is false whenever a terminal please-rephrase answer is
// warranted.
func (a *Agent) extract(ctx context.Context, template, message string) (llm.Extraction, bool) {
	raw, err := a.completer.Complete(ctx, fmt.Sprintf(template, message))
	if err != nil {
		log.Printf("parameter extraction failed: %v", err)
		return llm.Extraction{}, false
	}
	ext := llm.ExtractFields(raw)
	if !ext.OK {
		log.Printf("unparsable extraction output: %.120s", ext.Raw)
		return ext, false
	}
	return ext, true
}

func (a *Agent) handleCreate(ctx context.Context, message string) string {
	ext, ok := a.extract(ctx, createExtractPromptTemplate, message)
	if !ok {
		return msgRephrase
	}

	userID := ext.StringField("user_id")
	name := ext.StringField("task_name")
	description := ext.StringField("task_description")
	date := ext.StringField("date")

	var missing []string
	if userID == "" {
		missing = append(missing, "user_id")
	}
	if name == "" {
		missing = append(missing, "task_name")
	}
	if len(missing) > 0 {
		return fmt.Sprintf("I can't create the task yet, the following fields are missing: %s.", strings.Join(missing, ", "))
	}

	if !a.store.UserExists(userID) {
		return fmt.Sprintf("I don't know a user with id %q, so the task was not created.", userID)
	}

	taskID, err := a.store.CreateTask(ctx, userID, name, description, date)
	if err != nil {
		if errors.Is(err, store.ErrInvalidDate) {
			return fmt.Sprintf("The date %q is not a valid calendar date (expected YYYY-MM-DD).", date)
		}
		return fmt.Sprintf("Creating the task failed: %v", err)
	}
	return fmt.Sprintf("Created task %s (%s) for user %s.", taskID, name, userID)
}

func (a *Agent) handleUpdate(ctx context.Context, message string) string {
	ext, ok := a.extract(ctx, updateExtractPromptTemplate, message)
	if !ok {
		return msgRephrase
	}

	taskID := ext.StringField("task_id")
	if taskID == "" {
		return "I can't update the task yet, the following fields are missing: task_id."
	}

	update := store.TaskUpdate{}
	hasField := false
	if v := ext.StringField("task_name"); v != "" {
		update.Name = &v
		hasField = true
	}
	if v := ext.StringField("task_description"); v != "" {
		update.Description = &v
		hasField = true
	}
	if v := ext.StringField("task_status"); v != "" {
		update.Status = &v
		hasField = true
	}
	if v := ext.StringField("date"); v != "" {
		update.Date = &v
		hasField = true
	}
	if !hasField {
		return "I couldn't find anything to change; tell me the new name, description, status or date."
	}

	changed, err := a.store.UpdateTask(ctx, taskID, update)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrInvalidStatus):
			return fmt.Sprintf("The status %q is not valid; use pending, in_progress, completed or cancelled.", *update.Status)
		case errors.Is(err, store.ErrInvalidDate):
			return fmt.Sprintf("The date %q is not a valid calendar date (expected YYYY-MM-DD).", *update.Date)
		}
		return fmt.Sprintf("Updating the task failed: %v", err)
	}
	if !changed {
		return fmt.Sprintf("There is no task with id %q, nothing was changed.", taskID)
	}
	return fmt.Sprintf("Task %s updated.", taskID)
}

func (a *Agent) handleDelete(ctx context.Context, message string) string {
	ext, ok := a.extract(ctx, deleteExtractPromptTemplate, message)
	if !ok {
		return msgRephrase
	}

	taskID := ext.StringField("task_id")
	if taskID == "" {
		return "I can't delete the task yet, the following fields are missing: task_id."
	}

	deleted, err := a.store.DeleteTask(ctx, taskID)
	if err != nil {
		return fmt.Sprintf("Deleting the task failed: %v", err)
	}
	if !deleted {
		return fmt.Sprintf("There is no task with id %q, nothing was deleted.", taskID)
	}
	return fmt.Sprintf("Task %s deleted.", taskID)
}

func (a *Agent) handleSearch(ctx context.Context, message string) string {
	ext, ok := a.extract(ctx, searchExtractPromptTemplate, message)
	if !ok {
		return msgRephrase
	}

	criteria := search.Criteria{
		UserID:            ext.StringField("user_id"),
		TaskID:            ext.StringField("task_id"),
		Name:              ext.StringField("task_name"),
		Description:       ext.StringField("task_description"),
		Status:            ext.StringField("task_status"),
		Date:              ext.StringField("date"),
		DateFrom:          ext.StringField("date_from"),
		DateTo:            ext.StringField("date_to"),
		UseSemanticSearch: true,
	}
	if criteria.Empty() {
		return "Tell me at least one thing to search by: a user, a task id, words from the task, a status or a date."
	}

	tasks, err := a.searcher.Search(ctx, criteria)
	if err != nil {
		return fmt.Sprintf("Searching tasks failed: %v", err)
	}
	if len(tasks) == 0 {
		return "No tasks match your request."
	}
	return formatTasks(tasks)
}

func (a *Agent) handleGenericAnswer(ctx context.Context, message string) string {
	answer, err := a.completer.Complete(ctx, fmt.Sprintf(genericAnswerPromptTemplate, message))
	if err != nil {
		log.Printf("generic answer failed: %v", err)
		return msgRephrase
	}
	return strings.TrimSpace(answer)
}

// formatTasks renders a result list in a compact human-readable form.
func formatTasks(tasks []store.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d task(s):\n", len(tasks))
	for _, t := range tasks {
		fmt.Fprintf(&b, "- [%s] %s (%s, %s, user %s)", t.TaskID, t.Name, t.Status, t.Date, t.UserID)
		if t.Description != "" {
			fmt.Fprintf(&b, ": %s", t.Description)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
