package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/npolatykin/mas-sandbox/internal/agent"
	"github.com/npolatykin/mas-sandbox/internal/search"
	"github.com/npolatykin/mas-sandbox/internal/store"
)

// echoCompleter classifies everything as a generic answer and echoes a
// fixed response, keeping the chat endpoint deterministic.
type echoCompleter struct{}

func (echoCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if strings.Contains(prompt, "exactly one of") {
		return "generic_answer", nil
	}
	return "Hello from the assistant.", nil
}

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st, err := store.Open(filepath.Join(t.TempDir(), "data.json"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	if err := st.AddUser(store.User{UserID: "u1", Name: "Alice"}); err != nil {
		t.Fatalf("AddUser: %v", err)
	}

	engine := search.NewEngine(st, nil)
	a := agent.New(echoCompleter{}, st, engine)
	return NewServer(a, st, engine), st
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(t, s, "GET", "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["status"] != "ok" {
		t.Errorf("status field = %v", body["status"])
	}
	if body["semantic_index"] != false {
		t.Errorf("semantic_index should be off without an index: %v", body["semantic_index"])
	}
}

func TestChat(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(t, s, "POST", "/api/chat", `{"message": "hello"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["success"] != true {
		t.Errorf("success = %v", body["success"])
	}
	if body["session_id"] == "" || body["session_id"] == nil {
		t.Error("session_id not generated")
	}
	if body["response"] != "Hello from the assistant." {
		t.Errorf("response = %v", body["response"])
	}
}

func TestChat_EmptyMessage(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(t, s, "POST", "/api/chat", `{"message": "   "}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestChat_KeepsSessionID(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(t, s, "POST", "/api/chat", `{"session_id": "abc", "message": "hi"}`)
	body := decodeBody(t, w)
	if body["session_id"] != "abc" {
		t.Errorf("session_id = %v, want abc", body["session_id"])
	}
}

func TestCreateTask(t *testing.T) {
	s, st := newTestServer(t)

	w := doRequest(t, s, "POST", "/api/tasks",
		`{"user_id": "u1", "task_name": "Buy milk", "task_description": "two liters", "date": "2025-03-01"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	id, _ := body["task_id"].(string)
	if id == "" {
		t.Fatalf("no task_id in response: %v", body)
	}

	task, err := st.GetTaskByID(id)
	if err != nil {
		t.Fatalf("task not in store: %v", err)
	}
	if task.Name != "Buy milk" {
		t.Errorf("stored task = %+v", task)
	}
}

func TestCreateTask_Validation(t *testing.T) {
	s, _ := newTestServer(t)

	cases := []struct {
		name string
		body string
		code int
	}{
		{"missing name", `{"user_id": "u1"}`, http.StatusBadRequest},
		{"unknown user", `{"user_id": "ghost", "task_name": "x"}`, http.StatusNotFound},
		{"invalid date", `{"user_id": "u1", "task_name": "x", "date": "tomorrow"}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		w := doRequest(t, s, "POST", "/api/tasks", tc.body)
		if w.Code != tc.code {
			t.Errorf("%s: status = %d, want %d", tc.name, w.Code, tc.code)
		}
	}
}

func TestGetTask(t *testing.T) {
	s, st := newTestServer(t)
	id, _ := st.CreateTask(context.Background(), "u1", "Buy milk", "", "2025-03-01")

	w := doRequest(t, s, "GET", "/api/tasks/"+id, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["task_name"] != "Buy milk" {
		t.Errorf("body = %v", body)
	}

	w = doRequest(t, s, "GET", "/api/tasks/999", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("missing task: status = %d", w.Code)
	}
}

func TestUpdateTask(t *testing.T) {
	s, st := newTestServer(t)
	id, _ := st.CreateTask(context.Background(), "u1", "Buy milk", "", "")

	w := doRequest(t, s, "PUT", "/api/tasks/"+id, `{"task_status": "completed"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	task, _ := st.GetTaskByID(id)
	if task.Status != store.StatusCompleted {
		t.Errorf("status not applied: %+v", task)
	}

	w = doRequest(t, s, "PUT", "/api/tasks/"+id, `{"task_status": "done"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid status: code = %d", w.Code)
	}

	w = doRequest(t, s, "PUT", "/api/tasks/999", `{"task_status": "completed"}`)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown task: code = %d", w.Code)
	}
}

func TestDeleteTask(t *testing.T) {
	s, st := newTestServer(t)
	id, _ := st.CreateTask(context.Background(), "u1", "Buy milk", "", "")

	w := doRequest(t, s, "DELETE", "/api/tasks/"+id, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if st.CountTasks() != 0 {
		t.Error("task still in store")
	}

	w = doRequest(t, s, "DELETE", "/api/tasks/"+id, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete: status = %d", w.Code)
	}
}

func TestSearchTasks(t *testing.T) {
	s, st := newTestServer(t)
	ctx := context.Background()
	st.CreateTask(ctx, "u1", "Buy milk", "two liters", "2025-03-01")
	st.CreateTask(ctx, "u1", "Dentist", "book a slot", "2025-06-15")

	w := doRequest(t, s, "GET", "/api/tasks?task_name=milk", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["count"] != float64(1) {
		t.Errorf("count = %v, body = %s", body["count"], w.Body.String())
	}

	w = doRequest(t, s, "GET", "/api/tasks?user_id=u1&date_from=2025-06-01", "")
	body = decodeBody(t, w)
	if body["count"] != float64(1) {
		t.Errorf("range filter count = %v", body["count"])
	}
}

func TestSearchTasks_NoFilter(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(t, s, "GET", "/api/tasks", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d", w.Code)
	}
}

func TestRunContext_ShutsDownOnCancel(t *testing.T) {
	s, _ := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.RunContext(ctx, "127.0.0.1:0") }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("clean shutdown returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down after cancel")
	}
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func TestWebSocket_ChatRoundTrip(t *testing.T) {
	s, _ := newTestServer(t)
	ts := httptest.NewServer(s.router)
	defer ts.Close()

	// No Origin header: a non-browser client.
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(wsMessage{Message: "hello"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var reply wsReply
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("read: %v", err)
	}
	if reply.Response != "Hello from the assistant." {
		t.Errorf("response = %q", reply.Response)
	}
	if reply.SessionID == "" {
		t.Error("no session id assigned")
	}
}

func TestWebSocket_RejectsCrossOrigin(t *testing.T) {
	s, _ := newTestServer(t)
	ts := httptest.NewServer(s.router)
	defer ts.Close()

	header := http.Header{"Origin": []string{"http://evil.example"}}
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(ts), header)
	if err == nil {
		conn.Close()
		t.Fatal("cross-origin handshake accepted")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 handshake response, got %+v", resp)
	}
}

func TestWebSocket_AcceptsSameOrigin(t *testing.T) {
	s, _ := newTestServer(t)
	ts := httptest.NewServer(s.router)
	defer ts.Close()

	header := http.Header{"Origin": []string{ts.URL}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts), header)
	if err != nil {
		t.Fatalf("same-origin handshake rejected: %v", err)
	}
	conn.Close()
}
