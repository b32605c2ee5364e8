package agent

import "strings"

// Intent is the classification of a user message into one of a fixed set
// of handling behaviors.
type Intent int

const (
	IntentUnknown Intent = iota
	IntentGenericAnswer
	IntentCreate
	IntentSearch
	IntentUpdate
	IntentDelete
)

func (i Intent) String() string {
	switch i {
	case IntentGenericAnswer:
		return "generic_answer"
	case IntentCreate:
		return "task_create"
	case IntentSearch:
		return "task_search"
	case IntentUpdate:
		return "task_update"
	case IntentDelete:
		return "task_delete"
	}
	return "unknown"
}

// Intent markers the classifier looks for in completion output.
const (
	markerGenericAnswer = "generic_answer"
	markerCreate        = "task_create"
	markerSearch        = "task_search"
	markerUpdate        = "task_update"
	markerDelete        = "task_delete"
)

// classifyOrder fixes the marker priority. When a response ambiguously
// contains several markers, the first match wins, which keeps routing
// deterministic. Do not reorder.
var classifyOrder = []struct {
	marker string
	intent Intent
}{
	{markerGenericAnswer, IntentGenericAnswer},
	{markerCreate, IntentCreate},
	{markerSearch, IntentSearch},
	{markerUpdate, IntentUpdate},
	{markerDelete, IntentDelete},
}

// ClassifyResponse maps raw classification output to an intent. It is a
// pure function; no marker present yields IntentUnknown.
func ClassifyResponse(text string) Intent {
	lower := strings.ToLower(text)
	for _, c := range classifyOrder {
		if strings.Contains(lower, c.marker) {
			return c.intent
		}
	}
	return IntentUnknown
}
