package agent

// State is a node of the routing state machine. Every message enters at
// StateRoute and ends at StateEnd; each non-route state performs exactly
// one unit of work and transitions unconditionally to StateEnd. There are
// no retries or loops back to StateRoute.
type State string

const (
	StateRoute         State = "route"
	StateCreate        State = "create"
	StateUpdate        State = "update"
	StateDelete        State = "delete"
	StateSearch        State = "search"
	StateGenericAnswer State = "generic_answer"
	StateFallback      State = "fallback"
	StateEnd           State = "end"
)

// stateFor maps a classified intent to its handler state. Unknown intents
// route to the fallback state.
func stateFor(intent Intent) State {
	switch intent {
	case IntentGenericAnswer:
		return StateGenericAnswer
	case IntentCreate:
		return StateCreate
	case IntentSearch:
		return StateSearch
	case IntentUpdate:
		return StateUpdate
	case IntentDelete:
		return StateDelete
	}
	return StateFallback
}
