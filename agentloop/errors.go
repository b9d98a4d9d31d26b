package agentloop

import "errors"

// ErrNoHistoryStore is returned by SaveConversation and LoadConversation
// when the session was built without a HistoryStore.
var ErrNoHistoryStore = errors.New("no history store configured")

// InvalidInputError reports a rejected user input, such as an empty message.
type InvalidInputError struct {
	Message string
}

func (e *InvalidInputError) Error() string {
	return "invalid input: " + e.Message
}

// InvariantError reports a conversation that breaks the system-message rule:
// exactly one system message, at index 0. It is never retried.
type InvariantError struct {
	Message string
}

func (e *InvariantError) Error() string {
	return "conversation invariant violated: " + e.Message
}
