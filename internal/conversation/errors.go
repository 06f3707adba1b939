package conversation

import "errors"

// Precondition failures. They are surfaced to the UI as disabled or ignored
// actions; generation failures never show up here.
var (
	ErrCredentialRequired = errors.New("an API key is required for the selected backend")
	ErrEmptyTopic         = errors.New("topic is empty")
	ErrNotIdle            = errors.New("a conversation is already in progress")
	ErrBusy               = errors.New("a response is already being generated")
	ErrNoConversation     = errors.New("no conversation in progress")
	ErrMessageNotFound    = errors.New("message not found")
	ErrNotStudentMessage  = errors.New("additional info is only available for student messages")
	ErrDiscarded          = errors.New("conversation was reset; response discarded")
)
