package llm

import "context"

// Session is a host-provided text-generation session.
type Session interface {
	Prompt(ctx context.Context, text string) (string, error)
}

// SessionProvider is the host capability behind the local_session backend.
// The gateway only consumes it; it never loads or tears down the model.
type SessionProvider interface {
	CreateSession(ctx context.Context) (Session, error)
}
