package notification

import "context"

// Request describes one message for one user across one or more channels.
type Request struct {
	UserID   string
	Kind     Kind
	Title    string
	Message  string
	Channels []Channel
	Data     map[string]any
}

// Result reports which channels actually carried the message. A channel
// that failed is simply absent; delivery failures never propagate as errors
// to the caller that mutated attendance state.
type Result struct {
	ChannelsUsed []Channel
}

// Service delivers messages. Implementations must attempt every requested
// channel independently: one failing transport must not abort the others.
type Service interface {
	Notify(ctx context.Context, req Request) (Result, error)
}
