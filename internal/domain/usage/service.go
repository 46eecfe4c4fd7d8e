package usage

import "context"

// Recorder validates and appends usage events. It never touches quota counters.
type Recorder interface {
	// Validate checks an event without storing it
	Validate(e *Event) error

	// Record validates, stamps and appends an event
	Record(ctx context.Context, e *Event) (*Event, error)

	// List returns an account's events
	List(ctx context.Context, accountID string, opts ListOptions) ([]*Event, int64, error)
}
