package usage

import "context"

// Repository is the append-only event log
type Repository interface {
	// Append stores a new event
	Append(ctx context.Context, e *Event) error

	// ListByAccount returns matching events, newest first, and the total match count
	ListByAccount(ctx context.Context, accountID string, opts ListOptions) ([]*Event, int64, error)
}
