package application

import "context"

// Worker represents a background loop driving the quote service.
// Implementations must run until the context is canceled.
type Worker interface {
	Start(ctx context.Context)
}
