// Package worker moves audit events from an in-process channel to a store so
// emitting never blocks domain operations.
package worker

import (
	"context"

	"vaultd/internal/audit"
)

// Worker consumes audit events from a channel and persists them.
type Worker struct {
	store audit.Store
	inbox <-chan audit.Event
}

func New(store audit.Store, inbox <-chan audit.Event) *Worker {
	return &Worker{store: store, inbox: inbox}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				return err
			}
		}
	}
}

// ChannelPublisher feeds a Worker. Emit drops nothing: it blocks until the
// worker drains or the context ends.
type ChannelPublisher struct {
	inbox chan<- audit.Event
}

func NewChannelPublisher(inbox chan<- audit.Event) *ChannelPublisher {
	return &ChannelPublisher{inbox: inbox}
}

func (p *ChannelPublisher) Emit(ctx context.Context, event audit.Event) error {
	select {
	case p.inbox <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
