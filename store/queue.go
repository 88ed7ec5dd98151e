package store

import (
	"context"
	"sync"
)

// Action is one deferred persistence step.
type Action = func(ctx context.Context) error

// Queue is the pending-action queue, ordered by first enqueue and
// de-duplicated by identifier.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Dedupe: a Put for an already-queued identifier replaces its action but
//   keeps its queue position, so only the latest value is ever persisted.
type Queue struct {
	mu      sync.Mutex
	order   []string
	actions map[string]Action
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{actions: make(map[string]Action)}
}

// Put enqueues or replaces the action for identifier.
func (q *Queue) Put(identifier string, action Action) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, queued := q.actions[identifier]; !queued {
		q.order = append(q.order, identifier)
	}
	q.actions[identifier] = action
}

// Take removes and returns the oldest queued action.
func (q *Queue) Take() (Action, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.order) > 0 {
		identifier := q.order[0]
		q.order = q.order[1:]
		action, ok := q.actions[identifier]
		if !ok {
			continue
		}
		delete(q.actions, identifier)
		return action, true
	}
	return nil, false
}

// Len returns the number of queued actions.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.actions)
}
