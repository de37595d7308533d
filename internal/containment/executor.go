// Package containment executes named remediation actions against
// targets. Handlers are registered by name; the executor records
// outcomes without holding any incident lock, so slow external calls
// never block other mutations.
package containment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Handler performs one remediation action. Implementations may call
// slow external systems and must honor context cancellation.
type Handler func(ctx context.Context, target string, params map[string]any) (map[string]any, error)

// ErrCancelled marks an action interrupted by context cancellation.
// The incident service records it on the action as a terminal failure.
var ErrCancelled = errors.New("cancelled")

// Executor is a name-to-handler registry of containment actions.
type Executor struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	timeout  time.Duration
}

// NewExecutor creates an executor with the built-in action set.
func NewExecutor(timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	e := &Executor{
		handlers: make(map[string]Handler),
		timeout:  timeout,
	}
	e.registerBuiltins()
	return e
}

// Register binds a handler to an action name, replacing any prior one.
func (e *Executor) Register(action string, h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[action] = h
}

// Known reports whether an action name has a handler. Unknown names are
// rejected up front rather than silently no-op'd.
func (e *Executor) Known(action string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.handlers[action]
	return ok
}

// Actions returns the sorted names of all registered actions.
func (e *Executor) Actions() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	names := make([]string, 0, len(e.handlers))
	for name := range e.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute runs the named action. Cancellation surfaces as ErrCancelled
// so the caller records a terminal failed state on the action record.
func (e *Executor) Execute(ctx context.Context, action, target string, params map[string]any) (map[string]any, error) {
	e.mu.RLock()
	handler, ok := e.handlers[action]
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no handler for action %q", action)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	slog.Debug("executing containment action", "action", action, "target", target)

	result, err := handler(ctx, target, params)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s", ErrCancelled, action)
		}
		return nil, err
	}
	return result, nil
}
