package command

import (
	"context"
	"fmt"

	"fediclock/internal/custom_errors"
)

// Handler resolves one command invocation into substitution text.
type Handler func(ctx context.Context, args []string) (string, error)

// Registry is a closed mapping from command name to handler. Names are
// resolved against this map only; there is no dynamic lookup, so content
// templates can never reach code that was not explicitly registered.
type Registry struct {
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

func (r *Registry) Register(name string, handler Handler) {
	r.handlers[name] = handler
}

func (r *Registry) Resolve(name string) (Handler, error) {
	handler, ok := r.handlers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", custom_errors.ErrUnknownCommand, name)
	}
	return handler, nil
}
