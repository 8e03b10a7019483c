package jsonline

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"

	"confdesk/internal/domain"
	"confdesk/internal/repository/postgres"
	"confdesk/internal/services"
)

// Invocation is one resolved input line, deferred until the loop supplies
// the live session. Lines that never reach a handler (malformed envelope,
// unknown command) carry their result already.
type Invocation struct {
	// Name is the command name; empty when the envelope was malformed.
	Name string
	Args domain.Args
	// Open marks the session-establishing command, which the loop
	// evaluates itself because it produces the session.
	Open bool

	pre     *domain.Result
	handler services.Handler
}

// Run evaluates the invocation against the session the loop holds. Not used
// for Open invocations.
func (inv Invocation) Run(ctx context.Context, sess *postgres.Session) *domain.Result {
	if inv.pre != nil {
		return inv.pre
	}
	return inv.handler(ctx, sess, inv.Args)
}

// Dispatcher turns input lines into deferred invocations against the fixed
// command registry.
type Dispatcher struct {
	registry *services.Registry
	log      *slog.Logger
}

func NewDispatcher(registry *services.Registry, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{registry: registry, log: logger}
}

// Resolve parses one line. The request envelope must be a JSON object with
// exactly one key, the command name; anything else is the invalid-input
// pseudo-command. The value under the key is the argument document; a value
// of a different shape just leaves every argument empty.
func (d *Dispatcher) Resolve(line []byte) Invocation {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()
	var doc map[string]json.RawMessage
	if err := dec.Decode(&doc); err != nil || dec.More() || len(doc) != 1 {
		d.log.Warn("invalid input line")
		return Invocation{pre: domain.NotImplemented()}
	}

	var name string
	var raw json.RawMessage
	for k, v := range doc {
		name, raw = k, v
	}

	args := domain.Args{}
	adec := json.NewDecoder(bytes.NewReader(raw))
	adec.UseNumber()
	if err := adec.Decode(&args); err != nil {
		args = domain.Args{}
	}

	if name == "open" {
		return Invocation{Name: name, Args: args, Open: true}
	}
	handler, ok := d.registry.Lookup(name)
	if !ok {
		d.log.Warn("unknown command", "name", name)
		return Invocation{Name: name, pre: domain.NotImplemented()}
	}
	return Invocation{Name: name, Args: args, handler: handler}
}
