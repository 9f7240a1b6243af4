// Package worker routes jobs to named entrypoints. A routing key is an agent
// name, optionally followed by ":port".
package worker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrUnknownRoute matches every *UnknownRouteError.
var ErrUnknownRoute = errors.New("unknown route")

// UnknownRouteError reports a routing key that selects no entrypoint.
type UnknownRouteError struct {
	Key   string
	Known []string
}

func (e *UnknownRouteError) Error() string {
	if e.Key == "" {
		return "empty routing key"
	}
	if len(e.Known) == 0 {
		return fmt.Sprintf("no entrypoint registered for %q", e.Key)
	}
	return fmt.Sprintf("no entrypoint registered for %q (known: %s)", e.Key, strings.Join(e.Known, ", "))
}

func (e *UnknownRouteError) Is(target error) bool { return target == ErrUnknownRoute }

// Job is one dispatched run of an entrypoint.
type Job struct {
	ID        string
	AgentName string
	Port      int
	Room      string
}

// Entrypoint runs a job until its conversation ends.
type Entrypoint func(ctx context.Context, job Job) error

type route struct {
	name  string
	port  int
	entry Entrypoint
}

// Registry maps agent names to entrypoints.
type Registry struct {
	mu     sync.RWMutex
	routes map[string]route
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{routes: make(map[string]route)}
}

// Register adds an entrypoint under name. A non-zero port must then match
// any port given in a routing key.
func (r *Registry) Register(name string, port int, entry Entrypoint) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("entrypoint name is required")
	}
	if strings.Contains(name, ":") {
		return fmt.Errorf("entrypoint name %q must not contain ':'", name)
	}
	if entry == nil {
		return fmt.Errorf("entrypoint %q is nil", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.routes[name]; dup {
		return fmt.Errorf("entrypoint %q already registered", name)
	}
	r.routes[name] = route{name: name, port: port, entry: entry}
	return nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.routes))
	for n := range r.routes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Resolve parses key and returns the job template and entrypoint it selects.
// Anything that does not match exactly is an *UnknownRouteError.
func (r *Registry) Resolve(key string) (Job, Entrypoint, error) {
	name, port, err := parseKey(key)
	if err != nil {
		return Job{}, nil, err
	}

	r.mu.RLock()
	rt, ok := r.routes[name]
	r.mu.RUnlock()
	if !ok || (port != 0 && port != rt.port) {
		return Job{}, nil, &UnknownRouteError{Key: key, Known: r.Names()}
	}
	return Job{AgentName: rt.name, Port: rt.port}, rt.entry, nil
}

// Dispatch resolves key and runs the entrypoint for a new job in room.
func (r *Registry) Dispatch(ctx context.Context, key, room string) error {
	job, entry, err := r.Resolve(key)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("Refusing job")
		return err
	}
	job.ID = uuid.NewString()
	job.Room = room

	logger := log.With().Str("job", job.ID).Str("agent", job.AgentName).Str("room", room).Logger()
	logger.Info().Msg("Job started")
	if err := entry(ctx, job); err != nil {
		logger.Error().Err(err).Msg("Job failed")
		return fmt.Errorf("job %s (%s): %w", job.ID, job.AgentName, err)
	}
	logger.Info().Msg("Job finished")
	return nil
}

func parseKey(key string) (string, int, error) {
	k := strings.TrimSpace(key)
	if k == "" {
		return "", 0, &UnknownRouteError{Key: key}
	}
	name, portStr, hasPort := strings.Cut(k, ":")
	if !hasPort {
		return name, 0, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 || name == "" {
		return "", 0, &UnknownRouteError{Key: key}
	}
	return name, port, nil
}
