// Package avatar binds personas to remote avatar-rendering sessions and
// sequences their startup inside a room.
package avatar

import (
	"context"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrNotReady is returned when audio is pushed to a binding that has not
	// finished starting.
	ErrNotReady = errors.New("avatar not ready")
	// ErrClosed is returned by a binding that has been torn down.
	ErrClosed = errors.New("avatar binding closed")
)

// StartRequest asks the avatar service to join a room on behalf of a
// persona.
type StartRequest struct {
	AvatarID    string
	Room        string
	Identity    string
	DisplayName string
}

// Handle is a live avatar session.
type Handle interface {
	// PushAudio streams synthesized speech for the avatar to lip-sync and
	// publish into the room.
	PushAudio(ctx context.Context, audio io.Reader, format string) error
	Close(ctx context.Context) error
}

// Service starts avatar sessions. Start returns once the service has
// acknowledged the avatar is ready.
type Service interface {
	Start(ctx context.Context, req StartRequest) (Handle, error)
}

// ServiceFunc adapts a function to Service.
type ServiceFunc func(ctx context.Context, req StartRequest) (Handle, error)

// Start calls f.
func (f ServiceFunc) Start(ctx context.Context, req StartRequest) (Handle, error) {
	return f(ctx, req)
}

// StartError reports a failed avatar start for a persona.
type StartError struct {
	Persona  string
	AvatarID string
	Err      error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("avatar %s for persona %s failed to start: %v", e.AvatarID, e.Persona, e.Err)
}

func (e *StartError) Unwrap() error { return e.Err }
