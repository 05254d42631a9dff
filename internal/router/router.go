// Package router dispatches typed panel messages to their handlers and
// wraps every result in a uniform response envelope, so callers always
// receive a well-formed reply even when a handler fails or panics.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/lioncrest/paneld/internal/logging"
	"github.com/lioncrest/paneld/internal/mailctx"
)

// MessageType identifies a panel request.
type MessageType string

const (
	// TypeGetContext asks for the current thread context.
	TypeGetContext MessageType = "GET_CONTEXT"
	// TypeAuthStart begins an interactive sign-in.
	TypeAuthStart MessageType = "AUTH_START"
	// TypeAuthStatus reports whether a user is signed in.
	TypeAuthStatus MessageType = "AUTH_STATUS"
	// TypeGetToken returns a valid access token, refreshing silently if needed.
	TypeGetToken MessageType = "GET_TOKEN"
	// TypeSignOut revokes and clears the active session.
	TypeSignOut MessageType = "SIGN_OUT"
)

// Message is an incoming panel request. Payload is reserved for message
// types that carry arguments; the current set needs none.
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Envelope is the uniform reply shape. Success responses carry their
// payload fields alongside "success": true; failures carry only the
// error string.
type Envelope map[string]any

// OK builds a success envelope from the given payload fields.
func OK(fields map[string]any) Envelope {
	env := Envelope{"success": true}
	for k, v := range fields {
		env[k] = v
	}
	return env
}

// Fail builds a failure envelope.
func Fail(err error) Envelope {
	return Envelope{"success": false, "error": err.Error()}
}

// Handler processes one message and returns payload fields for the
// success envelope.
type Handler func(ctx context.Context, msg Message) (map[string]any, error)

// ContextSource yields the most recent thread context. The broadcaster
// satisfies this.
type ContextSource interface {
	Current() mailctx.ThreadContext
}

// Authenticator is the slice of the auth controller the router needs.
type Authenticator interface {
	SignIn(ctx context.Context) (string, error)
	AccessToken(ctx context.Context) (string, error)
	Status(ctx context.Context) (signedIn bool, email string, err error)
	SignOut(ctx context.Context) error
}

// Router routes messages by type.
type Router struct {
	mu       sync.RWMutex
	handlers map[MessageType]Handler
	logger   *logging.Logger
}

// New creates a router with the standard panel handlers registered.
func New(contexts ContextSource, authn Authenticator, logger *logging.Logger) (*Router, error) {
	if contexts == nil {
		return nil, errors.New("context source is required")
	}
	if authn == nil {
		return nil, errors.New("authenticator is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	r := &Router{
		handlers: make(map[MessageType]Handler),
		logger:   logger.Named("router"),
	}

	r.Register(TypeGetContext, func(ctx context.Context, _ Message) (map[string]any, error) {
		// The context's own fields sit at the top level of the reply:
		// {threadId, accountIndex, success}.
		return contextFields(contexts.Current())
	})
	r.Register(TypeAuthStart, func(ctx context.Context, _ Message) (map[string]any, error) {
		email, err := authn.SignIn(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"email": email}, nil
	})
	r.Register(TypeAuthStatus, func(ctx context.Context, _ Message) (map[string]any, error) {
		signedIn, email, err := authn.Status(ctx)
		if err != nil {
			return nil, err
		}
		fields := map[string]any{"signedIn": signedIn}
		if signedIn {
			fields["email"] = email
		}
		return fields, nil
	})
	r.Register(TypeGetToken, func(ctx context.Context, _ Message) (map[string]any, error) {
		token, err := authn.AccessToken(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"accessToken": token}, nil
	})
	r.Register(TypeSignOut, func(ctx context.Context, _ Message) (map[string]any, error) {
		if err := authn.SignOut(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	})

	return r, nil
}

// contextFields flattens a thread context into reply envelope fields.
// It goes through the context's JSON form so the null-threadId
// convention carries over.
func contextFields(tc mailctx.ThreadContext) (map[string]any, error) {
	raw, err := json.Marshal(tc)
	if err != nil {
		return nil, err
	}
	fields := make(map[string]any)
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// Register installs a handler for a message type, replacing any existing one.
func (r *Router) Register(t MessageType, h Handler) {
	if t == "" || h == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[t] = h
}

// Dispatch routes a message to its handler and returns the reply
// envelope. Unknown message types are a no-op success so that newer
// panels can probe for capabilities without breaking. Handler panics
// are converted into failure envelopes.
func (r *Router) Dispatch(ctx context.Context, msg Message) (env Envelope) {
	messagesTotal.WithLabelValues(string(msg.Type)).Inc()

	defer func() {
		if rec := recover(); rec != nil {
			handlerPanics.WithLabelValues(string(msg.Type)).Inc()
			r.logger.Error(ctx, "message handler panicked",
				zap.String("message.type", string(msg.Type)),
				zap.Any("panic", rec))
			env = Fail(fmt.Errorf("internal error handling %s", msg.Type))
		}
	}()

	r.mu.RLock()
	handler, ok := r.handlers[msg.Type]
	r.mu.RUnlock()

	if !ok {
		r.logger.Debug(ctx, "ignoring unknown message type",
			zap.String("message.type", string(msg.Type)))
		return OK(nil)
	}

	fields, err := handler(ctx, msg)
	if err != nil {
		messageErrors.WithLabelValues(string(msg.Type)).Inc()
		r.logger.Warn(ctx, "message handler failed",
			zap.String("message.type", string(msg.Type)),
			zap.Error(err))
		return Fail(err)
	}
	return OK(fields)
}

// DispatchJSON decodes a raw message and dispatches it. Malformed JSON
// yields a failure envelope rather than an error so transports can
// forward the reply unconditionally.
func (r *Router) DispatchJSON(ctx context.Context, raw []byte) Envelope {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Fail(fmt.Errorf("malformed message: %w", err))
	}
	return r.Dispatch(ctx, msg)
}
