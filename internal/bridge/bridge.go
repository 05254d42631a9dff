// Package bridge reaches the browser extension layer over the event
// bus. The extension-side bridge process subscribes to the request
// subjects below and answers with JSON replies; this package exposes
// those exchanges as the narrow ports the rest of paneld consumes: the
// platform identity broker and in-page script evaluation.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/lioncrest/paneld/internal/logging"
)

// Request subjects served by the extension bridge.
const (
	SubjectTokenGet    = "panel.bridge.token.get"
	SubjectTokenRemove = "panel.bridge.token.remove"
	SubjectPageEval    = "panel.bridge.page.eval"
)

// defaultTimeout bounds bridge round trips when the caller's context
// carries no deadline. Interactive token requests get longer since a
// human is in the loop.
const (
	defaultTimeout     = 10 * time.Second
	interactiveTimeout = 2 * time.Minute
)

// ErrBridgeUnavailable indicates the extension bridge is not listening.
var ErrBridgeUnavailable = errors.New("browser bridge unavailable")

// Client makes request-reply calls to the extension bridge. It
// implements auth.Broker and mailctx.PageScripter.
type Client struct {
	nc     *nats.Conn
	logger *logging.Logger
}

// New creates a bridge client over an established bus connection.
func New(nc *nats.Conn, logger *logging.Logger) (*Client, error) {
	if nc == nil {
		return nil, errors.New("nats connection is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Client{nc: nc, logger: logger.Named("bridge")}, nil
}

type tokenRequest struct {
	Interactive bool `json:"interactive"`
}

type tokenReply struct {
	Token string `json:"token,omitempty"`
	Error string `json:"error,omitempty"`
}

type removeRequest struct {
	Token string `json:"token"`
}

type removeReply struct {
	Error string `json:"error,omitempty"`
}

type evalRequest struct {
	TabID      int    `json:"tabId"`
	Expression string `json:"expression"`
}

type evalReply struct {
	Result string `json:"result"`
	Error  string `json:"error,omitempty"`
}

// request performs one bridge round trip with JSON encoding on both
// sides.
func (c *Client) request(ctx context.Context, subject string, payload, reply any, timeout time.Duration) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling bridge request: %w", err)
	}

	msg, err := c.nc.RequestWithContext(ctx, subject, data)
	if err != nil {
		bridgeErrors.WithLabelValues(subject).Inc()
		if errors.Is(err, nats.ErrNoResponders) {
			return ErrBridgeUnavailable
		}
		return fmt.Errorf("bridge request %s: %w", subject, err)
	}

	if err := json.Unmarshal(msg.Data, reply); err != nil {
		bridgeErrors.WithLabelValues(subject).Inc()
		return fmt.Errorf("decoding bridge reply for %s: %w", subject, err)
	}
	return nil
}

// GetToken asks the platform identity layer for an OAuth access token.
// Interactive requests may surface a consent prompt on the extension
// side; silent ones never do.
func (c *Client) GetToken(ctx context.Context, interactive bool) (string, error) {
	timeout := defaultTimeout
	if interactive {
		timeout = interactiveTimeout
	}

	var reply tokenReply
	if err := c.request(ctx, SubjectTokenGet, tokenRequest{Interactive: interactive}, &reply, timeout); err != nil {
		return "", err
	}
	if reply.Error != "" {
		return "", errors.New(reply.Error)
	}
	if reply.Token == "" {
		return "", errors.New("bridge returned no token")
	}
	return reply.Token, nil
}

// RemoveCachedToken drops a token from the platform's in-memory cache.
func (c *Client) RemoveCachedToken(ctx context.Context, token string) error {
	var reply removeReply
	if err := c.request(ctx, SubjectTokenRemove, removeRequest{Token: token}, &reply, defaultTimeout); err != nil {
		return err
	}
	if reply.Error != "" {
		return errors.New(reply.Error)
	}
	return nil
}

// Eval runs a read-only expression in a tab's page context.
func (c *Client) Eval(ctx context.Context, tabID int, expression string) (string, error) {
	var reply evalReply
	if err := c.request(ctx, SubjectPageEval, evalRequest{TabID: tabID, Expression: expression}, &reply, defaultTimeout); err != nil {
		return "", err
	}
	if reply.Error != "" {
		c.logger.Debug(ctx, "page eval failed on the extension side",
			zap.Int("tab.id", tabID),
			zap.String("bridge.error", reply.Error))
		return "", errors.New(reply.Error)
	}
	return reply.Result, nil
}
