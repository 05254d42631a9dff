package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/nats-io/nats.go"

	"github.com/lioncrest/paneld/internal/mailctx"
	"github.com/lioncrest/paneld/internal/router"
)

// heartbeatInterval keeps SSE connections alive through proxies.
const heartbeatInterval = 30 * time.Second

// handleEvents streams THREAD_CHANGED broadcasts to the panel via
// Server-Sent Events. The first event is the currently held context so
// a freshly opened panel renders without waiting for a navigation.
//
//	event: context
//	data: {"threadId":"18c2f0a1b2d3e4f5","accountIndex":1}
//
// The stream stays open until the client disconnects.
func (s *Server) handleEvents(c echo.Context) error {
	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")

	msgChan := make(chan *nats.Msg, 10)
	sub, err := s.deps.Bus.ChanSubscribe(mailctx.SubjectThreadChanged, msgChan)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, router.Fail(err))
	}
	defer func() {
		_ = sub.Unsubscribe()
	}()

	sseClients.Inc()
	defer sseClients.Dec()

	// Snapshot first, so late subscribers see the current state.
	if err := writeEvent(c, "context", s.deps.Broadcaster.Current()); err != nil {
		return nil
	}

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case msg := <-msgChan:
			fmt.Fprintf(c.Response(), "event: context\n")
			fmt.Fprintf(c.Response(), "data: %s\n\n", string(msg.Data))
			c.Response().Flush()

		case <-ticker.C:
			fmt.Fprintf(c.Response(), ": heartbeat\n\n")
			c.Response().Flush()

		case <-c.Request().Context().Done():
			return nil
		}
	}
}

func writeEvent(c echo.Context, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(c.Response(), "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	c.Response().Flush()
	return nil
}
