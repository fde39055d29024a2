package handlers

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/realtime"
	"github.com/spec-kit/support-desk/internal/service"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// LiveHandler streams ReceiveReply frames of one ticket over a websocket.
type LiveHandler struct {
	tickets      *service.TicketService
	hub          *realtime.Hub
	clock        clockwork.Clock
	writeTimeout time.Duration
	logger       *zap.Logger
}

// NewLiveHandler builds handler.
func NewLiveHandler(tickets *service.TicketService, hub *realtime.Hub, clock clockwork.Clock, writeTimeout time.Duration, logger *zap.Logger) *LiveHandler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LiveHandler{tickets: tickets, hub: hub, clock: clock, writeTimeout: writeTimeout, logger: logger}
}

// Authorize admits an upgrade request only for callers allowed to read the ticket.
func (h *LiveHandler) Authorize(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.tickets.CanWatch(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.Next()
}

// Stream GET /ws/tickets/:id.
func (h *LiveHandler) Stream() fiber.Handler {
	return websocket.New(h.serve)
}

func (h *LiveHandler) serve(conn *websocket.Conn) {
	ticketID := conn.Params("id")
	sub := h.hub.Subscribe(realtime.TicketTopic(ticketID))
	defer sub.Close()

	// Reads only detect the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case msg, ok := <-sub.C():
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(h.writeDeadline())
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Debug("live frame not delivered",
					zap.String("ticket_id", ticketID),
					zap.Error(err))
				return
			}
		}
	}
}

func (h *LiveHandler) writeDeadline() time.Time {
	return h.clock.Now().Add(h.writeTimeout)
}
