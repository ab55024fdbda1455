package events

import (
	"time"

	"go-bpm/internal/common/models"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"
)

type EventsController struct {
	Hub    *Hub
	Logger *zap.Logger
}

func NewEventsController(hub *Hub, logger *zap.Logger) *EventsController {
	return &EventsController{Hub: hub, Logger: logger}
}

// subscribe picks the tenants an actor may watch.
func (ctrl *EventsController) subscribe(actor *models.Actor) *Subscription {
	switch actor.Kind {
	case models.ActorAdmin:
		return ctrl.Hub.SubscribeAll()
	case models.ActorSupport:
		return ctrl.Hub.SubscribeTenants(actor.Support.AssignedCompanies)
	}
	tenantID, _ := actor.TenantID()
	return ctrl.Hub.Subscribe(tenantID)
}

// Stream pushes events to the socket until either side closes or the
// token the stream was opened with expires.
func (ctrl *EventsController) Stream(c *websocket.Conn) {
	actor, ok := c.Locals(string(models.ActorKey)).(*models.Actor)
	if !ok || actor == nil {
		_ = c.Close()
		return
	}
	deadline, _ := c.Locals(expiresLocal).(time.Time)

	sub := ctrl.subscribe(actor)
	defer ctrl.Hub.Unsubscribe(sub)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	expired, stop := expiryTimer(deadline)
	defer stop()

	log := ctrl.Logger.With(zap.String("actorId", actor.ID().Hex()), zap.String("actorKind", string(actor.Kind)))
	log.Debug("event stream opened")

	end := pump(sub.C, closed, expired, func(e Event) error { return c.WriteJSON(e) })
	if end == endExpired {
		_ = c.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "token expired"),
			time.Now().Add(time.Second))
		_ = c.Close()
	}
	log.Debug("event stream closed", zap.String("reason", end))
}

const (
	endClosed       = "closed"
	endExpired      = "token expired"
	endUnsubscribed = "unsubscribed"
	endWriteFailed  = "write failed"
)

// pump forwards events to write until the peer closes, the token expires,
// the subscription ends or a write fails, and reports which.
func pump(events <-chan Event, closed <-chan struct{}, expired <-chan time.Time, write func(Event) error) string {
	for {
		select {
		case <-closed:
			return endClosed
		case <-expired:
			return endExpired
		case e, ok := <-events:
			if !ok {
				return endUnsubscribed
			}
			if err := write(e); err != nil {
				return endWriteFailed
			}
		}
	}
}

// expiryTimer fires at deadline. A zero deadline never fires.
func expiryTimer(deadline time.Time) (<-chan time.Time, func()) {
	if deadline.IsZero() {
		return nil, func() {}
	}
	t := time.NewTimer(time.Until(deadline))
	return t.C, func() { t.Stop() }
}
