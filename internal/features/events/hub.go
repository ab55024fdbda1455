package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Event is a change notification. Payload is never the stored document, only ids.
type Event struct {
	ID        string             `json:"id"`
	Type      string             `json:"type"`
	TenantID  primitive.ObjectID `json:"tenantId"`
	SubjectID primitive.ObjectID `json:"subjectId"`
	ActorID   primitive.ObjectID `json:"actorId,omitempty"`
	At        time.Time          `json:"at"`
}

const (
	NodeAdded          = "structure.node_added"
	NodeRenamed        = "structure.node_renamed"
	NodeDeleted        = "structure.node_deleted"
	ProcessesAssigned  = "structure.processes_assigned"
	ProcessUnassigned  = "structure.process_unassigned"
	ProcessCreated     = "process.created"
	ProcessUpdated     = "process.updated"
	ProcessDeleted     = "process.deleted"
	ProcessVerified    = "process.verified"
	ProcessUnverified  = "process.unverified"
	LinksReconciled    = "reconcile.links_repaired"
	subscriberBuffer   = 64
)

type Publisher interface {
	Publish(e Event)
}

// Subscription receives events for one tenant, or all tenants when global.
type Subscription struct {
	C        <-chan Event
	ch       chan Event
	tenantID primitive.ObjectID
	global   bool
	tenants  map[primitive.ObjectID]struct{}
}

// Hub fans events out to websocket subscribers. Publish never blocks: a slow
// subscriber drops events once its buffer is full.
type Hub struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		subs:   make(map[*Subscription]struct{}),
		logger: logger,
	}
}

// NewPublisher exposes the hub as a Publisher for fx.
func NewPublisher(h *Hub) Publisher {
	return h
}

func (h *Hub) Publish(e Event) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs {
		if !s.wants(e.TenantID) {
			continue
		}
		select {
		case s.ch <- e:
		default:
			h.logger.Warn("event dropped for slow subscriber", zap.String("type", e.Type))
		}
	}
}

// Subscribe registers a tenant-scoped subscriber.
func (h *Hub) Subscribe(tenantID primitive.ObjectID) *Subscription {
	return h.add(&Subscription{tenantID: tenantID})
}

// SubscribeTenants registers a subscriber for a fixed set of tenants.
func (h *Hub) SubscribeTenants(tenantIDs []primitive.ObjectID) *Subscription {
	set := make(map[primitive.ObjectID]struct{}, len(tenantIDs))
	for _, id := range tenantIDs {
		set[id] = struct{}{}
	}
	return h.add(&Subscription{tenants: set})
}

// SubscribeAll registers a subscriber for every tenant.
func (h *Hub) SubscribeAll() *Subscription {
	return h.add(&Subscription{global: true})
}

func (h *Hub) add(s *Subscription) *Subscription {
	s.ch = make(chan Event, subscriberBuffer)
	s.C = s.ch

	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	return s
}

func (h *Hub) Unsubscribe(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[s]; ok {
		delete(h.subs, s)
		close(s.ch)
	}
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (s *Subscription) wants(tenantID primitive.ObjectID) bool {
	if s.global {
		return true
	}
	if s.tenants != nil {
		_, ok := s.tenants[tenantID]
		return ok
	}
	return s.tenantID == tenantID
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(Event) {}
