package events

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"go-bpm/internal/common/apperr"
	"go-bpm/internal/common/models"
	"go-bpm/internal/config"
	"go-bpm/pkg/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type stubResolver map[string]*models.Actor

func (r stubResolver) ResolveActor(_ context.Context, claims *utils.ActorClaims) (*models.Actor, error) {
	a, ok := r[claims.Subject]
	if !ok {
		return nil, apperr.AuthFailure("Account not found")
	}
	return a, nil
}

func TestEventsHandshakeRequiresUpgradeAndToken(t *testing.T) {
	signer := utils.NewTokenSigner(&config.Config{
		OwnerTokenSecret: "o", EmployeeSecret: "e", AdminTokenSecret: "a", SupportSecret: "s",
		TokenTTL: time.Hour,
	})
	hub := NewHub(zap.NewNop())
	app := fiber.New()
	NewEventsApi(NewEventsController(hub, zap.NewNop()), signer, stubResolver{}).Setup(app)

	upgrade := func(path string) int {
		req := httptest.NewRequest("GET", path, nil)
		req.Header.Set("Connection", "Upgrade")
		req.Header.Set("Upgrade", "websocket")
		req.Header.Set("Sec-WebSocket-Version", "13")
		req.Header.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		return resp.StatusCode
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/ws/events", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)

	assert.Equal(t, fiber.StatusUnauthorized, upgrade("/ws/events"))
	assert.Equal(t, fiber.StatusUnauthorized, upgrade("/ws/events?token=garbage"))

	stranger, err := signer.GenerateToken(models.ActorOwner, primitive.NewObjectID().Hex())
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, upgrade("/ws/events?token="+stranger))
	assert.Zero(t, hub.Subscribers())
}

func TestSubscribeByActorKind(t *testing.T) {
	hub := NewHub(zap.NewNop())
	ctrl := NewEventsController(hub, zap.NewNop())
	tenant := primitive.NewObjectID()
	other := primitive.NewObjectID()

	owner := ctrl.subscribe(models.OwnerActor(&models.Business{ID: tenant}))
	employee := ctrl.subscribe(models.EmployeeActor(&models.Employee{ID: primitive.NewObjectID(), BusinessID: tenant}))
	support := ctrl.subscribe(models.SupportActor(&models.Support{AssignedCompanies: []primitive.ObjectID{other}}))
	admin := ctrl.subscribe(models.AdminActor(&models.Admin{}))

	hub.Publish(Event{Type: NodeAdded, TenantID: tenant})

	assert.Len(t, owner.C, 1)
	assert.Len(t, employee.C, 1)
	assert.Len(t, support.C, 0)
	assert.Len(t, admin.C, 1)
}

func TestPumpEndsWhenTokenExpires(t *testing.T) {
	events := make(chan Event, 4)
	events <- Event{Type: NodeAdded}
	expired, stop := expiryTimer(time.Now().Add(20 * time.Millisecond))
	defer stop()

	var written []Event
	done := make(chan string)
	go func() {
		done <- pump(events, make(chan struct{}), expired, func(e Event) error {
			written = append(written, e)
			return nil
		})
	}()

	select {
	case end := <-done:
		assert.Equal(t, endExpired, end)
	case <-time.After(2 * time.Second):
		t.Fatal("stream outlived its token")
	}
	assert.Len(t, written, 1)
}

func TestPumpEndReasons(t *testing.T) {
	closed := make(chan struct{})
	close(closed)
	assert.Equal(t, endClosed, pump(make(chan Event), closed, nil, nil))

	events := make(chan Event)
	close(events)
	assert.Equal(t, endUnsubscribed, pump(events, make(chan struct{}), nil, nil))

	failing := make(chan Event, 1)
	failing <- Event{Type: NodeAdded}
	assert.Equal(t, endWriteFailed, pump(failing, make(chan struct{}), nil, func(Event) error {
		return apperr.AuthFailure("gone")
	}))
}

func TestExpiryTimer(t *testing.T) {
	never, stop := expiryTimer(time.Time{})
	stop()
	assert.Nil(t, never)

	past, stop := expiryTimer(time.Now().Add(-time.Second))
	defer stop()
	select {
	case <-past:
	case <-time.After(time.Second):
		t.Fatal("past deadline did not fire")
	}
}
