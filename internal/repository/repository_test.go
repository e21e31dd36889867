package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nevelline/storefront/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

func setupTestDB(t *testing.T) (*Repository, func()) {
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)

	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	creds := &Credentials{
		Host:              host,
		Port:              port.Int(),
		User:              "testuser",
		Password:          "testpass",
		DBName:            "testdb",
		MigrationsDirPath: "./migrations",
	}

	repo, err := NewRepository(creds, zap.NewNop())
	require.NoError(t, err)

	err = repo.RunMigrations(creds)
	require.NoError(t, err)

	cleanup := func() {
		repo.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return repo, cleanup
}

func newAttempt(session string, at time.Time) domain.CheckoutAttempt {
	return domain.CheckoutAttempt{
		ID:              uuid.NewString(),
		SessionID:       session,
		State:           domain.CheckoutStateSubmitting,
		Total:           11200,
		ItemCount:       3,
		CartFingerprint: domain.Fingerprint([]domain.LineItem{{ProductID: "shirt-1", UnitPrice: 5000, Quantity: 2}}),
		CreatedAt:       at,
		UpdatedAt:       at,
	}
}

func TestRecord_InsertAndAdvance(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	start := time.Now().UTC().Truncate(time.Microsecond)
	a := newAttempt("session-1", start)
	require.NoError(t, repo.Record(ctx, a))

	a.State = domain.CheckoutStatePaymentInFlight
	a.OrderID = "65f0a1"
	a.OrderNumber = "NV-1001"
	a.Reference = "ORDER-NV-1001-1"
	a.UpdatedAt = start.Add(time.Second)
	require.NoError(t, repo.Record(ctx, a))

	got, err := repo.ListBySession(ctx, "session-1", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.CheckoutStatePaymentInFlight, got[0].State)
	assert.Equal(t, "NV-1001", got[0].OrderNumber)
	assert.Equal(t, "ORDER-NV-1001-1", got[0].Reference)
	assert.Equal(t, int64(11200), got[0].Total)
	assert.Empty(t, got[0].Error)
}

func TestRecord_StaleWriteIgnored(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	start := time.Now().UTC().Truncate(time.Microsecond)
	a := newAttempt("session-1", start)
	a.State = domain.CheckoutStatePaymentConfirmed
	a.UpdatedAt = start.Add(2 * time.Second)
	require.NoError(t, repo.Record(ctx, a))

	stale := a
	stale.State = domain.CheckoutStatePaymentInFlight
	stale.UpdatedAt = start.Add(time.Second)
	require.NoError(t, repo.Record(ctx, stale))

	got, err := repo.ListBySession(ctx, "session-1", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.CheckoutStatePaymentConfirmed, got[0].State)

	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, events, 1, "stale write queues no event")
}

func TestListBySession_Empty(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	got, err := repo.ListBySession(context.Background(), "nobody", 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestListByFingerprint_FindsDuplicates(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	start := time.Now().UTC().Truncate(time.Microsecond)
	first := newAttempt("session-1", start)
	first.OrderID = "65f0a1"
	second := newAttempt("session-1", start.Add(time.Minute))
	second.OrderID = "65f0a2"
	require.NoError(t, repo.Record(ctx, first))
	require.NoError(t, repo.Record(ctx, second))

	got, err := repo.ListByFingerprint(ctx, first.CartFingerprint)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "65f0a1", got[0].OrderID)
	assert.Equal(t, "65f0a2", got[1].OrderID)
}

func TestOutbox_UnprocessedAndMark(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	a := newAttempt("session-1", time.Now().UTC())
	require.NoError(t, repo.Record(ctx, a))

	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, a.ID, events[0].AggregateID)
	assert.Equal(t, "CheckoutAttempt.SUBMITTING", events[0].EventType)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(events[0].Payload, &payload))
	assert.Equal(t, "session-1", payload["session_id"])

	require.NoError(t, repo.MarkEventAsProcessed(ctx, events[0].ID))
	events, err = repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestEventType(t *testing.T) {
	assert.Equal(t, "CheckoutAttempt.PAYMENT_CONFIRMED", EventType(domain.CheckoutStatePaymentConfirmed))
}
