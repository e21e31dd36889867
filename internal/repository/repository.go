package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/nevelline/storefront/internal/domain"
	"go.uber.org/zap"
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// OutboxEvent is a journaled attempt transition waiting to be published.
type OutboxEvent struct {
	ID          int64
	AggregateID string
	EventType   string
	Payload     json.RawMessage
	CreatedAt   time.Time
}

type Repository struct {
	db     *sql.DB
	logger *zap.Logger
}

type RepoInterface interface {
	Close() error
	RunMigrations(*Credentials) error
	Record(ctx context.Context, attempt domain.CheckoutAttempt) error
	ListBySession(ctx context.Context, sessionID string, limit int) ([]domain.CheckoutAttempt, error)
	ListByFingerprint(ctx context.Context, fingerprint string) ([]domain.CheckoutAttempt, error)
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
}

func NewRepository(cred *Credentials, logger *zap.Logger) (*Repository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	logger.Info("connected to postgres", zap.String("host", cred.Host), zap.String("db", cred.DBName))
	return &Repository{db: db, logger: logger}, nil
}

func (r *Repository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// EventType names the outbox event for an attempt entering state.
func EventType(state domain.CheckoutState) string {
	return "CheckoutAttempt." + state.String()
}

// Record upserts the attempt and queues an outbox event in one transaction.
// A write older than the stored row is ignored, so late journal writes never regress state.
func (r *Repository) Record(ctx context.Context, a domain.CheckoutAttempt) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal attempt: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	upsert := `
		INSERT INTO checkout_attempts
			(id, session_id, state, order_id, order_number, reference, total, item_count,
			 cart_fingerprint, error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			state = EXCLUDED.state,
			order_id = EXCLUDED.order_id,
			order_number = EXCLUDED.order_number,
			reference = EXCLUDED.reference,
			error = EXCLUDED.error,
			updated_at = EXCLUDED.updated_at
		WHERE checkout_attempts.updated_at <= EXCLUDED.updated_at`

	res, err := tx.ExecContext(ctx, upsert,
		a.ID, a.SessionID, string(a.State), nullable(a.OrderID), nullable(a.OrderNumber),
		nullable(a.Reference), a.Total, a.ItemCount, a.CartFingerprint, nullable(a.Error),
		a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert checkout attempt: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		r.logger.Debug("stale attempt write ignored", zap.String("attempt_id", a.ID), zap.String("state", a.State.String()))
		return nil
	}

	outbox := `INSERT INTO attempt_outbox (aggregate_id, event_type, payload) VALUES ($1, $2, $3)`
	if _, err := tx.ExecContext(ctx, outbox, a.ID, EventType(a.State), payload); err != nil {
		return fmt.Errorf("failed to queue attempt event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit attempt: %w", err)
	}
	return nil
}

const attemptColumns = `id, session_id, state, order_id, order_number, reference, total, item_count,
	cart_fingerprint, error, created_at, updated_at`

func (r *Repository) ListBySession(ctx context.Context, sessionID string, limit int) ([]domain.CheckoutAttempt, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + attemptColumns + ` FROM checkout_attempts
		WHERE session_id = $1 ORDER BY created_at DESC LIMIT $2`
	return r.queryAttempts(ctx, query, sessionID, limit)
}

// ListByFingerprint returns every attempt made for the same cart contents, oldest first.
// More than one attempt with an order id points at duplicate orders.
func (r *Repository) ListByFingerprint(ctx context.Context, fingerprint string) ([]domain.CheckoutAttempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM checkout_attempts
		WHERE cart_fingerprint = $1 ORDER BY created_at ASC`
	return r.queryAttempts(ctx, query, fingerprint)
}

func (r *Repository) queryAttempts(ctx context.Context, query string, args ...interface{}) ([]domain.CheckoutAttempt, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query checkout attempts: %w", err)
	}
	defer rows.Close()

	attempts := []domain.CheckoutAttempt{}
	for rows.Next() {
		var (
			a                                   domain.CheckoutAttempt
			state                               string
			orderID, orderNumber, ref, errorMsg sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.SessionID, &state, &orderID, &orderNumber, &ref,
			&a.Total, &a.ItemCount, &a.CartFingerprint, &errorMsg, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan checkout attempt: %w", err)
		}
		a.State = domain.CheckoutState(state)
		a.OrderID = orderID.String
		a.OrderNumber = orderNumber.String
		a.Reference = ref.String
		a.Error = errorMsg.String
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate checkout attempts: %w", err)
	}
	return attempts, nil
}

func (r *Repository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	query := `SELECT id, aggregate_id, event_type, payload, created_at
		FROM attempt_outbox WHERE processed_at IS NULL ORDER BY id LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query outbox: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		e := &OutboxEvent{}
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *Repository) MarkEventAsProcessed(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE attempt_outbox SET processed_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark event %d as processed: %w", id, err)
	}
	return nil
}
