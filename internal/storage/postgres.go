// Package storage implements the optional Postgres persistence and audit
// sinks. The rating service writes to them fire-and-forget; read queries
// exist for lane analytics.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/cybership/rating/internal/rating"
	"github.com/cybership/rating/pkg/carrier"
)

// Postgres wraps the quote and audit tables.
type Postgres struct {
	db     *sql.DB
	logger *otelzap.Logger
}

// Open connects to Postgres with conservative pool limits.
func Open(connString string, logger *otelzap.Logger) (*Postgres, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(30 * time.Second)

	return &Postgres{db: db, logger: logger}, nil
}

// Close releases the connection pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}

// SaveQuotes inserts all quotes for a request in one transaction, keyed by
// the request ID with the lane (origin/destination postal) attached.
func (p *Postgres) SaveQuotes(ctx context.Context, requestID string, quotes []carrier.RateQuote, originPostal, destPostal string) error {
	if len(quotes) == 0 {
		return nil
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO rate_quotes
			(request_id, carrier, service_name, service_level, total_price, currency, transit_days, origin_postal, dest_postal)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, q := range quotes {
		var transitDays sql.NullInt64
		if q.TransitDays > 0 {
			transitDays = sql.NullInt64{Int64: int64(q.TransitDays), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			requestID, q.Carrier, q.ServiceName, string(q.ServiceLevel),
			q.TotalPrice, q.Currency, transitDays, originPostal, destPostal,
		); err != nil {
			return fmt.Errorf("inserting quote: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing quotes: %w", err)
	}
	p.logger.Debug("Persisted rate quotes",
		zap.String("request_id", requestID),
		zap.Int("count", len(quotes)),
	)
	return nil
}

// RecentQuotes returns quotes for a lane inserted within the age window,
// ascending by price.
func (p *Postgres) RecentQuotes(ctx context.Context, originPostal, destPostal string, maxAge time.Duration) ([]carrier.RateQuote, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT carrier, service_name, service_level, total_price, currency, transit_days
		FROM rate_quotes
		WHERE origin_postal = $1
		  AND dest_postal = $2
		  AND created_at > NOW() - $3::interval
		ORDER BY total_price ASC`,
		originPostal, destPostal, fmt.Sprintf("%d seconds", int(maxAge.Seconds())))
	if err != nil {
		return nil, fmt.Errorf("querying recent quotes: %w", err)
	}
	defer rows.Close()

	var quotes []carrier.RateQuote
	for rows.Next() {
		var q carrier.RateQuote
		var level string
		var transitDays sql.NullInt64
		if err := rows.Scan(&q.Carrier, &q.ServiceName, &level, &q.TotalPrice, &q.Currency, &transitDays); err != nil {
			return nil, fmt.Errorf("scanning quote row: %w", err)
		}
		q.ServiceLevel = carrier.ServiceLevel(level)
		if transitDays.Valid {
			q.TransitDays = int(transitDays.Int64)
		}
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}

// LogOperation appends one audit entry for a carrier call.
func (p *Postgres) LogOperation(ctx context.Context, entry rating.AuditEntry) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO audit_log (request_id, carrier, operation, status, duration_ms, error_code, error_msg)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.RequestID, entry.Carrier, entry.Operation, entry.Status,
		entry.DurationMs, nullString(entry.ErrorCode), nullString(entry.ErrorMsg))
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var (
	_ rating.QuoteStore = (*Postgres)(nil)
	_ rating.AuditLog   = (*Postgres)(nil)
)
