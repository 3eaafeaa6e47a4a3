package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

type migration struct {
	name string
	sql  string
}

var migrations = []migration{
	{
		name: "001_create_rate_quotes",
		sql: `
CREATE TABLE IF NOT EXISTS rate_quotes (
	id            SERIAL PRIMARY KEY,
	request_id    VARCHAR(64) NOT NULL,
	carrier       VARCHAR(32) NOT NULL,
	service_name  VARCHAR(128) NOT NULL,
	service_level VARCHAR(32) NOT NULL,
	total_price   DECIMAL(10, 2) NOT NULL,
	currency      VARCHAR(3) NOT NULL DEFAULT 'USD',
	transit_days  INTEGER,
	origin_postal VARCHAR(20),
	dest_postal   VARCHAR(20),
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

-- look up quotes by request
CREATE INDEX IF NOT EXISTS idx_rate_quotes_request_id
	ON rate_quotes(request_id);

-- lane analytics: "what rates did we get for this lane?"
CREATE INDEX IF NOT EXISTS idx_rate_quotes_lane
	ON rate_quotes(origin_postal, dest_postal, carrier);
`,
	},
	{
		name: "002_create_audit_log",
		sql: `
CREATE TABLE IF NOT EXISTS audit_log (
	id          SERIAL PRIMARY KEY,
	request_id  VARCHAR(64) NOT NULL,
	carrier     VARCHAR(32) NOT NULL,
	operation   VARCHAR(32) NOT NULL,
	status      VARCHAR(16) NOT NULL,
	duration_ms INTEGER,
	error_code  VARCHAR(32),
	error_msg   TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_audit_log_request_id
	ON audit_log(request_id);
`,
	},
}

// Migrate applies the schema migrations in order.
func (p *Postgres) Migrate(ctx context.Context) error {
	for _, m := range migrations {
		if _, err := p.db.ExecContext(ctx, m.sql); err != nil {
			return fmt.Errorf("migration %s: %w", m.name, err)
		}
		p.logger.Info("Applied migration", zap.String("name", m.name))
	}
	return nil
}
