package infra

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx and applies the
// idempotent till schema. AutoMigrate is not used: the partial unique index on
// the open session and the decimal precisions are spelled out in SQL.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := applySchemaPatches(db); err != nil {
		return nil, fmt.Errorf("schema patches: %w", err)
	}

	return db, nil
}

// applySchemaPatches runs idempotent DDL. Each statement uses IF NOT EXISTS so
// re-running on an already-patched DB is safe.
func applySchemaPatches(db *gorm.DB) error {
	patches := []string{
		`CREATE TABLE IF NOT EXISTS register_sessions (
		    id            BIGSERIAL     PRIMARY KEY,
		    opened_at     TIMESTAMPTZ   NOT NULL,
		    opened_by     VARCHAR(100)  NOT NULL,
		    opening_float DECIMAL(12,2) NOT NULL CHECK (opening_float >= 0),
		    status        VARCHAR(10)   NOT NULL DEFAULT 'OPEN' CHECK (status IN ('OPEN', 'CLOSED')),
		    closed_at     TIMESTAMPTZ,
		    closed_by     VARCHAR(100),
		    expected_cash DECIMAL(12,2),
		    counted_cash  DECIMAL(12,2),
		    difference    DECIMAL(12,2),
		    notes         TEXT
		)`,
		// at most one OPEN session, across every API replica
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_register_sessions_single_open
		    ON register_sessions ((status)) WHERE status = 'OPEN'`,
		`CREATE INDEX IF NOT EXISTS idx_register_sessions_closed_at ON register_sessions (closed_at)`,
		`CREATE TABLE IF NOT EXISTS till_movements (
		    id             UUID          PRIMARY KEY,
		    session_id     BIGINT        NOT NULL REFERENCES register_sessions(id),
		    kind           VARCHAR(20)   NOT NULL,
		    amount         DECIMAL(12,2) NOT NULL CHECK (amount >= 0),
		    payment_method VARCHAR(10),
		    description    TEXT          NOT NULL DEFAULT '',
		    created_at     TIMESTAMPTZ   NOT NULL,
		    actor          VARCHAR(100)  NOT NULL,
		    cash_impact    DECIMAL(12,2) NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_till_movements_session ON till_movements (session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_till_movements_created_at ON till_movements (created_at)`,
		`CREATE TABLE IF NOT EXISTS discount_events (
		    id         UUID          PRIMARY KEY,
		    tab_id     BIGINT,
		    item_id    BIGINT,
		    reason     VARCHAR(100)  NOT NULL DEFAULT '',
		    actor      VARCHAR(100)  NOT NULL DEFAULT '',
		    amount     DECIMAL(12,2) NOT NULL CHECK (amount >= 0),
		    created_at TIMESTAMPTZ   NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_discount_events_created_at ON discount_events (created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_discount_events_tab ON discount_events (tab_id)`,
		`CREATE TABLE IF NOT EXISTS till_audit_log (
		    id         BIGSERIAL    PRIMARY KEY,
		    action     VARCHAR(20)  NOT NULL,
		    actor      VARCHAR(100) NOT NULL,
		    session_id BIGINT       REFERENCES register_sessions(id),
		    details    TEXT         NOT NULL DEFAULT '',
		    created_at TIMESTAMPTZ  NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_till_audit_log_created_at ON till_audit_log (created_at)`,
	}

	for _, sql := range patches {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", sql[:min(len(sql), 60)], err)
		}
	}
	return nil
}

// RunMigrations applies the schema for integration tests.
func RunMigrations(db *gorm.DB) error {
	return applySchemaPatches(db)
}
