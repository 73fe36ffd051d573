package infra

import (
	"fmt"

	"github.com/funkypatns/Progym-sub001/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx, runs AutoMigrate to
// create / update all tables, then applies any idempotent SQL patches that GORM
// cannot express (partial indexes mostly).
//
// TranslateError is required: shift opening relies on gorm.ErrDuplicatedKey
// being surfaced when the one-open-shift-per-register index fires.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
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

	if err := RunMigrations(db); err != nil {
		return nil, err
	}

	return db, nil
}

// RunMigrations applies the schema. Also used by integration tests against a
// throwaway container.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.User{},
		&model.Register{},
		&model.Shift{},
		&model.Payment{},
		&model.Refund{},
		&model.CashMovement{},
		&model.CashClosing{},
		&model.ClosingAdjustment{},
		&model.AuditLog{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL statements that GORM AutoMigrate cannot
// express. Each statement is guarded by an existence check so re-running on an
// already-patched DB is a no-op.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		// At most one open shift per register. The application treats the
		// resulting duplicate-key error as a SHIFT_CONFLICT.
		{"partial unique index: one open shift per register", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'uniq_shifts_open_register') THEN
    CREATE UNIQUE INDEX uniq_shifts_open_register
        ON shifts (register_id)
        WHERE status = 'open';
  END IF;
END $$`},
		// Ledger window scans hit these three orderings constantly.
		{"payments paid_at index", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_payments_paid_at') THEN
    CREATE INDEX idx_payments_paid_at ON payments (paid_at);
  END IF;
END $$`},
		{"refunds refunded_at index", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_refunds_refunded_at') THEN
    CREATE INDEX idx_refunds_refunded_at ON refunds (refunded_at);
  END IF;
END $$`},
		{"cash_movements created_at index", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_cash_movements_created_at') THEN
    CREATE INDEX idx_cash_movements_created_at ON cash_movements (created_at);
  END IF;
END $$`},
		// Overlap checks and LastPeriodEnd both filter on scope then order by end_at.
		{"cash_closings scope/end_at index", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_cash_closings_scope_end') THEN
    CREATE INDEX idx_cash_closings_scope_end
        ON cash_closings (employee_id, end_at DESC);
  END IF;
END $$`},
	}

	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}
