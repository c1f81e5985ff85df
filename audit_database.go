package nftkit

import (
	"context"

	"github.com/fernandezvara/dbkit"
	"github.com/uptrace/bun"
)

// DatabaseAuditLog persists audit entries to PostgreSQL through dbkit.
//
// Error Handling:
// Database errors are wrapped with dbkit's chainable error context, so callers
// can classify them with dbkit.IsNotFound, dbkit.IsDuplicate and friends. When
// used as a ledger's AuditLogger a failed insert aborts the mutation and
// surfaces as ErrAuditFailed.
type DatabaseAuditLog struct {
	db dbkit.IDB
}

// NewDatabaseAuditLog creates an audit sink backed by db.
//
// Example:
//
//	db, _ := dbkit.New(dbkit.Config{URL: "postgres://..."})
//	audit := nftkit.NewDatabaseAuditLog(db)
//	_, err := db.Migrate(ctx, audit.Migrations())
func NewDatabaseAuditLog(db dbkit.IDB) *DatabaseAuditLog {
	return &DatabaseAuditLog{db: db}
}

// Record inserts one audit row.
func (l *DatabaseAuditLog) Record(ctx context.Context, entry *AuditEntry) error {
	_, err := l.db.NewInsert().Model(entry.ToModel()).Exec(ctx)
	return dbkit.WithErr1(err, "RecordAudit").Err()
}

// Entries retrieves audit entries with optional filters, newest first.
func (l *DatabaseAuditLog) Entries(ctx context.Context, filter AuditLogFilter) ([]AuditEntry, error) {
	var logs []NftAuditLog
	q := l.db.NewSelect().Model(&logs)
	q = applyAuditFilter(q, filter)

	limit := filter.Limit
	if limit == 0 {
		limit = 100 // Default limit
	}
	q = q.Limit(limit)

	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	q = q.Order("timestamp DESC")
	if err := dbkit.WithErr1(q.Scan(ctx), "GetAuditLog").Err(); err != nil {
		return nil, err
	}

	entries := make([]AuditEntry, 0, len(logs))
	for i := range logs {
		entries = append(entries, logs[i].ToEntry())
	}
	return entries, nil
}

// Count returns the number of audit rows matching filter. Pagination is ignored.
func (l *DatabaseAuditLog) Count(ctx context.Context, filter AuditLogFilter) (int, error) {
	return dbkit.Count[NftAuditLog](ctx, l.db, func(q *bun.SelectQuery) *bun.SelectQuery {
		return applyAuditFilter(q, filter)
	})
}

func applyAuditFilter(q *bun.SelectQuery, filter AuditLogFilter) *bun.SelectQuery {
	if filter.Collection != "" {
		q = q.Where("collection = ?", filter.Collection)
	}
	if filter.Caller != (Address{}) {
		q = q.Where("caller = ?", filter.Caller.Hex())
	}
	if filter.Account != (Address{}) {
		q = q.Where("account = ?", filter.Account.Hex())
	}
	if filter.Action != "" {
		q = q.Where("action = ?", string(filter.Action))
	}
	if filter.Role != nil {
		q = q.Where("role = ?", filter.Role.Hex())
	}
	if !filter.Since.IsZero() {
		q = q.Where("timestamp >= ?", filter.Since)
	}
	if !filter.Until.IsZero() {
		q = q.Where("timestamp <= ?", filter.Until)
	}
	return q
}

// Migrations returns the database migrations required for the audit table.
// Use db.Migrate(ctx, audit.Migrations()) to run them.
func (l *DatabaseAuditLog) Migrations() []dbkit.Migration {
	return []dbkit.Migration{
		{
			ID:          "nftkit-001",
			Description: "Create nft_audit_log table",
			SQL: `
                CREATE TABLE IF NOT EXISTS nft_audit_log (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    timestamp TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    collection TEXT NOT NULL,
                    action TEXT NOT NULL,
                    caller TEXT NOT NULL,
                    account TEXT,
                    role TEXT,
                    token_ids BIGINT[],
                    recipients TEXT[],
                    previous_base_uri TEXT,
                    new_base_uri TEXT,
                    ip_address TEXT,
                    user_agent TEXT,
                    request_id TEXT
                )`,
		},
		{
			ID:          "nftkit-002",
			Description: "Index nft_audit_log by collection and time",
			SQL: `
                CREATE INDEX IF NOT EXISTS nft_audit_log_collection_ts
                    ON nft_audit_log (collection, timestamp DESC)`,
		},
	}
}

// Health performs a health check of the database connection.
func (l *DatabaseAuditLog) Health(ctx context.Context) dbkit.HealthStatus {
	if db, ok := l.db.(*dbkit.DBKit); ok {
		return db.Health(ctx)
	}

	// If we're in a transaction or have a different type, do a basic ping
	return dbkit.HealthStatus{
		Healthy: l.Ping(ctx) == nil,
		Error:   "Limited health check - not a DBKit instance",
	}
}

// IsHealthy reports whether the database is reachable.
func (l *DatabaseAuditLog) IsHealthy(ctx context.Context) bool {
	if db, ok := l.db.(*dbkit.DBKit); ok {
		return db.IsHealthy(ctx)
	}
	return l.Ping(ctx) == nil
}

// Ping performs a basic connectivity test to the database.
func (l *DatabaseAuditLog) Ping(ctx context.Context) error {
	var result int
	return l.db.NewSelect().Model((*struct{})(nil)).ColumnExpr("1").Limit(1).Scan(ctx, &result)
}
