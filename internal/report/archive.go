package report

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Archive persists reports to PostgreSQL for moderator review. It is used by
// the moderation sidecar, which receives report events from the bot over
// NATS; the in-memory Ledger in the bot process stays authoritative for the
// per-session guard.
type Archive struct {
	db *sql.DB
}

// ArchivedReport is one report row as written by the sidecar.
type ArchivedReport struct {
	ReporterID int64
	ReportedID int64
	ChatID     string
	Count      int // cumulative count at time of filing
}

// NewArchive creates an archive backed by the given database handle.
func NewArchive(db *sql.DB) *Archive {
	return &Archive{db: db}
}

// Insert stores one report row.
func (a *Archive) Insert(ctx context.Context, r *ArchivedReport) error {
	const query = `
		INSERT INTO abuse_reports (reporter_id, reported_id, chat_id, cumulative_count)
		VALUES ($1, $2, $3, $4)`

	_, err := a.db.ExecContext(ctx, query, r.ReporterID, r.ReportedID, r.ChatID, r.Count)
	if err != nil {
		return fmt.Errorf("report: insert: %w", err)
	}
	return nil
}

// CountRecent returns the number of reports filed against a user within the
// given window. Useful for building escalation tooling on top of the archive.
func (a *Archive) CountRecent(ctx context.Context, reportedID int64, window time.Duration) (int, error) {
	const query = `
		SELECT COUNT(*)
		FROM abuse_reports
		WHERE reported_id = $1
		  AND created_at >= NOW() - $2::interval`

	var count int
	err := a.db.QueryRowContext(ctx, query, reportedID, window.String()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("report: count recent: %w", err)
	}
	return count, nil
}
