package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/odiabackend099/callwaiting/internal/domain/usage"
	"github.com/odiabackend099/callwaiting/internal/pkg/errors"
	"github.com/odiabackend099/callwaiting/internal/pkg/metrics"
)

// UsageEventRepository implements usage.Repository
type UsageEventRepository struct {
	db *sql.DB
}

// NewUsageEventRepository creates a new usage event repository
func NewUsageEventRepository(db *sql.DB) *UsageEventRepository {
	return &UsageEventRepository{db: db}
}

// Append stores an event. Events are never updated.
func (r *UsageEventRepository) Append(ctx context.Context, e *usage.Event) error {
	defer metrics.ObserveDBQuery("insert", "usage_events", time.Now())

	metadata := e.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return errors.Internal("Failed to encode event metadata", err)
	}

	var agentID sql.NullString
	if e.AgentID != nil {
		agentID = sql.NullString{String: *e.AgentID, Valid: true}
	}
	var cost sql.NullInt64
	if e.CostCents != nil {
		cost = sql.NullInt64{Int64: *e.CostCents, Valid: true}
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO usage_events (id, account_id, agent_id, kind, seconds_consumed, cost_cents, metadata, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, e.ID, e.AccountID, agentID, string(e.Kind), e.SecondsConsumed, cost, string(metaJSON), e.RecordedAt.Unix())
	if err != nil {
		return errors.DatabaseError("Failed to append usage event", err)
	}
	return nil
}

// ListByAccount returns matching events newest first, with the total match count
func (r *UsageEventRepository) ListByAccount(ctx context.Context, accountID string, opts usage.ListOptions) ([]*usage.Event, int64, error) {
	defer metrics.ObserveDBQuery("select", "usage_events", time.Now())

	where := []string{"account_id = $1"}
	args := []any{accountID}
	if opts.Kind != "" {
		args = append(args, string(opts.Kind))
		where = append(where, fmt.Sprintf("kind = $%d", len(args)))
	}
	if !opts.Since.IsZero() {
		args = append(args, opts.Since.Unix())
		where = append(where, fmt.Sprintf("recorded_at >= $%d", len(args)))
	}
	if !opts.Until.IsZero() {
		args = append(args, opts.Until.Unix())
		where = append(where, fmt.Sprintf("recorded_at < $%d", len(args)))
	}
	clause := strings.Join(where, " AND ")

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM usage_events WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, errors.DatabaseError("Failed to count usage events", err)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	pageArgs := append(args, limit, opts.Offset)
	query := fmt.Sprintf(`
		SELECT id, account_id, agent_id, kind, seconds_consumed, cost_cents, metadata, recorded_at
		FROM usage_events
		WHERE %s
		ORDER BY recorded_at DESC, id
		LIMIT $%d OFFSET $%d
	`, clause, len(args)+1, len(args)+2)

	rows, err := r.db.QueryContext(ctx, query, pageArgs...)
	if err != nil {
		return nil, 0, errors.DatabaseError("Failed to list usage events", err)
	}
	defer rows.Close()

	var events []*usage.Event
	for rows.Next() {
		var e usage.Event
		var kind, metaJSON string
		var agentID sql.NullString
		var cost sql.NullInt64
		var recordedAt int64

		if err := rows.Scan(&e.ID, &e.AccountID, &agentID, &kind, &e.SecondsConsumed, &cost, &metaJSON, &recordedAt); err != nil {
			return nil, 0, errors.DatabaseError("Failed to scan usage event", err)
		}

		e.Kind = usage.Kind(kind)
		e.RecordedAt = time.Unix(recordedAt, 0).UTC()
		if agentID.Valid {
			e.AgentID = &agentID.String
		}
		if cost.Valid {
			e.CostCents = &cost.Int64
		}
		if metaJSON != "" && metaJSON != "{}" {
			if err := json.Unmarshal([]byte(metaJSON), &e.Metadata); err != nil {
				return nil, 0, errors.Internal("Failed to decode event metadata", err)
			}
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.DatabaseError("Failed to iterate usage events", err)
	}

	return events, total, nil
}
