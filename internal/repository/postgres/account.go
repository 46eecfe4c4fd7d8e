package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/odiabackend099/callwaiting/internal/domain/account"
	"github.com/odiabackend099/callwaiting/internal/domain/plan"
	"github.com/odiabackend099/callwaiting/internal/pkg/clock"
	"github.com/odiabackend099/callwaiting/internal/pkg/errors"
	"github.com/odiabackend099/callwaiting/internal/pkg/metrics"
)

// AccountRepository implements account.Repository
type AccountRepository struct {
	db    *sql.DB
	clock clock.Clock
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db, clock: clock.System{}}
}

// WithClock sets the clock that stamps updated_at
func (r *AccountRepository) WithClock(clk clock.Clock) *AccountRepository {
	r.clock = clk
	return r
}

const accountColumns = `id, email, plan, quota_allotted_minutes, quota_consumed_minutes,
	period_started_at, period_ends_at, created_at, updated_at`

// Create inserts the account and its trial state in one transaction
func (r *AccountRepository) Create(ctx context.Context, a *account.Account, trial *account.TrialState) error {
	defer metrics.ObserveDBQuery("insert", "accounts", time.Now())

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.DatabaseError("Failed to begin transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		a.ID, a.Email, string(a.Plan), a.QuotaAllottedMinutes, a.QuotaConsumedMinutes,
		a.PeriodStartedAt.Unix(), a.PeriodEndsAt.Unix(), a.CreatedAt.Unix(), a.UpdatedAt.Unix(),
	)
	if err != nil {
		return errors.DatabaseError("Failed to create account", err)
	}

	if trial != nil {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO trial_states (account_id, started_at, expires_at, cap_seconds, seconds_used)
			VALUES ($1, $2, $3, $4, $5)
		`, trial.AccountID, trial.StartedAt.Unix(), trial.ExpiresAt.Unix(), trial.CapSeconds, trial.SecondsUsed)
		if err != nil {
			return errors.DatabaseError("Failed to create trial state", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.DatabaseError("Failed to commit account", err)
	}
	return nil
}

// GetByID retrieves an account by ID
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*account.Account, error) {
	defer metrics.ObserveDBQuery("select", "accounts", time.Now())

	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	a, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("Account")
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get account", err)
	}
	return a, nil
}

// GetTrial retrieves the trial state of an account
func (r *AccountRepository) GetTrial(ctx context.Context, accountID string) (*account.TrialState, error) {
	defer metrics.ObserveDBQuery("select", "trial_states", time.Now())

	var t account.TrialState
	var startedAt, expiresAt int64
	err := r.db.QueryRowContext(ctx, `
		SELECT account_id, started_at, expires_at, cap_seconds, seconds_used
		FROM trial_states WHERE account_id = $1
	`, accountID).Scan(&t.AccountID, &startedAt, &expiresAt, &t.CapSeconds, &t.SecondsUsed)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("Trial")
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get trial state", err)
	}

	t.StartedAt = time.Unix(startedAt, 0).UTC()
	t.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	return &t, nil
}

// List retrieves accounts with pagination
func (r *AccountRepository) List(ctx context.Context, limit, offset int) ([]*account.Account, int64, error) {
	defer metrics.ObserveDBQuery("select", "accounts", time.Now())

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&total); err != nil {
		return nil, 0, errors.DatabaseError("Failed to count accounts", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+accountColumns+` FROM accounts
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, errors.DatabaseError("Failed to list accounts", err)
	}
	defer rows.Close()

	accounts, err := scanAccounts(rows)
	if err != nil {
		return nil, 0, err
	}
	return accounts, total, nil
}

// IncrementConsumed adds minutes to the consumed counter in a single statement
func (r *AccountRepository) IncrementConsumed(ctx context.Context, id string, minutes int64) error {
	defer metrics.ObserveDBQuery("update", "accounts", time.Now())

	result, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET quota_consumed_minutes = quota_consumed_minutes + $1, updated_at = $2
		WHERE id = $3
	`, minutes, r.clock.Now().Unix(), id)
	if err != nil {
		return errors.DatabaseError("Failed to increment consumed minutes", err)
	}
	return requireRow(result, "Account")
}

// IncrementTrialSeconds adds seconds only while the result stays within the cap
func (r *AccountRepository) IncrementTrialSeconds(ctx context.Context, accountID string, seconds int64) (bool, error) {
	defer metrics.ObserveDBQuery("update", "trial_states", time.Now())

	result, err := r.db.ExecContext(ctx, `
		UPDATE trial_states
		SET seconds_used = seconds_used + $1
		WHERE account_id = $2 AND $1 <= cap_seconds - seconds_used
	`, seconds, accountID)
	if err != nil {
		return false, errors.DatabaseError("Failed to increment trial seconds", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, errors.DatabaseError("Failed to read affected rows", err)
	}
	return affected == 1, nil
}

// ActivatePlan switches plan and opens a fresh period with consumption zeroed
func (r *AccountRepository) ActivatePlan(ctx context.Context, id string, p plan.Type, allottedMinutes int64, periodStart, periodEnd time.Time) error {
	defer metrics.ObserveDBQuery("update", "accounts", time.Now())

	result, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET plan = $1, quota_allotted_minutes = $2, quota_consumed_minutes = 0,
			period_started_at = $3, period_ends_at = $4, updated_at = $5
		WHERE id = $6
	`, string(p), allottedMinutes, periodStart.Unix(), periodEnd.Unix(), r.clock.Now().Unix(), id)
	if err != nil {
		return errors.DatabaseError("Failed to activate plan", err)
	}
	return requireRow(result, "Account")
}

// ResetPeriod zeroes consumption and moves the period window in one statement
func (r *AccountRepository) ResetPeriod(ctx context.Context, id string, periodStart, periodEnd time.Time) error {
	defer metrics.ObserveDBQuery("update", "accounts", time.Now())

	result, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET quota_consumed_minutes = 0, period_started_at = $1, period_ends_at = $2, updated_at = $3
		WHERE id = $4
	`, periodStart.Unix(), periodEnd.Unix(), r.clock.Now().Unix(), id)
	if err != nil {
		return errors.DatabaseError("Failed to reset period", err)
	}
	return requireRow(result, "Account")
}

// ListDueForReset returns paid accounts whose period has ended
func (r *AccountRepository) ListDueForReset(ctx context.Context, now time.Time, limit int) ([]*account.Account, error) {
	defer metrics.ObserveDBQuery("select", "accounts", time.Now())

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+accountColumns+` FROM accounts
		WHERE plan <> $1 AND period_ends_at <= $2
		ORDER BY period_ends_at
		LIMIT $3
	`, string(plan.TypeTrial), now.Unix(), limit)
	if err != nil {
		return nil, errors.DatabaseError("Failed to list accounts due for reset", err)
	}
	defer rows.Close()

	return scanAccounts(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*account.Account, error) {
	var a account.Account
	var planType string
	var periodStart, periodEnd, createdAt, updatedAt int64

	if err := row.Scan(
		&a.ID, &a.Email, &planType, &a.QuotaAllottedMinutes, &a.QuotaConsumedMinutes,
		&periodStart, &periodEnd, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	a.Plan = plan.Type(planType)
	a.PeriodStartedAt = time.Unix(periodStart, 0).UTC()
	a.PeriodEndsAt = time.Unix(periodEnd, 0).UTC()
	a.CreatedAt = time.Unix(createdAt, 0).UTC()
	a.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &a, nil
}

func scanAccounts(rows *sql.Rows) ([]*account.Account, error) {
	var accounts []*account.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, errors.DatabaseError("Failed to scan account", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.DatabaseError("Failed to iterate accounts", err)
	}
	return accounts, nil
}

func requireRow(result sql.Result, resource string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.DatabaseError("Failed to read affected rows", err)
	}
	if affected == 0 {
		return errors.NotFound(resource)
	}
	return nil
}
