package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/zatekoja/caretriage/internal/domain/entities"
	"github.com/zatekoja/caretriage/internal/domain/repositories"
	apperrors "github.com/zatekoja/caretriage/pkg/errors"
)

const casesTable = "cases"

// Supported goqu dialects.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite3"
)

var caseSchemas = map[string]string{
	DialectPostgres: `
CREATE TABLE IF NOT EXISTS cases (
	case_id               TEXT PRIMARY KEY,
	status                TEXT NOT NULL,
	urgency_level         INTEGER NOT NULL DEFAULT 0,
	specialty             TEXT NOT NULL DEFAULT '',
	requires_human_review BOOLEAN NOT NULL DEFAULT FALSE,
	estimated_cost        DOUBLE PRECISION NOT NULL DEFAULT 0,
	outcome               JSONB NOT NULL,
	created_at            TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cases_review ON cases (requires_human_review, created_at DESC);`,
	DialectSQLite: `
CREATE TABLE IF NOT EXISTS cases (
	case_id               TEXT PRIMARY KEY,
	status                TEXT NOT NULL,
	urgency_level         INTEGER NOT NULL DEFAULT 0,
	specialty             TEXT NOT NULL DEFAULT '',
	requires_human_review BOOLEAN NOT NULL DEFAULT 0,
	estimated_cost        REAL NOT NULL DEFAULT 0,
	outcome               TEXT NOT NULL,
	created_at            TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cases_review ON cases (requires_human_review, created_at DESC);`,
}

// CaseAdapter persists finalized case outcomes. The full outcome is stored as JSON
// next to a few indexed columns used for listing.
type CaseAdapter struct {
	sqlDB   *sql.DB
	db      *goqu.Database
	dialect string
}

// NewCaseAdapter creates a case adapter for the given dialect.
func NewCaseAdapter(db *sql.DB, dialect string) (*CaseAdapter, error) {
	if _, ok := caseSchemas[dialect]; !ok {
		return nil, fmt.Errorf("unsupported case store dialect %q", dialect)
	}
	return &CaseAdapter{
		sqlDB:   db,
		db:      goqu.New(dialect, db),
		dialect: dialect,
	}, nil
}

var _ repositories.CaseRepository = (*CaseAdapter)(nil)

// EnsureSchema creates the cases table if it does not exist.
func (a *CaseAdapter) EnsureSchema(ctx context.Context) error {
	if _, err := a.sqlDB.ExecContext(ctx, caseSchemas[a.dialect]); err != nil {
		return apperrors.NewInternalError("failed to create cases table", err)
	}
	return nil
}

// Save inserts a finalized case. Case IDs are unique, so a second save of the same case fails.
func (a *CaseAdapter) Save(ctx context.Context, outcome *entities.CaseOutcome) error {
	if outcome == nil {
		return apperrors.NewInternalError("case outcome is nil", fmt.Errorf("case outcome is nil"))
	}

	payload, err := json.Marshal(outcome)
	if err != nil {
		return apperrors.NewInternalError("failed to encode case outcome", err)
	}
	createdAt := outcome.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	record := goqu.Record{
		"case_id":               outcome.CaseID,
		"status":                string(outcome.Status),
		"urgency_level":         int(outcome.UrgencyLevel),
		"specialty":             outcome.Specialty,
		"requires_human_review": outcome.RequiresHumanReview,
		"estimated_cost":        outcome.EstimatedCost,
		"outcome":               string(payload),
		"created_at":            createdAt.UTC(),
	}

	query, args, err := a.db.Insert(casesTable).Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build case insert query", err)
	}

	if _, err := a.sqlDB.ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to save case", err)
	}
	return nil
}

// GetByID returns a stored case outcome.
func (a *CaseAdapter) GetByID(ctx context.Context, caseID string) (*entities.CaseOutcome, error) {
	query, args, err := a.db.From(casesTable).
		Select("outcome").
		Where(goqu.C("case_id").Eq(caseID)).
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build case query", err)
	}

	var payload string
	if err := a.sqlDB.QueryRowContext(ctx, query, args...).Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("case %s not found", caseID))
		}
		return nil, apperrors.NewInternalError("failed to get case", err)
	}
	return decodeOutcome(payload)
}

// List returns cases matching filter, most recent first.
func (a *CaseAdapter) List(ctx context.Context, filter repositories.CaseFilter) ([]*entities.CaseOutcome, error) {
	ds := a.db.From(casesTable).Select("outcome").Order(goqu.C("created_at").Desc())

	if filter.Status != "" {
		ds = ds.Where(goqu.C("status").Eq(string(filter.Status)))
	}
	if filter.ReviewPending {
		ds = ds.Where(goqu.C("requires_human_review").Eq(true))
	}
	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}
	if filter.Offset > 0 {
		ds = ds.Offset(uint(filter.Offset))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build case list query", err)
	}

	rows, err := a.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list cases", err)
	}
	defer rows.Close()

	outcomes := make([]*entities.CaseOutcome, 0)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, apperrors.NewInternalError("failed to scan case", err)
		}
		outcome, err := decodeOutcome(payload)
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, outcome)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate cases", err)
	}
	return outcomes, nil
}

func decodeOutcome(payload string) (*entities.CaseOutcome, error) {
	var outcome entities.CaseOutcome
	if err := json.Unmarshal([]byte(payload), &outcome); err != nil {
		return nil, apperrors.NewInternalError("failed to decode stored case", err)
	}
	return &outcome, nil
}
