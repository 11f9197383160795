package database_test

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/caretriage/internal/adapters/database"
	"github.com/zatekoja/caretriage/internal/domain/entities"
	"github.com/zatekoja/caretriage/internal/domain/repositories"
	"github.com/zatekoja/caretriage/internal/infrastructure/clients/sqlite"
	apperrors "github.com/zatekoja/caretriage/pkg/errors"
)

func sampleOutcome(id string, review bool) *entities.CaseOutcome {
	return &entities.CaseOutcome{
		CaseID:              id,
		Status:              entities.CaseStatusCompleted,
		Duration:            12.5,
		EstimatedCost:       0.0042,
		UrgencyLevel:        2,
		Specialty:           "cardiology",
		CareType:            entities.CareTypeUrgent,
		RequiresHumanReview: review,
		Reasons:             []string{},
		AuditTrail:          []entities.StageEvent{},
		CreatedAt:           time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func newMockAdapter(t *testing.T) (*database.CaseAdapter, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	adapter, err := database.NewCaseAdapter(db, database.DialectPostgres)
	require.NoError(t, err)
	return adapter, mock
}

func TestCaseAdapter_Save(t *testing.T) {
	adapter, mock := newMockAdapter(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "cases"`)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := adapter.Save(context.Background(), sampleOutcome("CASE-00000001", false))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCaseAdapter_SaveFailure(t *testing.T) {
	adapter, mock := newMockAdapter(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "cases"`)).
		WillReturnError(errors.New("duplicate key"))

	err := adapter.Save(context.Background(), sampleOutcome("CASE-00000001", false))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInternal))

	err = adapter.Save(context.Background(), nil)
	assert.Error(t, err)
}

func TestCaseAdapter_GetByID(t *testing.T) {
	adapter, mock := newMockAdapter(t)

	stored := sampleOutcome("CASE-00000002", true)
	payload, err := json.Marshal(stored)
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "outcome" FROM "cases" WHERE ("case_id" = 'CASE-00000002') LIMIT 1`)).
		WillReturnRows(sqlmock.NewRows([]string{"outcome"}).AddRow(string(payload)))

	got, err := adapter.GetByID(context.Background(), "CASE-00000002")
	require.NoError(t, err)
	assert.Equal(t, stored.CaseID, got.CaseID)
	assert.Equal(t, stored.Specialty, got.Specialty)
	assert.True(t, got.RequiresHumanReview)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCaseAdapter_GetByIDNotFound(t *testing.T) {
	adapter, mock := newMockAdapter(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "outcome" FROM "cases"`)).
		WillReturnRows(sqlmock.NewRows([]string{"outcome"}))

	_, err := adapter.GetByID(context.Background(), "CASE-MISSING")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestCaseAdapter_ListPendingReview(t *testing.T) {
	adapter, mock := newMockAdapter(t)

	first, _ := json.Marshal(sampleOutcome("CASE-00000003", true))
	second, _ := json.Marshal(sampleOutcome("CASE-00000004", true))

	mock.ExpectQuery(`SELECT "outcome" FROM "cases" WHERE .*requires_human_review.* ORDER BY "created_at" DESC LIMIT 50`).
		WillReturnRows(sqlmock.NewRows([]string{"outcome"}).AddRow(string(first)).AddRow(string(second)))

	got, err := adapter.List(context.Background(), repositories.CaseFilter{ReviewPending: true, Limit: 50})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "CASE-00000003", got[0].CaseID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewCaseAdapter_RejectsUnknownDialect(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	_, err = database.NewCaseAdapter(db, "mysql")
	assert.Error(t, err)
}

func TestCaseAdapter_SQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	client, err := sqlite.NewClient(ctx, filepath.Join(t.TempDir(), "cases.db"))
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	defer client.Close()

	adapter, err := database.NewCaseAdapter(client.DB(), database.DialectSQLite)
	require.NoError(t, err)
	require.NoError(t, adapter.EnsureSchema(ctx))
	require.NoError(t, adapter.EnsureSchema(ctx))

	reviewed := sampleOutcome("CASE-0000000A", true)
	plain := sampleOutcome("CASE-0000000B", false)
	plain.CreatedAt = reviewed.CreatedAt.Add(time.Minute)

	require.NoError(t, adapter.Save(ctx, reviewed))
	require.NoError(t, adapter.Save(ctx, plain))
	assert.Error(t, adapter.Save(ctx, plain))

	got, err := adapter.GetByID(ctx, "CASE-0000000A")
	require.NoError(t, err)
	assert.Equal(t, reviewed.CaseID, got.CaseID)
	assert.Equal(t, reviewed.CareType, got.CareType)

	pending, err := adapter.List(ctx, repositories.CaseFilter{ReviewPending: true, Limit: 10})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "CASE-0000000A", pending[0].CaseID)

	all, err := adapter.List(ctx, repositories.CaseFilter{Status: entities.CaseStatusCompleted})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "CASE-0000000B", all[0].CaseID)

	_, err = adapter.GetByID(ctx, "CASE-NOPE")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}
