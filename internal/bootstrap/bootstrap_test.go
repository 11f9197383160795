package bootstrap

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/caretriage/internal/domain/entities"
	"github.com/zatekoja/caretriage/pkg/config"
)

func offlineConfig() *config.Config {
	return &config.Config{
		Triage:    config.DefaultTriageConfig(),
		Reasoning: config.ReasoningConfig{Provider: config.ProviderOffline},
		Store:     config.StoreConfig{Driver: config.StoreNone},
	}
}

func TestNew_OfflinePipeline(t *testing.T) {
	app, err := New(context.Background(), offlineConfig())
	require.NoError(t, err)
	defer app.Close()

	assert.Equal(t, "offline", app.Engine.Name())
	assert.NotEmpty(t, app.Directory.All())

	outcome, err := app.Cases.Submit(context.Background(), "I have crushing chest pain and my left arm is numb")
	require.NoError(t, err)
	assert.Equal(t, entities.CaseStatusPartial, outcome.Status)
	assert.Equal(t, entities.UrgencyLevel(1), outcome.UrgencyLevel)
	assert.True(t, outcome.RequiresHumanReview)
	require.NotNil(t, outcome.RecommendedProvider)
	assert.Equal(t, "cardiology", outcome.RecommendedProvider.Specialty)

	cached, err := app.Cases.Get(context.Background(), outcome.CaseID)
	require.NoError(t, err)
	assert.Equal(t, outcome.CaseID, cached.CaseID)
}

func TestNew_SQLiteStore(t *testing.T) {
	cfg := offlineConfig()
	cfg.Store = config.StoreConfig{Driver: config.StoreSQLite, SQLitePath: filepath.Join(t.TempDir(), "cases.db")}

	app, err := New(context.Background(), cfg)
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	defer app.Close()

	outcome, err := app.Cases.Submit(context.Background(), "I need a prescription refill")
	require.NoError(t, err)

	pending, err := app.Cases.ListPendingReview(context.Background(), 10)
	require.NoError(t, err)
	for _, p := range pending {
		assert.True(t, p.RequiresHumanReview)
	}
	assert.NotEmpty(t, outcome.CaseID)
}

func TestNew_InvalidDirectory(t *testing.T) {
	cfg := offlineConfig()
	cfg.Directory.Path = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}
