package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/caretriage/internal/domain/entities"
)

func TestReadMessages(t *testing.T) {
	got, err := readMessages(strings.NewReader("chest pain\n\n  \nannual checkup  \n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"chest pain", "annual checkup"}, got)
}

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("REASONING_PROVIDER", "offline")
	t.Setenv("CASE_STORE", "none")
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("SLACK_BOT_TOKEN", "")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestProcessCommand_Offline(t *testing.T) {
	out, err := runCLI(t, "", "process", "crushing", "chest", "pain")
	require.NoError(t, err)

	var outcome entities.CaseOutcome
	require.NoError(t, json.Unmarshal([]byte(out), &outcome))
	assert.Equal(t, entities.CaseStatusPartial, outcome.Status)
	assert.Equal(t, entities.UrgencyEmergency, outcome.UrgencyLevel)
	assert.True(t, outcome.RequiresHumanReview)
}

func TestBatchCommand_Stdin(t *testing.T) {
	batchFlags.file = ""
	out, err := runCLI(t, "chest pain\nannual checkup\n", "batch", "--parallel", "2")
	require.NoError(t, err)

	var outcomes []entities.CaseOutcome
	require.NoError(t, json.Unmarshal([]byte(out), &outcomes))
	require.Len(t, outcomes, 2)
	assert.NotEqual(t, outcomes[0].CaseID, outcomes[1].CaseID)
}

func TestBatchCommand_EmptyInput(t *testing.T) {
	batchFlags.file = ""
	_, err := runCLI(t, "\n\n", "batch")
	assert.Error(t, err)
}
