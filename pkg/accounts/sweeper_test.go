package accounts

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jschmidtnj/ewaab-sub000/pkg/observability"
)

func TestNewSweeperRejectsBadSchedule(t *testing.T) {
	store := newTestStore(t)
	logger := observability.NewLogger(observability.ErrorLevel, &bytes.Buffer{})

	_, err := NewSweeper(store, logger, "not a schedule")
	assert.Error(t, err)
}

func TestSweeperDeletesExpiredCodes(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, _, err := store.CreateVisitorCode(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)

	var buf bytes.Buffer
	logger := observability.NewLogger(observability.InfoLevel, &buf)

	sweeper, err := NewSweeper(store, logger, "@hourly")
	require.NoError(t, err)
	sweeper.sweep()

	assert.Contains(t, buf.String(), "Deleted expired visitor codes")

	swept, err := store.DeleteExpiredVisitorCodes(ctx)
	require.NoError(t, err)
	assert.Zero(t, swept, "first sweep should have removed everything")
}

func TestSweeperSurvivesPanic(t *testing.T) {
	// A nil handle makes the store blow up; the sweep must contain it
	store := NewStore(nil)

	var buf bytes.Buffer
	logger := observability.NewLogger(observability.ErrorLevel, &buf)

	sweeper, err := NewSweeper(store, logger, "@hourly")
	require.NoError(t, err)

	assert.NotPanics(t, sweeper.sweep)
	assert.Contains(t, buf.String(), "PANIC recovered")
}
