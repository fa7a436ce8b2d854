package telemetry

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler_MirrorsRunScopedRecords(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe("run-1")

	var buf bytes.Buffer
	logger := slog.New(NewHandler(slog.NewTextHandler(&buf, nil), hub))

	logger.With(slog.String("run_id", "run-1"), slog.String("project", "shop")).
		Warn("could not install php8.1-gd", slog.String("state", "configuring"))

	require.Len(t, ch, 1)
	line := <-ch
	assert.Equal(t, "run-1", line.RunID)
	assert.Equal(t, "shop", line.Project)
	assert.Equal(t, LevelWarn, line.Level)
	assert.Equal(t, "could not install php8.1-gd state=configuring", line.Message)
	assert.False(t, line.Time.IsZero())

	// The wrapped handler still sees everything, run_id included.
	assert.Contains(t, buf.String(), "run_id=run-1")
}

func TestHandler_IgnoresRecordsWithoutRun(t *testing.T) {
	hub := NewHub()
	all := hub.SubscribeAll()

	logger := slog.New(NewHandler(nil, hub))
	logger.Info("Dashboard listening", slog.String("addr", "127.0.0.1:8080"))

	assert.Empty(t, all)
}

func TestHandler_RunIDOnRecord(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe("run-2")

	logger := slog.New(NewHandler(nil, hub))
	logger.Error("Project failed", slog.String("run_id", "run-2"))

	require.Len(t, ch, 1)
	line := <-ch
	assert.Equal(t, LevelError, line.Level)
	assert.Equal(t, "Project failed", line.Message)
}

func TestHandler_DebugNotMirrored(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe("run-3")

	logger := slog.New(NewHandler(nil, hub))
	logger.Debug("Running command", slog.String("run_id", "run-3"))

	assert.Empty(t, ch)
}

func TestHandler_RunScopeFromContext(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe("run-4")

	logger := slog.New(NewHandler(nil, hub))
	ctx := ContextWithRun(context.Background(), "run-4", "shop")

	logger.InfoContext(ctx, "Cloning repository", slog.String("dir", "/var/www/shop"))
	logger.Info("Cloning repository without scope")

	require.Len(t, ch, 1)
	line := <-ch
	assert.Equal(t, "shop", line.Project)
	assert.Equal(t, "Cloning repository dir=/var/www/shop", line.Message)
}
