package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/fairyhunter13/ai-candidate-screener/internal/config"
)

func TestSetupLogger_LevelByEnv(t *testing.T) {
	t.Parallel()
	dev := SetupLogger(config.Config{AppEnv: "dev", OTELServiceName: "screener"})
	assert.True(t, dev.Enabled(context.Background(), slog.LevelDebug))

	prod := SetupLogger(config.Config{AppEnv: "prod", OTELServiceName: "screener"})
	assert.False(t, prod.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, prod.Enabled(context.Background(), slog.LevelInfo))
}

func TestNewLogger_AddsTraceIDs(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	lg := NewLogger(&buf, config.Config{AppEnv: "prod", OTELServiceName: "screener"}).With(slog.String("job_id", "j1"))

	tid, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	sid, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: tid, SpanID: sid, TraceFlags: trace.FlagsSampled,
	}))
	lg.InfoContext(ctx, "ranked")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "screener", rec["service"])
	assert.Equal(t, "prod", rec["env"])
	assert.Equal(t, "j1", rec["job_id"])
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", rec["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", rec["span_id"])

	buf.Reset()
	lg.Info("no span")
	assert.NotContains(t, buf.String(), "trace_id")
}
