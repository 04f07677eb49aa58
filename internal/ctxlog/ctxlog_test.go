package ctxlog

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	ctx := WithLogger(context.Background(), logger)

	assert.Same(t, logger, FromContext(ctx))

	FromContext(With(ctx, "run_id", "abc")).Info("Hello.")
	assert.Contains(t, buf.String(), "run_id=abc")
}

func TestFromContext_MissingLoggerPanics(t *testing.T) {
	assert.Panics(t, func() { FromContext(context.Background()) })
}
