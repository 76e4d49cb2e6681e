package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	line := strings.TrimSpace(buf.String())
	require.NotEmpty(t, line)
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	return entry
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(WithOutput(&buf), WithLevel(LevelWarn))

	logger.Info("should be filtered")
	assert.Empty(t, buf.String())

	logger.Warn("visible")
	entry := decodeLine(t, &buf)
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "visible", entry["message"])
	assert.Equal(t, "debtcheck", entry["service"])
}

func TestLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(WithOutput(&buf), WithService("debtcheck-test"))

	logger.Info("fetched page", "page", 2, "source", "cache")
	entry := decodeLine(t, &buf)

	assert.Equal(t, "debtcheck-test", entry["service"])
	fields, ok := entry["fields"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(2), fields["page"])
	assert.Equal(t, "cache", fields["source"])
}

func TestLoggerWith(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(WithOutput(&buf)).With("user_id", "user-1")

	logger.Info("token refreshed", "provider", "github")
	entry := decodeLine(t, &buf)

	fields := entry["fields"].(map[string]interface{})
	assert.Equal(t, "user-1", fields["user_id"])
	assert.Equal(t, "github", fields["provider"])
}

func TestLoggerContextCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(WithOutput(&buf))

	ctx := WithCorrelationID(context.Background(), "corr-123")
	logger.InfoWithContext(ctx, "request completed")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "corr-123", entry["correlation_id"])
}

func TestGetCorrelationIDMissing(t *testing.T) {
	assert.Equal(t, "", GetCorrelationID(context.Background()))
	assert.NotEmpty(t, GenerateCorrelationID())
}

func TestAuditEventEmit(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(WithOutput(&buf))

	NewAuditEvent(TokenRefresh, "token refreshed", StatusSuccess).
		WithUserID("user-1").
		WithProvider("atlassian").
		Emit(logger)

	entry := decodeLine(t, &buf)
	assert.Equal(t, "info", entry["level"])
	fields := entry["fields"].(map[string]interface{})
	assert.Equal(t, "TOKEN_REFRESH", fields["event_type"])
	assert.Equal(t, "user-1", fields["user_id"])
	assert.Equal(t, "atlassian", fields["provider"])
	assert.NotEmpty(t, fields["audit_id"])
}

func TestAuditEventWithError(t *testing.T) {
	ev := NewAuditEvent(TokenRefresh, "token refresh", StatusSuccess).WithError("invalid_grant")
	assert.Equal(t, StatusFailure, ev.Status)
	assert.Equal(t, SeverityError, ev.Severity)
	assert.Contains(t, ev.ToJSON(), "invalid_grant")
}
