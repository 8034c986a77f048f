package observability

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func logLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var fields map[string]any
	if err := json.Unmarshal(buf.Bytes(), &fields); err != nil {
		t.Fatalf("Failed to decode log line %q: %v", buf.String(), err)
	}
	return fields
}

func TestWithCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf).With().Str("component", "web").Logger()

	logger := WithCorrelationID(base, "abc-123")
	logger.Info().Msg("connected")

	fields := logLine(t, &buf)
	if fields["correlation_id"] != "abc-123" {
		t.Errorf("Expected correlation_id abc-123, got %v", fields["correlation_id"])
	}
	if fields["component"] != "web" {
		t.Errorf("Expected base fields to be kept, got %v", fields)
	}
}

func TestWithCorrelationID_Generated(t *testing.T) {
	var buf bytes.Buffer
	logger := WithCorrelationID(zerolog.New(&buf), "")
	logger.Info().Msg("connected")

	id, _ := logLine(t, &buf)["correlation_id"].(string)
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("Expected generated uuid correlation_id, got %q", id)
	}
}
