package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func TestWithLogger_FromContext(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "info", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := WithLogger(context.Background(), l)

	retrieved := FromContext(ctx)
	if retrieved == nil {
		t.Fatal("FromContext returned nil")
	}
	retrieved.Info("test message")

	if buf.Len() == 0 {
		t.Error("Logger from context should produce output")
	}
}

func TestFromContext_Default(t *testing.T) {
	if l := FromContext(context.Background()); l == nil {
		t.Error("FromContext should return default logger, got nil")
	}
}

func TestWithAttemptID(t *testing.T) {
	ctx := WithAttemptID(context.Background(), "01hzx4k2d6q0r3m9w7t5v8b1c2")

	if got := AttemptIDFromContext(ctx); got != "01hzx4k2d6q0r3m9w7t5v8b1c2" {
		t.Errorf("AttemptIDFromContext() = %q", got)
	}
	if got := AttemptIDFromContext(context.Background()); got != "" {
		t.Errorf("AttemptIDFromContext() on empty context = %q, want empty", got)
	}
}

func TestL(t *testing.T) {
	tests := []struct {
		name      string
		attemptID string
	}{
		{"with attempt id", "attempt-1"},
		{"without attempt id", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l, err := New(Config{Level: "info", Format: "json", Output: &buf})
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}

			ctx := WithLogger(context.Background(), l)
			if tt.attemptID != "" {
				ctx = WithAttemptID(ctx, tt.attemptID)
			}
			L(ctx).Info("test message")

			var entry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("Failed to parse JSON log: %v", err)
			}

			got, present := entry["attempt_id"]
			if tt.attemptID == "" {
				if present {
					t.Errorf("attempt_id should be absent, got %v", got)
				}
				return
			}
			if got != tt.attemptID {
				t.Errorf("attempt_id = %v, want %q", got, tt.attemptID)
			}
		})
	}
}

func TestContextKeyCollision(t *testing.T) {
	// A plain string key with the same text must not shadow ours.
	ctx := context.WithValue(context.Background(), "vaultgate.attempt_id", "foreign")
	if got := AttemptIDFromContext(ctx); got != "" {
		t.Errorf("AttemptIDFromContext() = %q, want empty", got)
	}
}
