package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestMaskEmail(t *testing.T) {
	cases := map[string]string{
		"alice@example.com": "a***@example.com",
		"a@x.com":           "a***@x.com",
		"no-at":             "***",
		"@x.com":            "***",
	}
	for in, want := range cases {
		if got := MaskEmail(in); got != want {
			t.Fatalf("MaskEmail(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMaskPhone(t *testing.T) {
	if got := MaskPhone("5555551234"); got != "***1234" {
		t.Fatalf("got %q", got)
	}
	if got := MaskPhone("123"); got != "***" {
		t.Fatalf("got %q", got)
	}
}

func TestFromFallsBackToProcessLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	restore := Replace(zap.New(core))
	defer restore()

	From(context.Background()).Info("hello")
	if logs.Len() != 1 {
		t.Fatalf("expected 1 log entry, got %d", logs.Len())
	}
}

func TestFromUsesScopedLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ctx := ToContext(context.Background(), zap.New(core).With(RequestID("rid-1")))

	From(ctx).Info("scoped")
	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].ContextMap()["request_id"] != "rid-1" {
		t.Fatalf("missing request_id field: %v", entries[0].ContextMap())
	}
}
