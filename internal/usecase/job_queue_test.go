package usecase

import (
	"strings"
	"testing"
	"time"
)

func TestDedupKey_UsesQueueSafeFormat(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, time.February, 25, 4, 25, 42, 0, time.UTC)
	got := dedupKey("send-sms:recall", "game 7/b", at, 5*time.Minute)

	if strings.Contains(got, ":") {
		t.Fatalf("dedup key must not contain colon, got=%q", got)
	}

	want := "send-sms-recall-game-7-b-20260225T042500Z"
	if got != want {
		t.Fatalf("unexpected dedup key: got=%q want=%q", got, want)
	}
}

func TestSanitizeDedupSegment_EmptyFallback(t *testing.T) {
	t.Parallel()

	if got := sanitizeDedupSegment(" \t "); got != "unknown" {
		t.Fatalf("unexpected sanitize fallback: got=%q want=%q", got, "unknown")
	}
}

func TestSanitizeDedupSegment_ReplacesNonASCII(t *testing.T) {
	t.Parallel()

	if got := sanitizeDedupSegment("José_7"); got != "Jos-_7" {
		t.Fatalf("unexpected sanitized segment: %q", got)
	}
}
