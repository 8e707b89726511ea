package log

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(nopWriter{})
		SetLevel(LevelInfo)
	})
	return &buf
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		" WARN ":  LevelWarn,
		"error":   LevelError,
		"":        LevelInfo,
		"verbose": LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	buf := capture(t)
	SetLevel(LevelWarn)

	Debug("hidden debug")
	Info("hidden info")
	Warn("shown warn", "k", "v")
	Error("shown error", errors.New("boom"))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("unexpected low-level lines: %s", out)
	}
	if !strings.Contains(out, "[WARN] shown warn k=v") {
		t.Fatalf("missing warn line: %s", out)
	}
	if !strings.Contains(out, "[ERROR] shown error err=boom") {
		t.Fatalf("missing error line: %s", out)
	}
}

func TestKVFormatting(t *testing.T) {
	buf := capture(t)

	Info("kv", "name", "two words", "empty", "", 42, "dropped", "odd")

	out := buf.String()
	if !strings.Contains(out, `name="two words"`) {
		t.Fatalf("expected quoted value: %s", out)
	}
	if !strings.Contains(out, `empty=""`) {
		t.Fatalf("expected quoted empty value: %s", out)
	}
	if strings.Contains(out, "dropped") || strings.Contains(out, "odd") {
		t.Fatalf("non-string key or odd trailing value leaked: %s", out)
	}
}
