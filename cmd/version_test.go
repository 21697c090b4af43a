package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func TestWriteVersion(t *testing.T) {
	originalVersion := Version
	originalBuildTime := BuildTime
	originalGitCommit := GitCommit
	defer func() {
		Version = originalVersion
		BuildTime = originalBuildTime
		GitCommit = originalGitCommit
	}()

	Version = "1.2.3"
	BuildTime = "2025-08-01T00:00:00Z"
	GitCommit = "abc123"
	t.Setenv("GEMINI_API_KEY", "test-key-1234567890")

	var buf bytes.Buffer
	writeVersion(&buf)

	out := buf.String()
	for _, want := range []string{
		"Aftercare 1.2.3",
		"Build Time: 2025-08-01T00:00:00Z",
		"Git Commit: abc123",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Hint:") {
		t.Errorf("unexpected hint with API key set:\n%s", out)
	}
}

func TestWriteVersion_MissingAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	var buf bytes.Buffer
	writeVersion(&buf)

	if !strings.Contains(buf.String(), "GEMINI_API_KEY is not set") {
		t.Errorf("expected hint when API key is unset:\n%s", buf.String())
	}
}
