package commands

import (
	"strings"
	"testing"
)

func TestStatusCommand_PrintsSections(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("USERPROFILE", tmpDir)

	output := captureOutput(t, func() {
		if err := runStatus(nil, nil); err != nil {
			t.Fatalf("runStatus error: %v", err)
		}
	})

	if !strings.Contains(output, "Dockslot Status") {
		t.Fatalf("expected status header, got: %s", output)
	}
	if !strings.Contains(output, "Config:") {
		t.Fatalf("expected config section, got: %s", output)
	}
	if !strings.Contains(output, "Telegram:") {
		t.Fatalf("expected telegram section, got: %s", output)
	}
	if !strings.Contains(output, "Sweeper:") {
		t.Fatalf("expected sweeper section, got: %s", output)
	}
	if !strings.Contains(output, "Database: not created yet") {
		t.Fatalf("expected empty database notice, got: %s", output)
	}
}
