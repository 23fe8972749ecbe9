package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestScriptsCommand(t *testing.T) {
	out, err := run(t, "scripts")
	if err != nil {
		t.Fatalf("scripts failed: %v", err)
	}
	for _, want := range []string{"[credential_reset]", "credential-reset (8 phases)", "[install]", "install (11 phases)", "WIPING DISK"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestScriptsCommandFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "menu.yaml")
	doc := "name: menu\nphases:\n  - title: BOOT MENU\n    steps:\n      - {action: tap, key: f12}\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	out, err := run(t, "scripts", "--file", path)
	if err != nil {
		t.Fatalf("scripts --file failed: %v", err)
	}
	if !strings.Contains(out, "menu (1 phases)") || !strings.Contains(out, "BOOT MENU") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestSimulateCommand(t *testing.T) {
	out, err := run(t, "simulate", "--mode", "install", "--touch", "12s")
	if err != nil {
		t.Fatalf("simulate failed: %v", err)
	}
	for _, want := range []string{"f12 x", "extra steps: [1]", "delete attempts: 32"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestSimulateCommandRejectsUnknownMode(t *testing.T) {
	if _, err := run(t, "simulate", "--mode", "format"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestSimulateCommandNeedsPassword(t *testing.T) {
	if _, err := run(t, "simulate", "--mode", "credential_reset", "--password", ""); err == nil {
		t.Error("expected error for an empty password")
	}
}
