package main

import (
	"os"
	"testing"

	"github.com/masahif/docfold/internal/cmd"
)

func TestVersionVariables(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty string")
	}
	if BuildTime == "" {
		t.Error("BuildTime should not be empty string")
	}
}

// TestMainLogic runs the sequence main() performs without calling os.Exit
func TestMainLogic(t *testing.T) {
	origArgs := os.Args
	defer func() { os.Args = origArgs }()

	cmd.SetVersionInfo(Version, BuildTime)

	os.Args = []string{"docfold", "--help"}
	if err := cmd.Execute(); err != nil {
		t.Errorf("cmd.Execute() with help should not return error, got: %v", err)
	}

	os.Args = []string{"docfold", "--version"}
	if err := cmd.Execute(); err != nil {
		t.Errorf("cmd.Execute() with version should not return error, got: %v", err)
	}
}
