package sysinfo

import (
	"strings"
	"testing"
)

func TestProbe_PopulatesCoreFields(t *testing.T) {
	ctx := Probe()
	if ctx.OS == "" {
		t.Fatalf("expected OS to be populated")
	}
	if ctx.Shell == "" {
		t.Fatalf("expected shell to be populated")
	}
	if ctx.Cwd == "" {
		t.Fatalf("expected cwd to be populated")
	}
}

func TestPromptBlock_ContainsFields(t *testing.T) {
	ctx := Context{
		Username:        "alice",
		HomeDir:         "/home/alice",
		Hostname:        "box",
		OS:              "linux/amd64",
		Shell:           "/bin/bash",
		Cwd:             "/home/alice/work",
		PackageManagers: []string{"apt", "brew"},
	}
	block := ctx.PromptBlock()
	for _, want := range []string{"alice", "/home/alice", "box", "linux/amd64", "/bin/bash", "/home/alice/work", "apt, brew"} {
		if !strings.Contains(block, want) {
			t.Fatalf("prompt block missing %q:\n%s", want, block)
		}
	}
}

func TestPromptBlock_NoPackageManagersLine(t *testing.T) {
	block := Context{Shell: "/bin/sh"}.PromptBlock()
	if strings.Contains(block, "packages") {
		t.Fatalf("packages line should be omitted when none detected:\n%s", block)
	}
}
