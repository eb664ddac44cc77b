package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

// TestRootCommand tests that the root command is properly configured
func TestRootCommand(t *testing.T) {
	if rootCmd.Use != "tracyfy" {
		t.Errorf("expected Use 'tracyfy', got %q", rootCmd.Use)
	}
	if rootCmd.Short == "" {
		t.Error("Short description should not be empty")
	}
	if rootCmd.Version == "" {
		t.Error("Version should be set")
	}
}

// TestAllCommandsRegistered tests that all expected commands are registered
func TestAllCommandsRegistered(t *testing.T) {
	expectedCommands := []string{
		"init", "new", "list", "show", "edit", "delete", "restore",
		"purge", "link", "migrate", "graph", "impact", "gaps",
		"baseline", "status", "history", "next-id",
	}

	registeredCommands := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		registeredCommands[cmd.Name()] = true
	}

	for _, expected := range expectedCommands {
		if !registeredCommands[expected] {
			t.Errorf("command %q should be registered", expected)
		}
	}
}

// TestLinkSubcommands tests the link command group
func TestLinkSubcommands(t *testing.T) {
	if !linkCmd.HasSubCommands() {
		t.Fatal("link should have subcommands")
	}
	for _, sub := range []string{"add", "remove", "list"} {
		found := false
		for _, cmd := range linkCmd.Commands() {
			if strings.HasPrefix(cmd.Use, sub) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("link should have subcommand %q", sub)
		}
	}
}

// TestBaselineSubcommands tests the baseline command group
func TestBaselineSubcommands(t *testing.T) {
	if !baselineCmd.HasSubCommands() {
		t.Fatal("baseline should have subcommands")
	}
	for _, sub := range []string{"create", "list", "diff", "export"} {
		found := false
		for _, cmd := range baselineCmd.Commands() {
			if strings.HasPrefix(cmd.Use, sub) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("baseline should have subcommand %q", sub)
		}
	}
}

// TestCommandFlags tests that commands have expected flags
func TestCommandFlags(t *testing.T) {
	tests := []struct {
		cmd     *cobra.Command
		flags   []string
		cmdName string
	}{
		{newCmd, []string{"title", "status", "priority", "body", "verifies"}, "new"},
		{listCmd, []string{"deleted"}, "list"},
		{editCmd, []string{"title", "status", "priority", "body", "verifies"}, "edit"},
		{linkAddCmd, []string{"type"}, "link add"},
		{linkRemoveCmd, []string{"type"}, "link remove"},
		{impactCmd, []string{"direction", "max-depth"}, "impact"},
		{baselineCreateCmd, []string{"label", "message"}, "baseline create"},
		{baselineExportCmd, []string{"out"}, "baseline export"},
		{historyCmd, []string{"limit"}, "history"},
		{nextIDCmd, []string{"block"}, "next-id"},
	}

	for _, tt := range tests {
		for _, flagName := range tt.flags {
			if tt.cmd.Flags().Lookup(flagName) == nil {
				t.Errorf("%s should have --%s flag", tt.cmdName, flagName)
			}
		}
	}

	for _, flagName := range []string{"dir", "remote", "log-level", "sync", "no-cache"} {
		if rootCmd.PersistentFlags().Lookup(flagName) == nil {
			t.Errorf("root should have persistent --%s flag", flagName)
		}
	}
}

// TestFlagsHaveDefaults tests that flags have appropriate defaults
func TestFlagsHaveDefaults(t *testing.T) {
	flag := impactCmd.Flags().Lookup("direction")
	if flag != nil && flag.DefValue != "downstream" {
		t.Errorf("impact --direction should default to downstream, got %s", flag.DefValue)
	}
	flag = nextIDCmd.Flags().Lookup("block")
	if flag != nil && flag.DefValue != "1" {
		t.Errorf("next-id --block should default to 1, got %s", flag.DefValue)
	}
	flag = historyCmd.Flags().Lookup("limit")
	if flag != nil && flag.DefValue != "0" {
		t.Errorf("history --limit should default to 0, got %s", flag.DefValue)
	}
}

// TestSubcommandArgs tests that commands validate argument counts
func TestSubcommandArgs(t *testing.T) {
	exactArgsCommands := []struct {
		cmd  *cobra.Command
		args int
	}{
		{initCmd, 1},
		{newCmd, 1},
		{showCmd, 1},
		{editCmd, 1},
		{purgeCmd, 1},
		{linkAddCmd, 2},
		{linkRemoveCmd, 2},
		{impactCmd, 1},
		{baselineDiffCmd, 2},
		{historyCmd, 1},
		{nextIDCmd, 1},
	}

	for _, tt := range exactArgsCommands {
		wrongArgs := make([]string, tt.args+1)
		if err := tt.cmd.Args(tt.cmd, wrongArgs); err == nil {
			t.Errorf("%s should reject %d args", tt.cmd.Use, tt.args+1)
		}
	}

	if err := listCmd.Args(listCmd, nil); err != nil {
		t.Errorf("list should accept zero arguments, got error: %v", err)
	}
	if err := listCmd.Args(listCmd, []string{"requirement"}); err != nil {
		t.Errorf("list should accept one argument, got error: %v", err)
	}
}

// TestShortHash tests the shortHash helper function
func TestShortHash(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"1234567890123456", "123456789012"},
		{"123456789012", "123456789012"},
		{"12345678901", "12345678901"},
		{"short", "short"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := shortHash(tt.input); got != tt.expected {
			t.Errorf("shortHash(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

// TestSplitList tests comma-separated flag parsing
func TestSplitList(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"", nil},
		{"REQ-001", []string{"REQ-001"}},
		{"REQ-001,REQ-002", []string{"REQ-001", "REQ-002"}},
		{" REQ-001 , REQ-002 ", []string{"REQ-001", "REQ-002"}},
		{"REQ-001,,REQ-002", []string{"REQ-001", "REQ-002"}},
	}

	for _, tt := range tests {
		got := splitList(tt.input)
		if len(got) != len(tt.expected) {
			t.Errorf("splitList(%q) = %v, want %v", tt.input, got, tt.expected)
			continue
		}
		for i := range got {
			if got[i] != tt.expected[i] {
				t.Errorf("splitList(%q)[%d] = %q, want %q", tt.input, i, got[i], tt.expected[i])
			}
		}
	}
}

// TestLinkTypeNames tests the relation list used in help text
func TestLinkTypeNames(t *testing.T) {
	names := linkTypeNames()
	for _, want := range []string{"verifies", "satisfies", "depends_on"} {
		if !strings.Contains(names, want) {
			t.Errorf("linkTypeNames() should contain %q, got %q", want, names)
		}
	}
}

// withProjectDir points the global --dir flag at dir for one test.
func withProjectDir(t *testing.T, dir string) {
	t.Helper()
	flagDir = dir
	t.Cleanup(func() { flagDir = "" })
}

// TestRunInitCreatesProject tests that init scaffolds a full project
func TestRunInitCreatesProject(t *testing.T) {
	tmpDir := t.TempDir()
	withProjectDir(t, tmpDir)

	if err := runInit(initCmd, []string{"pump"}); err != nil {
		t.Fatalf("runInit failed: %v", err)
	}

	for _, path := range []string{
		".tracyfy/project.yaml",
		".git",
		"requirements/.gitkeep",
		"testcases/.gitkeep",
		"counters/.gitkeep",
	} {
		if _, err := os.Stat(filepath.Join(tmpDir, path)); os.IsNotExist(err) {
			t.Errorf("%s should exist after init", path)
		}
	}
}

// TestRunInitRejectsReinit tests that a second init in the same directory fails
func TestRunInitRejectsReinit(t *testing.T) {
	tmpDir := t.TempDir()
	withProjectDir(t, tmpDir)

	if err := runInit(initCmd, []string{"pump"}); err != nil {
		t.Fatalf("first runInit failed: %v", err)
	}
	if err := runInit(initCmd, []string{"pump"}); err == nil {
		t.Error("second runInit should fail, project already initialized")
	}
}

// TestRunNewCreatesArtifact tests the init -> new flow end to end
func TestRunNewCreatesArtifact(t *testing.T) {
	tmpDir := t.TempDir()
	withProjectDir(t, tmpDir)

	if err := runInit(initCmd, []string{"pump"}); err != nil {
		t.Fatalf("runInit failed: %v", err)
	}

	newTitle = "Pump stops on overpressure"
	newStatus = ""
	newPriority = "high"
	newBody = ""
	newVerifies = ""
	t.Cleanup(func() {
		newTitle, newStatus, newPriority, newBody, newVerifies = "", "", "", "", ""
	})

	if err := runNew(newCmd, []string{"requirement"}); err != nil {
		t.Fatalf("runNew failed: %v", err)
	}

	content, err := os.ReadFile(filepath.Join(tmpDir, "requirements", "REQ-001.md"))
	if err != nil {
		t.Fatalf("reading created artifact: %v", err)
	}
	if !strings.Contains(string(content), "Pump stops on overpressure") {
		t.Error("artifact file should carry the title")
	}
}

// TestRunNewRejectsUnknownType tests type validation before any project access
func TestRunNewRejectsUnknownType(t *testing.T) {
	if err := runNew(newCmd, []string{"epic"}); err == nil {
		t.Error("runNew should reject an unknown artifact type")
	}
}
