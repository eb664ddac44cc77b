// Package main provides the tracyfy CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Neizinp/tracyfy-sub003/internal/artifact"
	"github.com/Neizinp/tracyfy-sub003/internal/baseline"
	"github.com/Neizinp/tracyfy-sub003/internal/cache"
	"github.com/Neizinp/tracyfy-sub003/internal/config"
	"github.com/Neizinp/tracyfy-sub003/internal/fsio"
	"github.com/Neizinp/tracyfy-sub003/internal/gap"
	"github.com/Neizinp/tracyfy-sub003/internal/impact"
	"github.com/Neizinp/tracyfy-sub003/internal/link"
	"github.com/Neizinp/tracyfy-sub003/internal/project"
	"github.com/Neizinp/tracyfy-sub003/internal/status"
	"github.com/Neizinp/tracyfy-sub003/internal/vault"
	"github.com/Neizinp/tracyfy-sub003/internal/vcs"
)

// Version is the current tracyfy CLI version
var Version = "0.5.0"

// Global flags, merged over the TRACYFY_* environment in loadConfig.
var (
	flagDir      string
	flagRemote   string
	flagLogLevel string
	flagSync     bool
	flagNoCache  bool
)

var rootCmd = &cobra.Command{
	Use:     "tracyfy",
	Short:   "Tracyfy - git-native requirements traceability",
	Long:    `Tracyfy stores requirements, use cases, test cases, information items and risks as Markdown files with YAML front matter, records every change as a git commit, and derives traceability graphs, impact chains, coverage gaps and immutable baselines from the stored state.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		level, err := logrus.ParseLevel(cfg.LogLevel)
		if err != nil {
			level = logrus.InfoLevel
		}
		logrus.SetLevel(level)
	},
}

var initCmd = &cobra.Command{
	Use:   "init <name>",
	Short: "Initialize a tracyfy project in the project directory",
	Long: `Creates the project layout: one folder per artifact type, the counter
files, the .tracyfy state directory with the project manifest, and a git
repository with the initial commit.

Examples:
  tracyfy init pump-controller
  tracyfy --dir ./projects/pump init pump-controller`,
	Args: cobra.ExactArgs(1),
	RunE: runInit,
}

var (
	newTitle    string
	newStatus   string
	newPriority string
	newBody     string
	newVerifies string
)

var newCmd = &cobra.Command{
	Use:   "new <type>",
	Short: "Create an artifact with the next free ID",
	Long: `Creates an artifact of the given type. The ID is allocated from the
type's counter and never reused; allocation and the new file land as two
commits.

Types: requirement, usecase, testcase, information, risk
(abbreviations req, uc, tc, info are accepted).

Examples:
  tracyfy new requirement --title "Pump stops on overpressure"
  tracyfy new testcase --title "Overpressure shutdown" --verifies REQ-001,REQ-002
  tracyfy new risk --title "Sensor drift" --priority high --body "See datasheet."`,
	Args: cobra.ExactArgs(1),
	RunE: runNew,
}

var listDeleted bool

var listCmd = &cobra.Command{
	Use:   "list [type]",
	Short: "List artifacts, optionally restricted to one type",
	Args:  cobra.RangeArgs(0, 1),
	RunE:  runList,
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one artifact's fields and body",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var (
	editTitle    string
	editStatus   string
	editPriority string
	editBody     string
	editVerifies string
)

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Update an artifact's fields",
	Long: `Updates the given fields and bumps the artifact revision. Fields not
passed keep their current value.

Examples:
  tracyfy edit REQ-001 --status approved
  tracyfy edit TC-003 --verifies REQ-001,REQ-004`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Soft-delete an artifact",
	Long: `Marks the artifact deleted without removing its file, links or
history. The revision is untouched; restore brings it back unchanged.`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

var restoreCmd = &cobra.Command{
	Use:   "restore <id>",
	Short: "Restore a soft-deleted artifact",
	Args:  cobra.ExactArgs(1),
	RunE:  runRestore,
}

var purgeCmd = &cobra.Command{
	Use:   "purge <id>",
	Short: "Permanently delete an artifact and cascade",
	Long: `Removes the artifact file, deletes every link record touching it,
strips references to it from other artifacts (bumping their revisions) and
updates the project membership, all in one commit. The ID is never reused.`,
	Args: cobra.ExactArgs(1),
	RunE: runPurge,
}

var linkType string

var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "Manage links between artifacts",
}

var linkAddCmd = &cobra.Command{
	Use:   "add <source-id> <target-id>",
	Short: "Add a typed link between two artifacts",
	Long: `Creates a standalone link record and commits it.

Relation types: ` + linkTypeNames() + `.

Examples:
  tracyfy link add TC-001 REQ-001 --type verifies
  tracyfy link add REQ-002 REQ-001 --type refines`,
	Args: cobra.ExactArgs(2),
	RunE: runLinkAdd,
}

var linkRemoveCmd = &cobra.Command{
	Use:   "remove <source-id> <target-id>",
	Short: "Remove a link between two artifacts",
	Args:  cobra.ExactArgs(2),
	RunE:  runLinkRemove,
}

var linkListCmd = &cobra.Command{
	Use:   "list [artifact-id]",
	Short: "List link records, optionally those touching one artifact",
	Args:  cobra.RangeArgs(0, 1),
	RunE:  runLinkList,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Fold embedded front-matter links into standalone records",
	Long: `Converts legacy links embedded in artifact front matter into
standalone link records, deduplicating against existing records, and clears
the embedded arrays. Running it again is a no-op.`,
	RunE: runMigrate,
}

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Print the merged traceability graph",
	RunE:  runGraph,
}

var (
	impactDirection string
	impactMaxDepth  int
)

var impactCmd = &cobra.Command{
	Use:   "impact <id>",
	Short: "Compute the transitive impact chain of an artifact",
	Long: `Walks the traceability graph breadth-first from the artifact and
prints every artifact reached, grouped by distance.

Directions:
  downstream  follow outgoing links (what this artifact affects)
  upstream    follow incoming links (what affects this artifact)
  both        follow both ways, downstream first

Examples:
  tracyfy impact REQ-001
  tracyfy impact REQ-001 --direction upstream
  tracyfy impact UC-002 --direction both --max-depth 3`,
	Args: cobra.ExactArgs(1),
	RunE: runImpact,
}

var gapsCmd = &cobra.Command{
	Use:   "gaps",
	Short: "Classify traceability gaps across all artifacts",
	Long: `Classifies every artifact's connectivity:

  orphan_link  a link points at an artifact that does not exist
  unlinked     no links at all
  no_outgoing  incoming links only
  no_incoming  outgoing links only
  none         connected both ways`,
	RunE: runGaps,
}

var (
	baselineLabel   string
	baselineMessage string
	baselineOut     string
)

var baselineCmd = &cobra.Command{
	Use:   "baseline",
	Short: "Manage immutable project baselines",
}

var baselineCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a baseline at the current HEAD",
	Long: `Pins every artifact to its last commit at HEAD, tags the commit and
writes the baseline record. Baselines are immutable; labels cannot be
reused.

Examples:
  tracyfy baseline create
  tracyfy baseline create --label release-1.0 --message "First customer release"`,
	RunE: runBaselineCreate,
}

var baselineListCmd = &cobra.Command{
	Use:   "list",
	Short: "List baselines oldest-first",
	RunE:  runBaselineList,
}

var baselineDiffCmd = &cobra.Command{
	Use:   "diff <current-label> <previous-label>",
	Short: "Compare two baselines",
	Args:  cobra.ExactArgs(2),
	RunE:  runBaselineDiff,
}

var baselineExportCmd = &cobra.Command{
	Use:   "export <label>",
	Short: "Export a baseline as a compressed pack",
	Long: `Writes a zstd-compressed pack holding every artifact's content as
pinned by the baseline. The pack is self-describing and reproducible:
exporting the same baseline twice yields identical bytes.`,
	Args: cobra.ExactArgs(1),
	RunE: runBaselineExport,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show artifact files that differ from HEAD",
	RunE:  runStatus,
}

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history <id>",
	Short: "Show the commit history of one artifact",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

var nextIDBlock int

var nextIDCmd = &cobra.Command{
	Use:   "next-id <type>",
	Short: "Allocate the next artifact ID without creating a file",
	Long: `Reserves IDs from the type's counter. The counter write is committed,
so a reserved ID is never handed out twice, even if the artifact is created
later or elsewhere. With --sync the counter is pulled before and pushed
after allocation.

Examples:
  tracyfy next-id requirement
  tracyfy next-id testcase --block 5
  tracyfy --sync next-id requirement`,
	Args: cobra.ExactArgs(1),
	RunE: runNextID,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDir, "dir", "", "Project directory (default \".\", env TRACYFY_DIR)")
	rootCmd.PersistentFlags().StringVar(&flagRemote, "remote", "", "Git remote for counter sync (default \"origin\", env TRACYFY_REMOTE)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error (env TRACYFY_LOG_LEVEL)")
	rootCmd.PersistentFlags().BoolVar(&flagSync, "sync", false, "Pull and push around ID allocation (env TRACYFY_SYNC)")
	rootCmd.PersistentFlags().BoolVar(&flagNoCache, "no-cache", false, "Disable the sqlite scan cache (env TRACYFY_NO_CACHE)")

	newCmd.Flags().StringVar(&newTitle, "title", "", "Artifact title (required)")
	newCmd.Flags().StringVar(&newStatus, "status", "", "Initial status (default \"draft\")")
	newCmd.Flags().StringVar(&newPriority, "priority", "", "Priority")
	newCmd.Flags().StringVar(&newBody, "body", "", "Markdown body")
	newCmd.Flags().StringVar(&newVerifies, "verifies", "", "Comma-separated requirement IDs a test case verifies")
	newCmd.MarkFlagRequired("title")

	listCmd.Flags().BoolVar(&listDeleted, "deleted", false, "Include soft-deleted artifacts")

	editCmd.Flags().StringVar(&editTitle, "title", "", "New title")
	editCmd.Flags().StringVar(&editStatus, "status", "", "New status")
	editCmd.Flags().StringVar(&editPriority, "priority", "", "New priority")
	editCmd.Flags().StringVar(&editBody, "body", "", "New Markdown body")
	editCmd.Flags().StringVar(&editVerifies, "verifies", "", "Comma-separated requirement IDs, replaces the current list")

	// Link subcommands
	linkAddCmd.Flags().StringVar(&linkType, "type", "", "Relation type (required)")
	linkAddCmd.MarkFlagRequired("type")
	linkRemoveCmd.Flags().StringVar(&linkType, "type", "", "Relation type (required)")
	linkRemoveCmd.MarkFlagRequired("type")
	linkCmd.AddCommand(linkAddCmd)
	linkCmd.AddCommand(linkRemoveCmd)
	linkCmd.AddCommand(linkListCmd)

	impactCmd.Flags().StringVar(&impactDirection, "direction", "downstream", "Traversal direction: downstream, upstream, both")
	impactCmd.Flags().IntVar(&impactMaxDepth, "max-depth", 0, "Maximum traversal depth (0 = unlimited)")

	// Baseline subcommands
	baselineCreateCmd.Flags().StringVar(&baselineLabel, "label", "", "Baseline label (default v1, v2, ...)")
	baselineCreateCmd.Flags().StringVar(&baselineMessage, "message", "", "Tag message")
	baselineExportCmd.Flags().StringVar(&baselineOut, "out", "", "Output file (default <label>.pack)")
	baselineCmd.AddCommand(baselineCreateCmd)
	baselineCmd.AddCommand(baselineListCmd)
	baselineCmd.AddCommand(baselineDiffCmd)
	baselineCmd.AddCommand(baselineExportCmd)

	historyCmd.Flags().IntVar(&historyLimit, "limit", 0, "Limit the number of commits (0 = all)")

	nextIDCmd.Flags().IntVar(&nextIDBlock, "block", 1, "Reserve this many consecutive IDs in one counter write")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(purgeCmd)
	rootCmd.AddCommand(linkCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(impactCmd)
	rootCmd.AddCommand(gapsCmd)
	rootCmd.AddCommand(baselineCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(nextIDCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the TRACYFY_* environment and overlays the global flags.
func loadConfig() *config.Config {
	cfg := config.FromArgs(flagDir, flagRemote)
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	if flagSync {
		cfg.Sync = true
	}
	if flagNoCache {
		cfg.NoCache = true
	}
	return cfg
}

// session is an opened project plus the services commands run against.
type session struct {
	cfg   *config.Config
	proj  *project.Project
	vault *vault.Vault
	cache *cache.Cache
	close func()
}

// openSession opens the configured project directory. The scan cache is
// optional: when it cannot be opened the session runs without one.
func openSession() (*session, error) {
	cfg := loadConfig()
	files, err := fsio.NewDir(cfg.ProjectDir)
	if err != nil {
		return nil, err
	}
	repo := vcs.New(files.Root(), vcs.WithRemote(cfg.Remote))
	proj, err := project.OpenFS(files, repo, files.Root())
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, proj: proj, close: func() {}}
	var opts []vault.Option
	if !cfg.NoCache {
		c, err := cache.Open(files.Root())
		if err != nil {
			logrus.Debugf("scan cache unavailable: %v", err)
		} else {
			s.cache = c
			s.close = func() { c.Close() }
			opts = append(opts, vault.WithCache(c))
		}
	}
	s.vault = vault.New(proj, opts...)
	return s, nil
}

func (s *session) baselines() *baseline.Manager {
	return baseline.NewManager(s.proj.Files, s.proj.Repo, s.proj.Matcher, s.proj.Manifest.Name)
}

// syncBefore pulls when sync is enabled. Failures are logged and swallowed;
// the operation proceeds on local state.
func (s *session) syncBefore() {
	if !s.cfg.Sync {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.SyncTimeout)
	defer cancel()
	if err := s.proj.Repo.Pull(ctx); err != nil {
		logrus.Debugf("pull skipped: %v", err)
	}
}

// syncAfter pushes when sync is enabled, best-effort like syncBefore.
func (s *session) syncAfter() {
	if !s.cfg.Sync {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.SyncTimeout)
	defer cancel()
	if err := s.proj.Repo.Push(ctx); err != nil {
		logrus.Debugf("push skipped: %v", err)
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	proj, err := project.Create(args[0], cfg.ProjectDir)
	if err != nil {
		return err
	}
	fmt.Printf("Initialized project %s in %s\n", proj.Manifest.Name, proj.Dir)
	return nil
}

func runNew(cmd *cobra.Command, args []string) error {
	t, err := artifact.ParseType(args[0])
	if err != nil {
		return err
	}
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	draft := vault.Draft{
		Title:    newTitle,
		Status:   newStatus,
		Priority: newPriority,
		Body:     newBody,
		Verifies: splitList(newVerifies),
	}

	s.syncBefore()
	a, err := s.vault.Create(t, draft)
	if err != nil {
		return err
	}
	s.syncAfter()

	fmt.Printf("Created %s: %s\n", a.ID, a.Title)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	var only artifact.Type
	if len(args) == 1 {
		t, err := artifact.ParseType(args[0])
		if err != nil {
			return err
		}
		only = t
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	artifacts, err := s.vault.LoadAll()
	if err != nil {
		return err
	}

	shown := 0
	for _, a := range artifacts {
		if only != artifact.TypeUnknown && a.Type != only {
			continue
		}
		if a.IsDeleted && !listDeleted {
			continue
		}
		marker := ""
		if a.IsDeleted {
			marker = "  (deleted)"
		}
		fmt.Printf("%-10s %-12s rev %s  %s%s\n", a.ID, a.Status, a.Revision, a.Title, marker)
		shown++
	}
	if shown == 0 {
		fmt.Println("No artifacts found.")
	}
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	a, err := s.vault.Get(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("ID:        %s\n", a.ID)
	fmt.Printf("Type:      %s\n", a.Type)
	fmt.Printf("Title:     %s\n", a.Title)
	fmt.Printf("Status:    %s\n", a.Status)
	if a.Priority != "" {
		fmt.Printf("Priority:  %s\n", a.Priority)
	}
	fmt.Printf("Revision:  %s\n", a.Revision)
	fmt.Printf("Created:   %s\n", a.DateCreated.Format("2006-01-02 15:04:05"))
	fmt.Printf("Modified:  %s\n", a.LastModified.Format("2006-01-02 15:04:05"))
	if len(a.Verifies) > 0 {
		fmt.Printf("Verifies:  %s\n", strings.Join(a.Verifies, ", "))
	}
	if a.IsDeleted {
		fmt.Printf("Deleted:   %s\n", a.DeletedAt.Format("2006-01-02 15:04:05"))
	}
	if a.Body != "" {
		fmt.Println()
		fmt.Println(strings.TrimRight(a.Body, "\n"))
	}
	return nil
}

func runEdit(cmd *cobra.Command, args []string) error {
	if editTitle == "" && editStatus == "" && editPriority == "" && editBody == "" && editVerifies == "" {
		return fmt.Errorf("nothing to change")
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	a, err := s.vault.Update(args[0], vault.Draft{
		Title:    editTitle,
		Status:   editStatus,
		Priority: editPriority,
		Body:     editBody,
		Verifies: splitList(editVerifies),
	})
	if err != nil {
		return err
	}
	fmt.Printf("Updated %s (rev %s)\n", a.ID, a.Revision)
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	a, err := s.vault.SoftDelete(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Deleted %s (restore with 'tracyfy restore %s')\n", a.ID, a.ID)
	return nil
}

func runRestore(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	a, err := s.vault.Restore(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Restored %s\n", a.ID)
	return nil
}

func runPurge(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.vault.PermanentDelete(args[0]); err != nil {
		return err
	}
	fmt.Printf("Purged %s\n", args[0])
	return nil
}

func runLinkAdd(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	l, err := s.vault.AddLink(args[0], args[1], link.Type(linkType))
	if err != nil {
		return err
	}
	fmt.Printf("Linked %s to %s (%s)\n", l.SourceID, l.TargetID, l.Type)
	return nil
}

func runLinkRemove(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.vault.RemoveLink(args[0], args[1], link.Type(linkType)); err != nil {
		return err
	}
	fmt.Printf("Unlinked %s from %s (%s)\n", args[0], args[1], linkType)
	return nil
}

func runLinkList(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	links, err := s.vault.Links().List()
	if err != nil {
		return err
	}

	shown := 0
	for _, l := range links {
		if len(args) == 1 && l.SourceID != args[0] && l.TargetID != args[0] {
			continue
		}
		scope := ""
		if l.Scope == link.ScopeGlobal {
			scope = "  [global]"
		}
		fmt.Printf("%s -%s-> %s%s\n", l.SourceID, l.Type, l.TargetID, scope)
		shown++
	}
	if shown == 0 {
		fmt.Println("No link records.")
	}
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	created, err := s.vault.MigrateEmbedded()
	if err != nil {
		return err
	}
	if len(created) == 0 {
		fmt.Println("No embedded links to migrate.")
		return nil
	}
	fmt.Printf("Migrated %d embedded links into records.\n", len(created))
	return nil
}

func runGraph(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	g, err := s.vault.BuildGraph()
	if err != nil {
		return err
	}

	fmt.Printf("%d artifacts, %d links\n", g.Size(), g.EdgeCount())
	fmt.Println()
	for _, a := range g.Artifacts() {
		fmt.Printf("%-10s %s\n", a.ID, a.Title)
	}
	if g.EdgeCount() > 0 {
		fmt.Println()
		for _, e := range g.Edges() {
			fmt.Printf("%s -%s-> %s\n", e.SourceID, e.Type, e.TargetID)
		}
	}
	return nil
}

func runImpact(cmd *cobra.Command, args []string) error {
	direction := impact.Direction(impactDirection)
	switch direction {
	case impact.Downstream, impact.Upstream, impact.Both:
	default:
		return fmt.Errorf("unknown direction %q (use downstream, upstream or both)", impactDirection)
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	g, err := s.vault.BuildGraph()
	if err != nil {
		return err
	}

	chain := impact.Compute(g, args[0], impact.Options{Direction: direction, MaxDepth: impactMaxDepth})
	if len(chain.Nodes) == 0 {
		fmt.Printf("No artifacts reached from %s.\n", args[0])
		return nil
	}

	summary := impact.Summarize(chain)
	for level := 1; level <= summary.MaxDepth; level++ {
		nodes := chain.ByLevel[level]
		if len(nodes) == 0 {
			continue
		}
		fmt.Printf("Level %d:\n", level)
		for _, n := range nodes {
			line := fmt.Sprintf("  %-10s %s from %s", n.ArtifactID, n.LinkType, n.ParentID)
			if direction == impact.Both && n.Direction == impact.Upstream {
				line += "  (upstream)"
			}
			fmt.Println(line)
		}
	}
	fmt.Println()
	fmt.Printf("%d affected (%d downstream, %d upstream), depth %d\n",
		summary.Total, summary.Downstream, summary.Upstream, summary.MaxDepth)
	return nil
}

func runGaps(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	g, err := s.vault.BuildGraph()
	if err != nil {
		return err
	}
	report := gap.Detect(g)
	if report.Total == 0 {
		fmt.Println("No artifacts loaded.")
		return nil
	}

	for _, class := range gap.Classes() {
		fmt.Printf("%-12s %d\n", class, report.Counts[class])
	}

	printed := false
	for _, f := range report.Findings {
		if f.Class == gap.None {
			continue
		}
		if !printed {
			fmt.Println()
			printed = true
		}
		line := fmt.Sprintf("%s: %s", f.ArtifactID, f.Class)
		if len(f.OrphanTargets) > 0 {
			line += " (missing " + strings.Join(f.OrphanTargets, ", ") + ")"
		}
		fmt.Println(line)
	}
	return nil
}

func runBaselineCreate(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	b, err := s.baselines().Create(baselineLabel, baselineMessage)
	if err != nil {
		return err
	}
	fmt.Printf("Created baseline %s at %s (%d artifacts)\n", b.Name, shortHash(b.Commit), len(b.Artifacts))
	return nil
}

func runBaselineList(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	all, err := s.baselines().List()
	if err != nil {
		return err
	}
	if len(all) == 0 {
		fmt.Println("No baselines.")
		return nil
	}
	for _, b := range all {
		fmt.Printf("%-16s %s  %3d artifacts  %s\n",
			b.Label, b.CreatedAt.Format("2006-01-02 15:04"), len(b.Artifacts), shortHash(b.Commit))
	}
	return nil
}

func runBaselineDiff(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	d, err := s.baselines().Compare(args[0], args[1])
	if err != nil {
		return err
	}

	fmt.Printf("Baseline %s against %s\n", d.Current, d.Previous)
	if len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Modified) == 0 {
		fmt.Println("No differences.")
		return nil
	}
	fmt.Println()
	for _, id := range d.Added {
		fmt.Printf("  added     %s\n", id)
	}
	for _, id := range d.Removed {
		fmt.Printf("  removed   %s\n", id)
	}
	for _, mod := range d.Modified {
		fmt.Printf("  modified  %s  rev %s -> %s\n", mod.ID, mod.FromRevision, mod.ToRevision)
	}
	return nil
}

func runBaselineExport(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	m := s.baselines()
	b, err := m.Get(args[0])
	if err != nil {
		return err
	}
	data, err := m.Export(b)
	if err != nil {
		return err
	}

	out := baselineOut
	if out == "" {
		out = baseline.Slug(b.Label) + ".pack"
	}
	if err := os.WriteFile(out, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}
	fmt.Printf("Exported %s to %s (%d bytes)\n", b.Name, out, len(data))
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	if _, err := os.Stat(filepath.Join(cfg.ProjectDir, project.ManifestPath)); os.IsNotExist(err) {
		fmt.Println("Not a tracyfy project (run 'tracyfy init' to initialize)")
		return nil
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	result, err := status.Compute(s.proj.Files, s.proj.Repo, s.proj.Matcher, status.Options{Cache: s.cache})
	if err != nil {
		return err
	}
	if !result.HasChanges() {
		fmt.Println("Working tree matches HEAD.")
		return nil
	}

	for _, p := range result.Added {
		fmt.Printf("  added     %s\n", p)
	}
	for _, p := range result.Modified {
		fmt.Printf("  modified  %s\n", p)
	}
	for _, p := range result.Deleted {
		fmt.Printf("  deleted   %s\n", p)
	}
	fmt.Println()
	fmt.Printf("%d changed files\n", result.TotalChanges())
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	commits, err := s.vault.History(args[0], historyLimit)
	if err != nil {
		return err
	}
	if len(commits) == 0 {
		fmt.Println("No history.")
		return nil
	}

	for i, c := range commits {
		if i > 0 {
			fmt.Println()
		}
		fmt.Printf("commit %s\n", shortHash(c.Hash))
		fmt.Printf("Date:    %s\n", c.When.Format("2006-01-02 15:04:05"))
		fmt.Printf("Message: %s\n", strings.TrimSpace(c.Message))
	}
	return nil
}

func runNextID(cmd *cobra.Command, args []string) error {
	t, err := artifact.ParseType(args[0])
	if err != nil {
		return err
	}
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	alloc := s.vault.Allocator()
	if nextIDBlock > 1 {
		s.syncBefore()
		ids, err := alloc.NextBlock(t, nextIDBlock)
		if err != nil {
			return err
		}
		s.syncAfter()
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	}

	var id string
	if s.cfg.Sync {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.SyncTimeout)
		defer cancel()
		id, err = alloc.NextWithSync(ctx, t)
	} else {
		id, err = alloc.Next(t)
	}
	if err != nil {
		return err
	}
	fmt.Println(id)
	return nil
}

// shortHash safely truncates a commit hash to 12 characters.
func shortHash(s string) string {
	if len(s) >= 12 {
		return s[:12]
	}
	return s
}

// splitList parses a comma-separated flag value, dropping empty elements.
// An empty value yields nil, which Draft treats as "leave unchanged".
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// linkTypeNames renders the closed relation set for help text.
func linkTypeNames() string {
	names := make([]string, 0, len(link.Types()))
	for _, t := range link.Types() {
		names = append(names, string(t))
	}
	return strings.Join(names, ", ")
}
