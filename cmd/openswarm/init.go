package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/yte121/openswarm/internal/store"
)

var (
	initForce          bool
	initSkipAgentCheck bool
)

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Initialize an openswarm project",
	Long: `Initialize a directory for use with openswarm.

This command sets up everything needed to run a swarm:
  - Verifies the agent CLI is available
  - Creates the .openswarm directory structure
  - Creates and migrates the project database
  - Writes a .openswarm.yaml configuration template

The directory argument is optional and defaults to the current directory.

Examples:
  openswarm init              # Initialize current directory
  openswarm init ./myproject  # Initialize specific directory
  openswarm init --force      # Reinitialize even if already set up`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Reinitialize even if already set up")
	initCmd.Flags().BoolVar(&initSkipAgentCheck, "skip-agent-check", false, "Skip agent CLI availability check")
}

func runInit(cmd *cobra.Command, args []string) error {
	targetDir := "."
	if len(args) > 0 {
		targetDir = args[0]
	}

	absPath, err := filepath.Abs(targetDir)
	if err != nil {
		return fmt.Errorf("resolving absolute path: %w", err)
	}

	if err := os.MkdirAll(absPath, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", absPath, err)
	}

	fmt.Printf("Initializing openswarm in %s...\n\n", absPath)

	swarmDir := filepath.Join(absPath, ".openswarm")
	if _, err := os.Stat(swarmDir); err == nil && !initForce {
		fmt.Println("Directory already initialized. Use --force to reinitialize.")
		return nil
	}

	if !initSkipAgentCheck {
		if err := CheckAgentCLI("claude"); err != nil {
			printStatus("✗", "Agent CLI not found", color.FgRed)
			return err
		}
		printStatus("✓", "Agent CLI found", color.FgGreen)
	}

	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		printStatus("⚠", "ANTHROPIC_API_KEY not set (static task breakdown will be used)", color.FgYellow)
	} else {
		printStatus("✓", "ANTHROPIC_API_KEY is set", color.FgGreen)
	}

	for _, sub := range []string{"signals", "prompts"} {
		if err := os.MkdirAll(filepath.Join(swarmDir, sub), 0755); err != nil {
			return fmt.Errorf("creating .openswarm/%s directory: %w", sub, err)
		}
	}
	printStatus("✓", "Created .openswarm directory structure", color.FgGreen)

	db, err := store.Open(store.ProjectDBPath(absPath))
	if err != nil {
		return fmt.Errorf("creating project database: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrating project database: %w", err)
	}
	printStatus("✓", "Created project database", color.FgGreen)

	if err := createProjectConfig(absPath); err != nil {
		return fmt.Errorf("creating project config: %w", err)
	}
	printStatus("✓", "Created .openswarm.yaml template", color.FgGreen)

	if err := updateGitignore(absPath); err != nil {
		return fmt.Errorf("updating .gitignore: %w", err)
	}
	printStatus("✓", "Updated .gitignore with openswarm entries", color.FgGreen)

	fmt.Printf("\n%s openswarm initialization complete!\n\n", color.GreenString("✓"))
	fmt.Println("Next steps:")
	if apiKey == "" {
		fmt.Println("  1. Set your API key (optional, enables smart decomposition):")
		fmt.Println("     export ANTHROPIC_API_KEY=your-key-here")
		fmt.Println()
	}
	fmt.Println("  2. Spawn a swarm:")
	fmt.Println("     openswarm spawn \"your objective here\"")
	fmt.Println()
	fmt.Println("  3. Learn more:")
	fmt.Println("     openswarm --help")

	return nil
}

// createProjectConfig writes the .openswarm.yaml template unless one exists.
func createProjectConfig(repoPath string) error {
	configPath := filepath.Join(repoPath, ".openswarm.yaml")

	if _, err := os.Stat(configPath); err == nil {
		return nil
	}

	template := `# openswarm project configuration
# This file overrides defaults from ~/.config/openswarm/config.yaml

# defaults:
#   queen_type: strategic
#   max_workers: 5
#   consensus_algorithm: majority
#   autosave_interval: 30s
#   agent_command: claude

# optimizer:
#   max_concurrency: 10
#   max_batch_size: 10
#   operation_timeout: 30s
#   tune_interval: 10s
#   cache_ttl: 30s
`

	return os.WriteFile(configPath, []byte(template), 0644)
}

// updateGitignore adds openswarm entries to .gitignore if not present.
func updateGitignore(repoPath string) error {
	gitignorePath := filepath.Join(repoPath, ".gitignore")

	var existingContent string
	if data, err := os.ReadFile(gitignorePath); err == nil {
		existingContent = string(data)
	}

	entries := []string{
		".openswarm/hive.db*",
		".openswarm/signals/",
		".openswarm/prompts/",
	}

	needsUpdate := false
	for _, entry := range entries {
		if !strings.Contains(existingContent, entry) {
			needsUpdate = true
			break
		}
	}
	if !needsUpdate {
		return nil
	}

	var newContent strings.Builder
	newContent.WriteString(existingContent)
	if len(existingContent) > 0 && !strings.HasSuffix(existingContent, "\n") {
		newContent.WriteString("\n")
	}

	newContent.WriteString("\n# openswarm\n")
	for _, entry := range entries {
		if !strings.Contains(existingContent, entry) {
			newContent.WriteString(entry + "\n")
		}
	}

	return os.WriteFile(gitignorePath, []byte(newContent.String()), 0644)
}

// printStatus prints a status line with color.
func printStatus(symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Printf("%s %s\n", c.Sprint(symbol), message)
}
