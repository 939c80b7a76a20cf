package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kbforge/kbmcp/configs"
	"github.com/kbforge/kbmcp/internal/config"
	"github.com/kbforge/kbmcp/internal/output"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage the kbmcp configuration files.

Configuration precedence (lowest to highest):
  1. Hardcoded defaults
  2. User config (~/.config/kbmcp/config.yaml)
  3. Project config (.kbmcp.yaml)
  4. Environment variables (KBMCP_*)

Credentials belong in environment variables (KBMCP_QUERY_KEY_ID,
KBMCP_QUERY_SECRET, KBMCP_INDEXING_KEY_ID, KBMCP_INDEXING_SECRET), not
in config files. 'config show' masks any secret it finds.`,
		Example: `  # Create user config from template
  kbmcp config init

  # Show effective configuration (merged from all sources)
  kbmcp config show

  # Print user config file path
  kbmcp config path`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var (
		force   bool
		project bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a configuration file from a template",
		Long: `Create a configuration file from a template.

By default the user/global config is created at
~/.config/kbmcp/config.yaml (or under $XDG_CONFIG_HOME when set).
With --project a .kbmcp.yaml is created in the current directory
instead, for settings that should travel with the project.`,
		Example: `  # Create user config
  kbmcp config init

  # Create a project config in the current directory
  kbmcp config init --project

  # Overwrite an existing file
  kbmcp config init --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if project {
				return runConfigInitProject(cmd, force)
			}
			return runConfigInitUser(cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")
	cmd.Flags().BoolVar(&project, "project", false, "Create a project config (.kbmcp.yaml) instead")

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var (
		jsonOutput bool
		source     string
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Long: `Show the effective configuration after merging all sources.

Secrets are always masked in the output.`,
		Example: `  # Show merged configuration
  kbmcp config show

  # Show as JSON
  kbmcp config show --json

  # Show only the user config file
  kbmcp config show --source user`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigShow(cmd, jsonOutput, source)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&source, "source", "merged", "Config source: merged, user, project, defaults")

	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print user config file path",
		Long:  `Print the path to the user configuration file.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), config.GetUserConfigPath())
			return nil
		},
	}
}

func runConfigInitUser(cmd *cobra.Command, force bool) error {
	out := output.New(cmd.OutOrStdout())

	userPath := config.GetUserConfigPath()
	if config.UserConfigExists() && !force {
		out.Warning("User configuration already exists")
		out.Statusf("📁", "Location: %s", userPath)
		out.Status("", "Use --force to overwrite it with the template.")
		return nil
	}

	if err := os.MkdirAll(config.GetUserConfigDir(), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(userPath, []byte(configs.UserConfigTemplate), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out.Success("Created user configuration")
	out.Statusf("📁", "Location: %s", userPath)
	out.Newline()
	out.Status("", "Edit the file to point at your knowledge base, export the")
	out.Status("", "credential environment variables, then run `kbmcp status`.")
	return nil
}

func runConfigInitProject(cmd *cobra.Command, force bool) error {
	out := output.New(cmd.OutOrStdout())

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}
	projectPath := filepath.Join(cwd, ".kbmcp.yaml")

	if _, err := os.Stat(projectPath); err == nil && !force {
		out.Warning("Project configuration already exists")
		out.Statusf("📁", "Location: %s", projectPath)
		out.Status("", "Use --force to overwrite it with the template.")
		return nil
	}

	if err := os.WriteFile(projectPath, []byte(configs.ProjectConfigTemplate), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out.Success("Created project configuration")
	out.Statusf("📁", "Location: %s", projectPath)
	return nil
}

func runConfigShow(cmd *cobra.Command, jsonOutput bool, source string) error {
	out := output.New(cmd.OutOrStdout())

	var cfg *config.Config
	var sourceDesc string

	switch source {
	case "merged":
		loaded, err := loadConfig()
		if err != nil {
			return err
		}
		cfg = loaded
		sourceDesc = "merged (defaults + user + project + env)"

	case "user":
		userPath := config.GetUserConfigPath()
		if !config.UserConfigExists() {
			out.Warning("No user configuration file found")
			out.Statusf("📁", "Expected at: %s", userPath)
			out.Status("", "Run `kbmcp config init` to create one.")
			return nil
		}
		loaded, err := config.LoadUserConfig()
		if err != nil {
			return err
		}
		cfg = loaded
		sourceDesc = fmt.Sprintf("user (%s)", userPath)

	case "project":
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current directory: %w", err)
		}
		projectPath := filepath.Join(cwd, ".kbmcp.yaml")
		if _, err := os.Stat(projectPath); err != nil {
			projectPath = filepath.Join(cwd, ".kbmcp.yml")
			if _, err := os.Stat(projectPath); err != nil {
				out.Warning("No project configuration file found")
				out.Statusf("📁", "Expected at: %s", filepath.Join(cwd, ".kbmcp.yaml"))
				out.Status("", "Run `kbmcp config init --project` to create one.")
				return nil
			}
		}
		cfg = config.NewConfig()
		data, err := os.ReadFile(projectPath)
		if err != nil {
			return fmt.Errorf("failed to read project config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse project config: %w", err)
		}
		sourceDesc = fmt.Sprintf("project (%s)", projectPath)

	case "defaults":
		cfg = config.NewConfig()
		sourceDesc = "defaults (hardcoded)"

	default:
		return fmt.Errorf("invalid source: %s (use: merged, user, project, defaults)", source)
	}

	// Secrets never reach the terminal, whatever the source.
	redacted := cfg.Redacted()

	if jsonOutput {
		data, err := json.MarshalIndent(redacted, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	out.Statusf("📋", "Configuration source: %s", sourceDesc)
	out.Newline()

	data, err := yaml.Marshal(redacted)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
