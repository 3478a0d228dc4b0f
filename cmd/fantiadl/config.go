package main

import (
	"fmt"
	"path/filepath"

	"github.com/Rusty-starlightExpress/fantiadl/pkg/auth"
	"github.com/Rusty-starlightExpress/fantiadl/pkg/config"
	"github.com/Rusty-starlightExpress/fantiadl/pkg/ui"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const defaultConfigPath = "fantiadl.yaml"

const exampleConfig = `# fantiadl configuration file
#
# Every option can also be set with FANTIADL_* environment variables,
# for example FANTIADL_SESSION_ID or FANTIADL_OUTPUT_DIR.
# Command line flags take precedence over both.

fantia:
  # _session_id cookie of a logged-in browser, or a cookies.txt path.
  # Prefer 'fantiadl auth login' over storing it here.
  session_id: ""

  # User agent sent with every request (optional)
  user_agent: ""

output:
  # Directory to download to
  directory: "."

  # Per-file name template
  # Fields: [post_id] [file_id] [title] [fanclub_name] [creator_name]
  #         [posted_at] [posted_short] [content_title] [ext]
  filename: "[post_id]_[file_id]"

  # Per-post directory template, '/' separates directories
  subdir_name: "[fanclub_name]（[creator_name]）/[posted_short]_[title]_[post_id]"

download:
  quiet: false
  continue_on_error: false

  # Maximum number of posts per fan club, 0 for no limit
  post_limit: 0

  # Only download posts from this month (YYYY-MM)
  month: ""

  # File listing filenames to skip, one per line
  exclude_file: ""

  dump_metadata: false
  parse_external_links: false
  download_thumbnail: false
  use_server_filenames: false
  mark_incomplete_posts: false

  # Per request timeout
  timeout: 60s

batch:
  # Fan club list with the last downloaded post of every fan club
  fanlist_file: "fanList.json"

  # Summary written after every batch run
  complete_log_file: "fantia_complete.json"

rate_limit:
  requests_per_minute: 60
  burst_size: 5

retry:
  max_attempts: 3
  initial_delay: 2s
  max_delay: 30s
  backoff_multiplier: 2.0

logging:
  # Log level: debug, info, warn, error
  level: "info"

  # Log file path (optional), logs go to stderr as well
  file: ""
`

func (a *app) newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration files",
		Long: `Manage fantiadl configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables
  - Configuration file
  - Default values (lowest priority)`,
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create an example configuration file",
		Long: `Create an example configuration file with all available options.

The file will be created in the current directory as 'fantiadl.yaml'
unless a different path is specified with the --config flag.`,
		Args: cobra.NoArgs,
		RunE: a.runConfigInit,
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long: `Show the current configuration including values from the
environment, the configuration file and defaults.

The session cookie is masked.`,
		Args: cobra.NoArgs,
		RunE: a.runConfigShow,
	}

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		Args:  cobra.NoArgs,
		RunE:  a.runConfigValidate,
	}

	configCmd.AddCommand(initCmd, showCmd, validateCmd)
	return configCmd
}

// configPath is where config init writes, the --config value or ./fantiadl.yaml
func (a *app) configPath() string {
	if a.configFile != "" {
		return a.configFile
	}
	return defaultConfigPath
}

func (a *app) runConfigInit(cmd *cobra.Command, args []string) error {
	path := a.configPath()

	if exists, _ := afero.Exists(a.fs, path); exists {
		return fmt.Errorf("configuration file already exists: %s", path)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := a.fs.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := afero.WriteFile(a.fs, path, []byte(exampleConfig), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	ui.PrintSuccess("Configuration file created: " + path)
	return nil
}

// runConfigShow prints the effective configuration with the session masked
func (a *app) runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.configFile, a.flagMap(cmd))
	if err != nil {
		return err
	}

	if cfg.Fantia.SessionID != "" {
		cfg.Fantia.SessionID = auth.MaskSecret(cfg.Fantia.SessionID)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	_, err = a.out.Write(data)
	return err
}

func (a *app) runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.configFile, a.flagMap(cmd))
	if err != nil {
		return err
	}

	// Warnings only, none of these stop a download
	if cfg.Fantia.SessionID == "" {
		ui.PrintWarning("No session cookie configured, the credential store or a prompt will be used")
	}
	if info, err := a.fs.Stat(cfg.Output.Directory); err == nil && !info.IsDir() {
		ui.PrintWarning("Output path is not a directory", cfg.Output.Directory)
	}
	if cfg.Download.ExcludeFile != "" {
		if _, err := a.fs.Stat(cfg.Download.ExcludeFile); err != nil {
			ui.PrintWarning("Exclude file is not readable", cfg.Download.ExcludeFile)
		}
	}

	ui.PrintSuccess("Configuration is valid")
	ui.PrintInfo("Output", cfg.Output.Directory)
	ui.PrintInfo("Fan club list", cfg.Batch.FanlistFile)
	ui.PrintInfo("Completion log", cfg.Batch.CompleteLogFile)
	ui.PrintInfo("Rate limit", fmt.Sprintf("%d requests/min", cfg.RateLimit.RequestsPerMinute))
	return nil
}
