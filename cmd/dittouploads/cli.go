package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/marmos91/dittouploads/internal/logger"
	"github.com/marmos91/dittouploads/pkg/config"
	"github.com/marmos91/dittouploads/pkg/metrics"
	"github.com/marmos91/dittouploads/pkg/uploads"
	"github.com/spf13/cobra"
)

// engine is the engine flavour the CLI works with: records keyed by string.
type engine = uploads.Uploads[string]

// CLI holds the command line interface state
type CLI struct {
	configPath string

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// newRootCommand creates the root cobra command
func newRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	cli := &CLI{stdin: stdin, stdout: stdout, stderr: stderr}

	rootCmd := &cobra.Command{
		Use:   "dittouploads",
		Short: "Store uploaded files on configurable disks",
		Long: `dittouploads places files on one of several disks (local filesystem,
memory, S3) and keeps a record of where each one lives.

Examples:
  dittouploads init                           # Write a default config file
  dittouploads upload avatar.png --context avatars
  dittouploads read <id> -o avatar.png
  dittouploads transfer <id> --disk archive --delete-source
  dittouploads url <id> --temporary --expires 10m`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cli.configPath, "config", "c", "", "Config file (default $XDG_CONFIG_HOME/dittouploads/config.yaml)")

	// Add subcommands
	rootCmd.AddCommand(newInitCommand(cli))
	rootCmd.AddCommand(newUploadCommand(cli))
	rootCmd.AddCommand(newUpdateCommand(cli))
	rootCmd.AddCommand(newReadCommand(cli))
	rootCmd.AddCommand(newLocateCommand(cli))
	rootCmd.AddCommand(newDuplicateCommand(cli))
	rootCmd.AddCommand(newTransferCommand(cli))
	rootCmd.AddCommand(newDeleteCommand(cli))
	rootCmd.AddCommand(newURLCommand(cli))
	rootCmd.AddCommand(newMaterializeCommand(cli))

	return rootCmd
}

// withEngine loads the configuration, builds the repository and the engine,
// runs fn and tears everything down again.
func (cli *CLI) withEngine(cmd *cobra.Command, fn func(ctx context.Context, e *engine) error) (err error) {
	// ========================================================================
	// Step 1: Load configuration and configure logging
	// ========================================================================

	cfg, err := config.Load(cli.configPath)
	if err != nil {
		return err
	}
	if err := config.ConfigureLogging(cfg.Logging); err != nil {
		return err
	}
	sink := config.InitializeMetrics(cfg)

	ctx := cmd.Context()
	if cfg.Uploads.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Uploads.Timeout)
		defer cancel()
	}

	// ========================================================================
	// Step 2: Build repository and engine
	// ========================================================================

	repo, err := config.CreateRepository(ctx, &cfg.Repository)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := repo.Close(); cerr != nil {
			logger.Warn("Failed to close repository: %v", cerr)
		}
	}()

	e, err := config.CreateUploads(ctx, cfg, repo, sink)
	if err != nil {
		return err
	}
	logger.Debug("Engine ready: default disk %q, repository %s", e.DefaultDisk(), cfg.Repository.Type)

	// ========================================================================
	// Step 3: Run the command and report metrics
	// ========================================================================

	err = fn(ctx, e)

	if cfg.Metrics.Enabled {
		if merr := cli.dumpMetrics(cfg.Metrics.Output); merr != nil {
			err = errors.Join(err, merr)
		}
	}
	return err
}

// dumpMetrics writes the collected metrics to output ("stdout", "stderr" or
// a file path, which is replaced).
func (cli *CLI) dumpMetrics(output string) error {
	switch strings.ToLower(output) {
	case "stdout":
		return metrics.WriteText(cli.stdout, metrics.GetRegistry())
	case "", "stderr":
		return metrics.WriteText(cli.stderr, metrics.GetRegistry())
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create metrics file: %w", err)
	}
	if err := metrics.WriteText(f, metrics.GetRegistry()); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// metaFlags collects record metadata from the command line.
type metaFlags struct {
	pairs       map[string]string
	contextName string
}

func (m *metaFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringToStringVar(&m.pairs, "meta", nil, "Metadata entry key=value (repeatable)")
	cmd.Flags().StringVar(&m.contextName, "context", "", "Context label stored under the \"context\" metadata key")
}

// metadata returns nil when no metadata flag was given, which operations
// treat as "keep" or "none" depending on the command.
func (m *metaFlags) metadata() uploads.Metadata {
	if len(m.pairs) == 0 && m.contextName == "" {
		return nil
	}

	meta := make(uploads.Metadata, len(m.pairs)+1)
	for k, v := range m.pairs {
		meta[k] = v
	}
	if m.contextName != "" {
		meta[uploads.MetadataContextKey] = m.contextName
	}
	return meta
}

// openInput opens a file argument; "-" reads stdin and needs an explicit name.
func (cli *CLI) openInput(arg, name string) (io.ReadCloser, string, error) {
	if arg == "-" {
		if name == "" {
			return nil, "", fmt.Errorf("--name is required when reading from stdin")
		}
		return io.NopCloser(cli.stdin), name, nil
	}

	f, err := os.Open(arg)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open %s: %w", arg, err)
	}
	if name == "" {
		name = filepath.Base(arg)
	}
	return f, name, nil
}

func (cli *CLI) printJSON(v any) error {
	enc := json.NewEncoder(cli.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (cli *CLI) println(s string) error {
	_, err := fmt.Fprintln(cli.stdout, s)
	return err
}
