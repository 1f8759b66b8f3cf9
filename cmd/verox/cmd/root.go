// Package cmd implements the verox CLI commands.
package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"verox/go-wallet/internal/app"
	"verox/go-wallet/internal/biometric"
	"verox/go-wallet/internal/config"
)

// rootOptions carries the global flags and the runtime built from them.
type rootOptions struct {
	outputFormat   string
	configPath     string
	dataDir        string
	vault          string
	passphraseFile string

	// native and vaultOverride replace platform collaborators in tests.
	native        biometric.Native
	vaultOverride biometric.Vault

	stdin   *bufio.Reader
	runtime *app.Runtime
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	root := &cobra.Command{
		Use:   "verox",
		Short: "Biometric wallet locker",
		Long: `verox keeps wallet keys sealed on disk under a passphrase and can
require a biometric check (Touch ID, Windows Hello) before unlocking.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch opts.outputFormat {
			case "table", "json", "yaml":
			default:
				return invalidInput("unsupported output format %q", opts.outputFormat)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&opts.outputFormat, "output", "o", "table", "Output format: table, json, yaml")
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (default: <data-dir>/config.yaml)")
	root.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "", "Data directory (default: ~/.verox)")
	root.PersistentFlags().StringVar(&opts.vault, "vault", "", "Biometric secret backend: keyring, file, memory")
	root.PersistentFlags().StringVar(&opts.passphraseFile, "passphrase-file", "", "Read the passphrase from this file")

	root.AddCommand(
		newWalletCmd(opts),
		newBiometricCmd(opts),
		newNativeHostCmd(opts),
		newVersionCmd(),
	)
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	opts := &rootOptions{}
	root := newRootCmd(opts)
	if err := execute(ctx, root, opts); err != nil {
		format, _ := root.PersistentFlags().GetString("output")
		cliErr := toCLIError(err)
		printError(root.ErrOrStderr(), cliErr, format)
		return cliErr.ExitCode
	}
	return ExitSuccess
}

// execute runs root and then closes the runtime, whether or not the command
// failed, so failed attempts still reach the metrics textfile.
func execute(ctx context.Context, root *cobra.Command, opts *rootOptions) error {
	err := root.ExecuteContext(ctx)
	if closeErr := opts.runtime.Close(); err == nil {
		err = closeErr
	}
	return err
}

// load builds the runtime on first use so that help and version never touch
// the data directory.
func (o *rootOptions) load(cmd *cobra.Command) (*app.Runtime, error) {
	if o.runtime != nil {
		return o.runtime, nil
	}
	cfg, err := config.Load(o.configPath, o.dataDir)
	if err != nil {
		return nil, err
	}
	if o.vault != "" {
		cfg.Biometric.Vault = strings.ToLower(o.vault)
	}
	rt, err := app.New(cfg, app.Options{
		LogWriter: cmd.ErrOrStderr(),
		Native:    o.native,
		Vault:     o.vaultOverride,
	})
	if err != nil {
		return nil, err
	}
	o.runtime = rt
	return rt, nil
}

func (o *rootOptions) input(cmd *cobra.Command) *bufio.Reader {
	if o.stdin == nil {
		o.stdin = bufio.NewReader(cmd.InOrStdin())
	}
	return o.stdin
}

// render prints data as JSON or YAML, or calls table for the default format.
func (o *rootOptions) render(w io.Writer, data any, table func()) error {
	switch o.outputFormat {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case "yaml":
		out, err := yaml.Marshal(data)
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(w, string(out))
		return err
	default:
		table()
		return nil
	}
}
