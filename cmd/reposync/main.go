package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ochairo/reposync/internal/domain/services"
)

// version is set via ldflags during build
var version = "dev"

const defaultConfigPath = "/etc/reposync/reposync.yml"

// globalOptions are the flags shared by every subcommand
type globalOptions struct {
	configPath string
	root       string
	logLevel   string
	logFormat  string
}

// exitError carries a process exit status out of a command
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func usageError(err error) error {
	return &exitError{code: services.ExitUsage, err: err}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the CLI and maps the outcome onto an exit status
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return services.ExitOK
	}

	var exitErr *exitError
	if errors.As(err, &exitErr) {
		if exitErr.err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", exitErr.err)
		}
		return exitErr.code
	}

	// flag parsing and unknown commands
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return services.ExitUsage
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "reposync",
		Short: "Mirror release artifacts into signed package repositories",
		Long: heredoc.Doc(`
			reposync fetches the latest release of a project, sorts its artifacts
			into platform and packaging-format buckets under a repository root,
			signs every artifact and keeps the Debian and RPM repositories current.

			Each run is idempotent: artifacts already on disk are not downloaded
			again, but are signed and published again.
		`),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	addGlobalFlags(rootCmd.PersistentFlags(), opts)

	rootCmd.AddCommand(newSyncCmd(opts))
	rootCmd.AddCommand(newClassifyCmd(opts))
	rootCmd.AddCommand(newVerifyCmd(opts))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func addGlobalFlags(flags *pflag.FlagSet, opts *globalOptions) {
	flags.StringVarP(&opts.configPath, "config", "c", defaultConfigPath,
		"Configuration file (.yml, .yaml or .toml)")
	flags.StringVar(&opts.root, "root", "",
		"Repository root (overrides config and REPOSYNC_ROOT)")
	flags.StringVar(&opts.logLevel, "log-level", "",
		"Log level: debug, info, warn or error")
	flags.StringVar(&opts.logFormat, "log-format", "",
		"Log format: console or json")
}
