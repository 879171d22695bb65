package main

import (
	"fmt"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	adapters "github.com/ochairo/reposync/internal/domain-adapters/gateways"
	orchestrators "github.com/ochairo/reposync/internal/domain-orchestrators"
	"github.com/ochairo/reposync/internal/domain/services"
	"github.com/ochairo/reposync/internal/external-adapters/gpg"
)

func newVerifyCmd(global *globalOptions) *cobra.Command {
	var keyFile string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify the detached signatures of the published tree",
		Long: heredoc.Doc(`
			Walk every bucket under the repository root and check each artifact
			against its .asc signature, plus repodata/repomd.xml in RPM buckets.
			Buckets whose metadata is marked stale are reported as failures.
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, global)
			if err != nil {
				return err
			}
			if err := cfg.ValidateTree(); err != nil {
				return usageError(fmt.Errorf("invalid configuration: %w", err))
			}
			if !cmd.Flags().Changed("key") {
				keyFile = cfg.Signing.PublicKeyFile
				if keyFile == "" {
					keyFile = cfg.Signing.KeyFile
				}
			}
			if keyFile == "" {
				return usageError(fmt.Errorf("no public key: set signing.public_key_file or pass --key"))
			}

			logger, err := newLogger(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			verifier := gpg.NewVerifier()
			if err := verifier.ImportKeyFromFile(keyFile); err != nil {
				return usageError(err)
			}

			classifier, err := services.NewClassifier(cfg.Rules)
			if err != nil {
				return usageError(err)
			}
			buckets := classifier.Buckets()
			store := adapters.NewArtifactStore(cfg.Root, buckets, cfg.RPM.PackagesDir)

			report, err := orchestrators.NewVerifyOrchestrator(store, verifier, buckets, logger).
				VerifyTree(cmd.Context())
			if err != nil {
				return &exitError{code: services.ExitFatal, err: err}
			}

			out := cmd.OutOrStdout()
			for _, f := range report.Failures {
				fmt.Fprintf(out, "❌ %s: %v\n", f.Path, f.Err)
			}
			for _, b := range report.Stale {
				fmt.Fprintf(out, "⚠️  %s: repository metadata is stale\n", b)
			}
			if !report.OK() {
				fmt.Fprintf(out, "\n%d checked, %d failed, %d stale\n",
					report.Checked, len(report.Failures), len(report.Stale))
				return &exitError{code: services.ExitFatal}
			}

			fmt.Fprintf(out, "✅ %d signatures verified\n", report.Checked)
			return nil
		},
	}

	cmd.Flags().StringVar(&keyFile, "key", "", "Armored public key to verify against (overrides config)")
	return cmd
}
