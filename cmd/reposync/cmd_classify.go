package main

import (
	"fmt"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"github.com/ochairo/reposync/internal/domain/services"
)

func newClassifyCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "classify NAME...",
		Short: "Show which bucket each artifact name is sorted into",
		Long: heredoc.Doc(`
			Apply the configured classification rules to artifact names without
			touching the network or the repository tree. Rules are tried in
			order and the first token found in the name wins.
		`),
		Example: heredoc.Doc(`
			$ reposync classify pathvector_6.3.2_linux_amd64.deb pathvector-arista.swix notes.txt
			pathvector_6.3.2_linux_amd64.deb  apt       (.deb)
			pathvector-arista.swix            arista    (arista)
			notes.txt                         none
		`),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, global)
			if err != nil {
				return err
			}
			classifier, err := services.NewClassifier(cfg.Rules)
			if err != nil {
				return usageError(err)
			}

			width := 0
			for _, name := range args {
				width = max(width, len(name))
			}

			out := cmd.OutOrStdout()
			for _, name := range args {
				rule, ok := classifier.Match(name)
				if !ok {
					fmt.Fprintf(out, "%-*s  none\n", width, name)
					continue
				}
				fmt.Fprintf(out, "%-*s  %-8s  (%s)\n", width, name, rule.Bucket, rule.Token)
			}
			return nil
		},
	}
}

