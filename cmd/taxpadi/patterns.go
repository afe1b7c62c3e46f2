package main

import (
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/taxpadi/taxpadi/internal/config"
)

func patternsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "patterns",
		Aliases: []string{"pattern"},
		Short:   "Inspect learned business patterns",
		Long: `Show the per-tenant patterns the engine has learned from user
corrections, ordered by confidence.`,
	}

	cmd.AddCommand(patternsListCmd())

	return cmd
}

func patternsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List learned patterns for a tenant",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			tenantID, _ := cmd.Flags().GetString("tenant")
			limit, _ := cmd.Flags().GetInt("limit")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			store, cleanup, err := getStorage(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			patterns, err := store.GetTopPatterns(ctx, tenantID, limit)
			if err != nil {
				return fmt.Errorf("failed to get patterns: %w", err)
			}

			if len(patterns) == 0 {
				slog.Info("No patterns learned yet", "tenant_id", tenantID)
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "PATTERN\tCATEGORY\tCONFIDENCE\tSEEN\tCORRECT\tLAST SEEN")
			for _, p := range patterns {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%.2f\t%d\t%d\t%s\n",
					truncateString(p.PatternText, 40),
					p.Category,
					p.Confidence,
					p.OccurrenceCount,
					p.CorrectCount,
					p.LastSeenAt.Format("2006-01-02"))
			}

			return w.Flush()
		},
	}

	cmd.Flags().StringP("tenant", "t", "", "tenant (business) identifier")
	cmd.Flags().IntP("limit", "n", 50, "maximum patterns to show")
	_ = cmd.MarkFlagRequired("tenant")

	return cmd
}
