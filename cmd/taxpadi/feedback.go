package main

import (
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/taxpadi/taxpadi/internal/config"
	"github.com/taxpadi/taxpadi/internal/feedback"
	"github.com/taxpadi/taxpadi/internal/model"
)

func feedbackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "Record and inspect classification feedback",
	}

	cmd.AddCommand(feedbackRecordCmd())
	cmd.AddCommand(feedbackListCmd())
	cmd.AddCommand(feedbackConsumeCmd())

	return cmd
}

func feedbackRecordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record <narration>",
		Short: "Record a correction for a transaction",
		Long: `Record the user's verdict on a prediction. A correction matching the
predicted category counts as a confirmation; anything else is an override.
Either way the tenant's pattern store learns from it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID, _ := cmd.Flags().GetString("tenant")
			category, _ := cmd.Flags().GetString("category")
			predicted, _ := cmd.Flags().GetString("predicted")
			confidence, _ := cmd.Flags().GetFloat64("confidence")
			amount, _ := cmd.Flags().GetFloat64("amount")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			app, err := buildComponents(cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			prediction := model.ClassificationResult{
				Category:   predicted,
				Confidence: confidence,
			}

			record, err := app.Recorder.RecordCorrection(cmd.Context(), prediction, feedback.Correction{
				TenantID:          tenantID,
				Narration:         args[0],
				CorrectedCategory: category,
				Flags:             app.Detector.Detect(args[0], amount),
			})
			if err != nil {
				return fmt.Errorf("failed to record feedback: %w", err)
			}

			slog.Info("Feedback recorded",
				"id", record.ID,
				"correction_type", record.CorrectionType,
				"category", record.CorrectedCategory)
			return nil
		},
	}

	cmd.Flags().StringP("tenant", "t", "", "tenant (business) identifier")
	cmd.Flags().StringP("category", "c", "", "corrected category")
	cmd.Flags().String("predicted", "", "category the engine predicted")
	cmd.Flags().Float64("confidence", 0, "confidence the engine reported")
	cmd.Flags().Float64P("amount", "a", 0, "transaction amount in naira")
	_ = cmd.MarkFlagRequired("tenant")
	_ = cmd.MarkFlagRequired("category")

	return cmd
}

func feedbackListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List feedback not yet consumed by training",
		RunE: func(cmd *cobra.Command, _ []string) error {
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

			records, err := store.GetUnconsumedFeedback(cmd.Context(), tenantID, limit)
			if err != nil {
				return fmt.Errorf("failed to get feedback: %w", err)
			}

			if len(records) == 0 {
				slog.Info("No unconsumed feedback", "tenant_id", tenantID)
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tPREDICTED\tCORRECTED\tTYPE\tCREATED")
			for _, r := range records {
				_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
					r.ID,
					r.PredictedCategory,
					r.CorrectedCategory,
					r.CorrectionType,
					r.CreatedAt.Format("2006-01-02 15:04"))
			}

			return w.Flush()
		},
	}

	cmd.Flags().StringP("tenant", "t", "", "tenant (business) identifier")
	cmd.Flags().IntP("limit", "n", 100, "maximum records to show")
	_ = cmd.MarkFlagRequired("tenant")

	return cmd
}

func feedbackConsumeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "consume",
		Short: "Mark a tenant's pending feedback as consumed",
		Long: `Drain the tenant's unconsumed feedback under a batch identifier, the
same operation the external training process performs over the API.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tenantID, _ := cmd.Flags().GetString("tenant")
			batchID, _ := cmd.Flags().GetString("batch")
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

			records, err := store.GetUnconsumedFeedback(cmd.Context(), tenantID, limit)
			if err != nil {
				return fmt.Errorf("failed to get feedback: %w", err)
			}
			if len(records) == 0 {
				slog.Info("Nothing to consume", "tenant_id", tenantID)
				return nil
			}

			ids := make([]int64, len(records))
			for i, r := range records {
				ids[i] = r.ID
			}

			if err := store.MarkFeedbackConsumed(cmd.Context(), batchID, ids); err != nil {
				return fmt.Errorf("failed to mark feedback consumed: %w", err)
			}

			slog.Info("Feedback consumed", "batch_id", batchID, "count", len(ids))
			return nil
		},
	}

	cmd.Flags().StringP("tenant", "t", "", "tenant (business) identifier")
	cmd.Flags().StringP("batch", "b", "", "batch identifier for this consumption")
	cmd.Flags().IntP("limit", "n", 100, "maximum records to consume")
	_ = cmd.MarkFlagRequired("tenant")
	_ = cmd.MarkFlagRequired("batch")

	return cmd
}
