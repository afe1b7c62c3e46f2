package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/taxpadi/taxpadi/internal/config"
	"github.com/taxpadi/taxpadi/internal/model"
)

func classifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify <narration>",
		Short: "Classify a single transaction narration",
		Long: `Run one transaction through the full decision pipeline and print the
result. Useful for spot-checking rules and learned patterns without going
through the HTTP API.`,
		Args: cobra.ExactArgs(1),
		RunE: runClassify,
	}

	cmd.Flags().StringP("tenant", "t", "", "tenant (business) identifier")
	cmd.Flags().Float64P("amount", "a", 0, "transaction amount in naira")
	cmd.Flags().StringP("direction", "d", "credit", "transaction direction (credit, debit)")
	cmd.Flags().Bool("json", false, "print the full result as JSON")
	_ = cmd.MarkFlagRequired("tenant")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func runClassify(cmd *cobra.Command, args []string) error {
	tenantID, _ := cmd.Flags().GetString("tenant")
	amount, _ := cmd.Flags().GetFloat64("amount")
	direction, _ := cmd.Flags().GetString("direction")
	asJSON, _ := cmd.Flags().GetBool("json")

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	app, err := buildComponents(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	txn := model.Transaction{
		TenantID:  tenantID,
		Narration: args[0],
		Amount:    amount,
		Direction: model.TransactionDirection(direction),
		Date:      time.Now(),
	}
	if err := txn.Validate(); err != nil {
		return err
	}

	result := app.Engine.Classify(cmd.Context(), txn)

	if asJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	}

	fmt.Printf("Category:    %s\n", result.Category)
	fmt.Printf("Confidence:  %.2f\n", result.Confidence)
	fmt.Printf("Provenance:  %s\n", result.Provenance)
	if result.Reasoning != "" {
		fmt.Printf("Reasoning:   %s\n", result.Reasoning)
	}
	if result.NeedsConfirmation {
		fmt.Println("Needs confirmation: yes")
	}

	return nil
}
