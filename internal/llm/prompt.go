package llm

import (
	"fmt"
	"strings"

	"github.com/taxpadi/taxpadi/internal/model"
)

// BuildPrompt creates the classification prompt for a transaction. The full
// deterministic context (signal flags and tax hints) is embedded so provider
// output stays consistent with what the rule tiers already know.
func BuildPrompt(txn model.Transaction, flags model.SignalFlags, implications model.TaxImplications) string {
	direction := "money out (debit)"
	if txn.IsCredit() {
		direction = "money in (credit)"
	}

	details := fmt.Sprintf("Narration: %s\nAmount: NGN %.2f\nDirection: %s",
		txn.Narration,
		txn.Amount,
		direction)

	if !txn.Date.IsZero() {
		details += fmt.Sprintf("\nDate: %s", txn.Date.Format("2006-01-02"))
	}

	var signals []string
	if flags.IsUSSD {
		signals = append(signals, "USSD channel")
	}
	if flags.IsMobileMoney {
		signals = append(signals, "mobile money via "+flags.MobileMoneyProvider)
	}
	if flags.IsPOS {
		signals = append(signals, "POS terminal")
	}
	if flags.IsForeignCurrency {
		signals = append(signals, "foreign currency ("+flags.CurrencyCode+")")
	}
	if flags.IsLevy {
		signals = append(signals, "electronic transfer levy")
	}
	if flags.IsStampDuty {
		signals = append(signals, "stamp duty")
	}
	if flags.IsBankCharge {
		signals = append(signals, "bank charge")
	}
	if flags.BankName != "" {
		signals = append(signals, "counterparty bank: "+flags.BankName)
	}

	signalBlock := "none detected"
	if len(signals) > 0 {
		signalBlock = strings.Join(signals, "; ")
	}

	var hints []string
	if implications.VATApplicable {
		hints = append(hints, "potentially VATable inflow")
	}
	if implications.LevyCharged {
		hints = append(hints, "EMTL charged")
	}
	if implications.StampDutyCharged {
		hints = append(hints, "stamp duty charged")
	}
	if implications.WHTUnknown {
		hints = append(hints, "withholding tax status unknown")
	}

	hintBlock := "none"
	if len(hints) > 0 {
		hintBlock = strings.Join(hints, "; ")
	}

	return fmt.Sprintf(`Classify this Nigerian bank transaction into a tax-relevant category.

Transaction Details:
%s
Transaction Type: %s

Detected Signals: %s
Tax Hints: %s

Categories (pick the best fit, or a more specific lowercase label if clearly warranted):
- sale: revenue from selling goods or services
- expense: business cost (supplies, rent, fees, charges)
- loan: loan disbursement or repayment
- capital: owner's capital injection or withdrawal
- refund: money returned for a prior transaction
- personal: personal/non-business movement

Guidelines:
- Classify by what the transaction IS, not why it might have happened.
- Inflows are not automatically sales; salaries, loans and self-transfers are not revenue.
- Keep the category a short lowercase label.

Respond with ONLY this JSON:
{"category": "<label>", "confidence": <0.0-1.0>, "reasoning": "<one sentence>"}`,
		details,
		flags.TransactionType,
		signalBlock,
		hintBlock)
}
