// Package rules implements the deterministic first tier of classification.
// Unambiguous transactions are decided here and never reach the AI providers.
package rules

import (
	"strings"

	"github.com/taxpadi/taxpadi/internal/model"
)

// Result is a partial classification. Confidence 0 with CategoryUnknown means
// "no rule fired, defer to later tiers", not a final answer.
type Result struct {
	Category          string
	Reason            string
	Confidence        float64
	NeedsConfirmation bool
}

// Rule confidence table. Each case is fixed by product policy; the engine
// short-circuits at > 0.90, so only levy, charge and sale-keyword decisions
// terminate the pipeline on their own.
const (
	confidenceLevy        = 0.98
	confidenceBankCharge  = 0.95
	confidencePOS         = 0.88
	confidenceMobileMoney = 0.75
	confidenceNonRevenue  = 0.90
	confidenceSaleKeyword = 0.95
)

// Large-value cutoffs in naira above which a human should confirm.
const (
	largeAmountThreshold      = 500_000
	nonRevenueAmountThreshold = 1_000_000
)

// nonRevenueKeywords mark inflows/outflows that are not sales revenue.
var nonRevenueKeywords = []string{
	"loan",
	"salary",
	"atm",
	"airtime",
	"data bundle",
	"netflix",
	"dstv",
	"spotify",
	"subscription",
	"self transfer",
	"own account",
}

// saleKeywords are explicit sale phrasings customers put in narrations.
var saleKeywords = []string{
	"payment for goods",
	"payment for services",
	"invoice",
	"sales",
	"customer payment",
	"payment from customer",
	"order payment",
}

// Classifier evaluates the fixed rule table.
type Classifier struct{}

// NewClassifier creates a rule classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify evaluates the rule table in fixed priority order and returns the
// first match. It is total: malformed input degrades to the unknown sentinel.
func (c *Classifier) Classify(txn model.Transaction, flags model.SignalFlags) Result {
	text := strings.ToLower(strings.TrimSpace(txn.Narration))

	// 1. Levies and stamp duty are always deductible bank expenses.
	if flags.IsLevy || flags.IsStampDuty {
		return Result{
			Category:   model.CategoryExpense,
			Confidence: confidenceLevy,
			Reason:     "government levy or stamp duty",
		}
	}

	// 2. Bank charges.
	if flags.IsBankCharge {
		return Result{
			Category:   model.CategoryExpense,
			Confidence: confidenceBankCharge,
			Reason:     "bank charge",
		}
	}

	// 3. POS: inflows are sales, outflows are expenses.
	if flags.IsPOS {
		category := model.CategoryExpense
		reason := "POS debit"
		if txn.IsCredit() {
			category = model.CategorySale
			reason = "POS credit"
		}
		return Result{
			Category:          category,
			Confidence:        confidencePOS,
			Reason:            reason,
			NeedsConfirmation: txn.Amount > largeAmountThreshold,
		}
	}

	// 4. Mobile money inflows are usually sales but always need a human nod.
	if flags.IsMobileMoney {
		return Result{
			Category:          model.CategorySale,
			Confidence:        confidenceMobileMoney,
			Reason:            "mobile money (" + flags.MobileMoneyProvider + ")",
			NeedsConfirmation: true,
		}
	}

	// 5. Non-revenue keywords.
	for _, kw := range nonRevenueKeywords {
		if strings.Contains(text, kw) {
			return Result{
				Category:          model.CategoryNonRevenue,
				Confidence:        confidenceNonRevenue,
				Reason:            "non-revenue keyword: " + kw,
				NeedsConfirmation: txn.Amount > nonRevenueAmountThreshold,
			}
		}
	}

	// 6. Explicit sale phrasing.
	for _, kw := range saleKeywords {
		if strings.Contains(text, kw) {
			return Result{
				Category:          model.CategorySale,
				Confidence:        confidenceSaleKeyword,
				Reason:            "sale keyword: " + kw,
				NeedsConfirmation: txn.Amount > largeAmountThreshold,
			}
		}
	}

	return Result{Category: model.CategoryUnknown, Confidence: 0}
}
