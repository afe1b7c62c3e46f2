// Package signal extracts deterministic payment-channel annotations from raw
// transaction narrations. Detection is pure: the same text and amount always
// produce the same flags, and nothing here makes external calls.
package signal

import (
	"regexp"
	"strings"

	"github.com/taxpadi/taxpadi/internal/model"
)

// namedPattern pairs a compiled regex with the value it reports when it wins.
// For mutually exclusive fields the first matching entry in the slice wins.
type namedPattern struct {
	re   *regexp.Regexp
	name string
}

// Detector holds the pre-compiled pattern families.
type Detector struct {
	ussd        *regexp.Regexp
	pos         *regexp.Regexp
	levy        *regexp.Regexp
	stampDuty   *regexp.Regexp
	bankCharge  *regexp.Regexp
	chargeHint  *regexp.Regexp
	mobileMoney []namedPattern
	currencies  []namedPattern
	banks       []namedPattern
}

// stampDutyFlatFee is the flat EMTL/stamp-duty amount in naira. A transaction
// at exactly this amount with charge-like phrasing is treated as stamp duty
// even when the narration never says "stamp".
const stampDutyFlatFee = 50.0

// NewDetector compiles the pattern families. Compilation happens once; the
// detector is safe for concurrent use.
func NewDetector() *Detector {
	return &Detector{
		ussd:       regexp.MustCompile(`(?i)(\*\d{3}(\*\d+)*#|\bussd\b)`),
		pos:        regexp.MustCompile(`(?i)(\bpos\b|pos trf|pos trans|web pos|pos terminal|card payment)`),
		levy:       regexp.MustCompile(`(?i)(\bemtl\b|electronic money transfer levy|\btransfer levy\b)`),
		stampDuty:  regexp.MustCompile(`(?i)stamp[\s-]?duty`),
		bankCharge: regexp.MustCompile(`(?i)(sms alert|sms notification|account maintenance|\bcot\b|card maintenance|\bcommission\b|\bbank charge\b|transfer fee|vat on|mgt fee)`),
		chargeHint: regexp.MustCompile(`(?i)(\bcharge\b|\bfee\b|\bduty\b|\blevy\b)`),
		mobileMoney: []namedPattern{
			{name: "opay", re: regexp.MustCompile(`(?i)\bopay\b`)},
			{name: "palmpay", re: regexp.MustCompile(`(?i)\bpalmpay\b`)},
			{name: "moniepoint", re: regexp.MustCompile(`(?i)\bmoniepoint\b`)},
			{name: "paga", re: regexp.MustCompile(`(?i)\bpaga\b`)},
			{name: "kuda", re: regexp.MustCompile(`(?i)\bkuda\b`)},
			{name: "momo", re: regexp.MustCompile(`(?i)(\bmomo\b|mtn mobile money)`)},
			{name: "airtel_money", re: regexp.MustCompile(`(?i)airtel money|smartcash`)},
		},
		currencies: []namedPattern{
			{name: "USD", re: regexp.MustCompile(`(?i)(\busd\b|us dollar|\bdollar(s)?\b|\$)`)},
			{name: "GBP", re: regexp.MustCompile(`(?i)(\bgbp\b|pound sterling|\bpound(s)?\b|£)`)},
			{name: "EUR", re: regexp.MustCompile(`(?i)(\beur\b|\beuro(s)?\b|€)`)},
			{name: "CNY", re: regexp.MustCompile(`(?i)(\bcny\b|\byuan\b|renminbi)`)},
		},
		banks: []namedPattern{
			{name: "Guaranty Trust Bank", re: regexp.MustCompile(`(?i)(\bgtb\b|gtbank|guaranty trust)`)},
			{name: "Zenith Bank", re: regexp.MustCompile(`(?i)\bzenith\b`)},
			{name: "Access Bank", re: regexp.MustCompile(`(?i)\baccess bank\b|\baccess\b`)},
			{name: "United Bank for Africa", re: regexp.MustCompile(`(?i)(\buba\b|united bank for africa)`)},
			{name: "First Bank", re: regexp.MustCompile(`(?i)(\bfbn\b|first ?bank)`)},
			{name: "Union Bank", re: regexp.MustCompile(`(?i)\bunion bank\b`)},
			{name: "Fidelity Bank", re: regexp.MustCompile(`(?i)\bfidelity\b`)},
			{name: "Sterling Bank", re: regexp.MustCompile(`(?i)\bsterling\b`)},
			{name: "Wema Bank", re: regexp.MustCompile(`(?i)(\bwema\b|\balat\b)`)},
			{name: "Stanbic IBTC", re: regexp.MustCompile(`(?i)stanbic`)},
		},
	}
}

// Detect maps a narration and amount to structured signal flags. It never
// fails: missing text is treated as an empty string and yields empty flags.
func (d *Detector) Detect(narration string, amount float64) model.SignalFlags {
	text := strings.TrimSpace(narration)

	var flags model.SignalFlags
	if text == "" {
		flags.TransactionType = d.TypeDescription(flags)
		return flags
	}

	flags.IsUSSD = d.ussd.MatchString(text)
	flags.IsPOS = d.pos.MatchString(text)
	flags.IsLevy = d.levy.MatchString(text)
	flags.IsBankCharge = d.bankCharge.MatchString(text)

	// Flat-fee heuristic: a ₦50 line with charge phrasing is stamp duty.
	flags.IsStampDuty = d.stampDuty.MatchString(text) ||
		(amount == stampDutyFlatFee && d.chargeHint.MatchString(text))

	// First matching provider wins; only one is ever reported.
	for _, p := range d.mobileMoney {
		if p.re.MatchString(text) {
			flags.IsMobileMoney = true
			flags.MobileMoneyProvider = p.name
			break
		}
	}

	for _, c := range d.currencies {
		if c.re.MatchString(text) {
			flags.IsForeignCurrency = true
			flags.CurrencyCode = c.name
			break
		}
	}

	for _, b := range d.banks {
		if b.re.MatchString(text) {
			flags.BankName = b.name
			break
		}
	}

	flags.TransactionType = d.TypeDescription(flags)

	return flags
}

// TypeDescription returns a human-readable label for the dominant channel.
// Precedence: USSD > mobile money > POS > foreign currency > levy >
// stamp duty > bank charge > default.
func (d *Detector) TypeDescription(flags model.SignalFlags) string {
	switch {
	case flags.IsUSSD:
		return "USSD transaction"
	case flags.IsMobileMoney:
		return "mobile money (" + flags.MobileMoneyProvider + ")"
	case flags.IsPOS:
		return "POS transaction"
	case flags.IsForeignCurrency:
		return "foreign currency (" + flags.CurrencyCode + ")"
	case flags.IsLevy:
		return "electronic transfer levy"
	case flags.IsStampDuty:
		return "stamp duty"
	case flags.IsBankCharge:
		return "bank charge"
	default:
		return "bank transfer"
	}
}

// TaxImplications derives advisory tax hints from the flags. These feed the
// downstream VAT/PIT calculators but are not authoritative on their own.
func (d *Detector) TaxImplications(flags model.SignalFlags, isCredit bool) model.TaxImplications {
	isCharge := flags.IsLevy || flags.IsStampDuty || flags.IsBankCharge

	return model.TaxImplications{
		// Inflows through sale-like channels are potentially VATable revenue.
		VATApplicable:    isCredit && !isCharge,
		LevyCharged:      flags.IsLevy,
		StampDutyCharged: flags.IsStampDuty,
		// Whether the payer withheld tax cannot be read off a narration.
		WHTUnknown: isCredit,
	}
}
