package model

// SignalFlags holds the deterministic payment-channel annotations extracted
// from a transaction's narration. Computed fresh per classification call and
// never persisted directly.
type SignalFlags struct {
	MobileMoneyProvider string `json:"mobile_money_provider,omitempty"`
	CurrencyCode        string `json:"currency_code,omitempty"`
	BankName            string `json:"bank_name,omitempty"`
	TransactionType     string `json:"transaction_type"`
	IsUSSD              bool   `json:"is_ussd"`
	IsMobileMoney       bool   `json:"is_mobile_money"`
	IsPOS               bool   `json:"is_pos"`
	IsForeignCurrency   bool   `json:"is_foreign_currency"`
	IsLevy              bool   `json:"is_levy"`
	IsStampDuty         bool   `json:"is_stamp_duty"`
	IsBankCharge        bool   `json:"is_bank_charge"`
}

// TaxImplications carries advisory hints derived from SignalFlags.
// They inform downstream VAT/PIT treatment but are not authoritative tax law.
type TaxImplications struct {
	VATApplicable    bool `json:"vat_applicable"`
	LevyCharged      bool `json:"levy_charged"`
	StampDutyCharged bool `json:"stamp_duty_charged"`
	WHTUnknown       bool `json:"wht_unknown"`
}
