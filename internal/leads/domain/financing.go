package domain

import "github.com/shopspring/decimal"

// FinancingType distinguishes the two financing branches. The choice is
// write-once: once a lead is on a branch, the other branch's operations are
// rejected.
type FinancingType string

const (
	FinancingSelfFunded FinancingType = "SELF_FUNDED"
	FinancingThirdParty FinancingType = "THIRD_PARTY_FUNDED"
)

// IsKnownFinancingType reports whether the type is one of the two branches.
func IsKnownFinancingType(t FinancingType) bool {
	return t == FinancingSelfFunded || t == FinancingThirdParty
}

// FinancingDecision is a tagged union: exactly one of SelfFunded/ThirdParty is
// set, matching Type. The two branches carry only their own fields so that
// cross-branch access is impossible by construction.
type FinancingDecision struct {
	Type       FinancingType    `json:"type"`
	SelfFunded *SelfFundedPlan  `json:"selfFunded,omitempty"`
	ThirdParty *ThirdPartyPlan  `json:"thirdParty,omitempty"`
}

// SelfFundedPlan tracks a customer paying directly: deposit gate first, then
// cumulative payments up to the agreed total.
type SelfFundedPlan struct {
	AgreedTotal       decimal.Decimal `json:"agreedTotal"`
	MinDepositPercent int             `json:"minDepositPercent"`
	AmountPaid        decimal.Decimal `json:"amountPaid"`
	OfferValidated    bool            `json:"offerValidated"`
}

// DepositFloor returns the minimum acceptable deposit for the given percent.
func (p *SelfFundedPlan) DepositFloor(minDepositPercent int) decimal.Decimal {
	return p.AgreedTotal.Mul(decimal.NewFromInt(int64(minDepositPercent))).Div(decimal.NewFromInt(100))
}

// Outstanding returns the remaining amount before the engagement is fully paid.
func (p *SelfFundedPlan) Outstanding() decimal.Decimal {
	return p.AgreedTotal.Sub(p.AmountPaid)
}

// ThirdPartyPlan tracks an engagement financed by an external public funding
// body. All three gates must pass before the funding file is accepted and the
// compliance ledger starts.
type ThirdPartyPlan struct {
	FundingAccountActive bool `json:"fundingAccountActive"`
	PlacementTestScore   *int `json:"placementTestScore,omitempty"`
	PlacementTestPassed  bool `json:"placementTestPassed"`
	FundingFileValidated bool `json:"fundingFileValidated"`
}

// NewSelfFundedDecision builds the self-funded variant.
func NewSelfFundedDecision(agreedTotal decimal.Decimal, minDepositPercent int) *FinancingDecision {
	return &FinancingDecision{
		Type: FinancingSelfFunded,
		SelfFunded: &SelfFundedPlan{
			AgreedTotal:       agreedTotal,
			MinDepositPercent: minDepositPercent,
			AmountPaid:        decimal.Zero,
		},
	}
}

// NewThirdPartyDecision builds the third-party-funded variant.
func NewThirdPartyDecision() *FinancingDecision {
	return &FinancingDecision{
		Type:       FinancingThirdParty,
		ThirdParty: &ThirdPartyPlan{},
	}
}
