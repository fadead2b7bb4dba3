package models

// SlippageKind selects which of the four fill-price models (§4.5) applies.
type SlippageKind string

// The four slippage models.
const (
	SlippageMid       SlippageKind = "mid"
	SlippageSpread    SlippageKind = "spread"
	SlippageLiquidity SlippageKind = "liquidity"
	SlippagePerLeg    SlippageKind = "per_leg"
)

// SlippageModel is the slippage-model tag plus its payload. Only the fields
// relevant to Kind are consulted.
type SlippageModel struct {
	Kind SlippageKind

	// Liquidity payload.
	FillRatio float64 // in [0,1]
	RefVolume float64 // informational; not used in the fill-price formula

	// PerLeg payload: a fixed per-contract price adjustment applied in the
	// worst-case direction.
	PerLegAmount float64
}

// Validate checks the payload required by Kind is well-formed.
func (m SlippageModel) Validate() error {
	switch m.Kind {
	case SlippageMid, SlippageSpread:
		return nil
	case SlippageLiquidity:
		if m.FillRatio < 0 || m.FillRatio > 1 {
			return NewValidationError("liquidity slippage fill_ratio must be in [0,1], got %.4f", m.FillRatio)
		}
		return nil
	case SlippagePerLeg:
		return nil
	default:
		return NewValidationError("unknown slippage model %q", m.Kind)
	}
}

// CommissionSchedule is the optional commission structure applied at entry
// and at exit (§4.5): max(base_fee + per_contract*n_contracts, min_fee).
type CommissionSchedule struct {
	BaseFee     float64 `yaml:"base_fee"`
	PerContract float64 `yaml:"per_contract"`
	MinFee      float64 `yaml:"min_fee"`
}

// Compute returns the commission charged for a fill of nContracts total
// contracts across all legs.
func (c CommissionSchedule) Compute(nContracts int) float64 {
	fee := c.BaseFee + c.PerContract*float64(nContracts)
	if fee < c.MinFee {
		return c.MinFee
	}
	return fee
}
