package main

// Wire-format request bodies for the HTTP front end, and their conversion
// into internal/core's Go-native request types. Kept separate from the
// core types so the engine itself stays free of JSON-tag concerns.

import (
	"github.com/optopsy/backtest-engine/internal/core"
	"github.com/optopsy/backtest-engine/internal/models"
)

type targetRangeDTO struct {
	Target float64 `json:"target"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

type legOverrideDTO struct {
	Index int             `json:"index"`
	Qty   int              `json:"qty,omitempty"`
	Delta *targetRangeDTO  `json:"delta,omitempty"`
}

func toLegOverrides(dtos []legOverrideDTO) []core.LegOverride {
	if len(dtos) == 0 {
		return nil
	}
	out := make([]core.LegOverride, len(dtos))
	for i, d := range dtos {
		o := core.LegOverride{Index: d.Index, Qty: d.Qty}
		if d.Delta != nil {
			o.Delta = models.TargetRange{Target: d.Delta.Target, Min: d.Delta.Min, Max: d.Delta.Max}
		}
		out[i] = o
	}
	return out
}

type slippageDTO struct {
	Kind         string  `json:"kind"`
	FillRatio    float64 `json:"fill_ratio,omitempty"`
	RefVolume    float64 `json:"ref_volume,omitempty"`
	PerLegAmount float64 `json:"per_leg_amount,omitempty"`
}

func (d *slippageDTO) toModel() *models.SlippageModel {
	if d == nil {
		return nil
	}
	return &models.SlippageModel{
		Kind:         models.SlippageKind(d.Kind),
		FillRatio:    d.FillRatio,
		RefVolume:    d.RefVolume,
		PerLegAmount: d.PerLegAmount,
	}
}

type evaluateRequestDTO struct {
	StrategyName  string           `json:"strategy_name"`
	LegOverrides  []legOverrideDTO `json:"leg_overrides,omitempty"`
	MaxEntryDTE   int              `json:"max_entry_dte"`
	ExitDTE       int              `json:"exit_dte"`
	DTEInterval   float64          `json:"dte_interval"`
	DeltaInterval float64          `json:"delta_interval"`
	Slippage      *slippageDTO     `json:"slippage,omitempty"`
	Commission    *models.CommissionSchedule `json:"commission,omitempty"`
}

func (d evaluateRequestDTO) toCore() core.EvaluateRequest {
	return core.EvaluateRequest{
		StrategyName:  d.StrategyName,
		LegOverrides:  toLegOverrides(d.LegOverrides),
		MaxEntryDTE:   d.MaxEntryDTE,
		ExitDTE:       d.ExitDTE,
		DTEInterval:   d.DTEInterval,
		DeltaInterval: d.DeltaInterval,
		Slippage:      d.Slippage.toModel(),
		Commission:    d.Commission,
	}
}

type backtestRequestDTO struct {
	evaluateRequestDTO

	Capital      float64  `json:"capital"`
	Quantity     int      `json:"quantity"`
	Multiplier   float64  `json:"multiplier"`
	MaxPositions int      `json:"max_positions"`
	StopLoss     *float64 `json:"stop_loss,omitempty"`
	TakeProfit   *float64 `json:"take_profit,omitempty"`
	MaxHoldDays  *int     `json:"max_hold_days,omitempty"`
	Selector     string   `json:"selector,omitempty"`
}

func (d backtestRequestDTO) toCore() (core.BacktestRequest, error) {
	selector, err := selectorFromString(d.Selector)
	if err != nil {
		return core.BacktestRequest{}, err
	}
	return core.BacktestRequest{
		EvaluateRequest: d.evaluateRequestDTO.toCore(),
		Capital:         d.Capital,
		Quantity:        d.Quantity,
		Multiplier:      d.Multiplier,
		MaxPositions:    d.MaxPositions,
		StopLoss:        d.StopLoss,
		TakeProfit:      d.TakeProfit,
		MaxHoldDays:     d.MaxHoldDays,
		Selector:        selector,
	}, nil
}

type compareEntryDTO struct {
	StrategyName string           `json:"strategy_name"`
	LegOverrides []legOverrideDTO `json:"leg_overrides,omitempty"`
	MaxEntryDTE  int              `json:"max_entry_dte"`
	ExitDTE      int              `json:"exit_dte"`
}

type compareRequestDTO struct {
	Entries []compareEntryDTO `json:"entries"`

	Capital      float64                    `json:"capital"`
	Quantity     int                        `json:"quantity"`
	Multiplier   float64                    `json:"multiplier"`
	MaxPositions int                        `json:"max_positions"`
	StopLoss     *float64                   `json:"stop_loss,omitempty"`
	TakeProfit   *float64                   `json:"take_profit,omitempty"`
	MaxHoldDays  *int                       `json:"max_hold_days,omitempty"`
	Selector     string                     `json:"selector,omitempty"`
	Slippage     *slippageDTO               `json:"slippage,omitempty"`
	Commission   *models.CommissionSchedule `json:"commission,omitempty"`
}

func (d compareRequestDTO) toCore() (core.CompareRequest, error) {
	selector, err := selectorFromString(d.Selector)
	if err != nil {
		return core.CompareRequest{}, err
	}
	entries := make([]core.CompareEntry, len(d.Entries))
	for i, e := range d.Entries {
		entries[i] = core.CompareEntry{
			StrategyName: e.StrategyName,
			LegOverrides: toLegOverrides(e.LegOverrides),
			MaxEntryDTE:  e.MaxEntryDTE,
			ExitDTE:      e.ExitDTE,
		}
	}
	return core.CompareRequest{
		Entries:      entries,
		Capital:      d.Capital,
		Quantity:     d.Quantity,
		Multiplier:   d.Multiplier,
		MaxPositions: d.MaxPositions,
		StopLoss:     d.StopLoss,
		TakeProfit:   d.TakeProfit,
		MaxHoldDays:  d.MaxHoldDays,
		Selector:     selector,
		Slippage:     d.Slippage.toModel(),
		Commission:   d.Commission,
	}, nil
}

type loadDataRequestDTO struct {
	Symbol    string `json:"symbol"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
}
