package models

import "time"

// EquityPoint is one day's mark in the equity curve: capital + realized
// P&L + unrealized P&L, per the GLOSSARY.
type EquityPoint struct {
	Datetime time.Time
	Equity   float64
}
