package models

// Bucket is a half-open numeric interval [Lo, Hi) used for DTE and delta
// bucketing (C6).
type Bucket struct {
	Lo float64
	Hi float64
}

// Contains reports whether v falls in [Lo, Hi).
func (b Bucket) Contains(v float64) bool {
	return v >= b.Lo && v < b.Hi
}

// GroupStats is the set of summary statistics computed for one non-empty
// DTE x delta bucket (C6).
type GroupStats struct {
	DTEBucket   Bucket
	DeltaBucket Bucket
	Count       int
	Mean        float64
	Std         float64
	Min         float64
	Q25         float64
	Median      float64
	Q75         float64
	Max         float64
	WinRate     float64
	ProfitFactor float64
}
