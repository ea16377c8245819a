package engine

import (
	"github.com/shopspring/decimal"
)

// Bucket labels, in display order.
const (
	BucketBelowMinus100 = "<-100"
	BucketMinus100To50  = "-100 to -50"
	BucketMinus50To0    = "-50 to 0"
	Bucket0To50         = "0 to 50"
	Bucket50To100       = "50 to 100"
	BucketAbove100      = ">100"
)

// bucketUppers are the inclusive upper edges of the first five buckets.
// Intervals are right-closed: (-inf,-100], (-100,-50], (-50,0], (0,50],
// (50,100], (100,+inf). A boundary value belongs to the lower bucket.
var bucketUppers = []decimal.Decimal{
	decimal.NewFromInt(-100),
	decimal.NewFromInt(-50),
	decimal.Zero,
	decimal.NewFromInt(50),
	decimal.NewFromInt(100),
}

// BucketLabels lists all six labels in fixed order.
var BucketLabels = []string{
	BucketBelowMinus100,
	BucketMinus100To50,
	BucketMinus50To0,
	Bucket0To50,
	Bucket50To100,
	BucketAbove100,
}

// BucketCount is one entry of a BucketSummary.
type BucketCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// BucketSummary holds one count per label, always all six, in fixed order.
type BucketSummary []BucketCount

// BucketFor returns the label of the range containing d.
func BucketFor(d decimal.Decimal) string {
	for i, upper := range bucketUppers {
		if d.LessThanOrEqual(upper) {
			return BucketLabels[i]
		}
	}
	return BucketAbove100
}

// Bucketize counts breaks per difference range.
func Bucketize(breaks []Break) BucketSummary {
	counts := make(map[string]int, len(BucketLabels))
	for _, b := range breaks {
		counts[BucketFor(b.Difference)]++
	}
	summary := make(BucketSummary, len(BucketLabels))
	for i, label := range BucketLabels {
		summary[i] = BucketCount{Label: label, Count: counts[label]}
	}
	return summary
}

// Total returns the sum of all bucket counts.
func (s BucketSummary) Total() int {
	n := 0
	for _, c := range s {
		n += c.Count
	}
	return n
}

// Get returns the count for a label, or 0 for an unknown label.
func (s BucketSummary) Get(label string) int {
	for _, c := range s {
		if c.Label == label {
			return c.Count
		}
	}
	return 0
}
