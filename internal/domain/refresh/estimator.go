package refresh

import (
	"math/rand/v2"
	"strings"
)

// FactorFunc yields the multiplier applied to population for one record.
type FactorFunc func() float64

// UniformFactor draws an integer uniformly from [lo, hi] on every call.
func UniformFactor(lo, hi int) FactorFunc {
	if hi < lo {
		hi = lo
	}
	span := hi - lo + 1
	return func() float64 {
		return float64(lo + rand.IntN(span))
	}
}

// FixedFactor always returns f.
func FixedFactor(f float64) FactorFunc {
	return func() float64 { return f }
}

type Estimator struct {
	factor FactorFunc
}

func NewEstimator(factor FactorFunc) *Estimator {
	return &Estimator{factor: factor}
}

// Estimate returns 0 when the country has no currency, nil when its currency has no usable
// rate, and population*factor/rate otherwise.
func (e *Estimator) Estimate(population int64, currencyCode *string, rates map[string]float64) *float64 {
	if currencyCode == nil || *currencyCode == "" {
		zero := 0.0
		return &zero
	}
	rate, ok := LookupRate(*currencyCode, rates)
	if !ok {
		return nil
	}
	v := float64(population) * e.factor() / rate
	return &v
}

// LookupRate finds a strictly positive rate for code. Codes are matched exactly first,
// then upper-cased.
func LookupRate(code string, rates map[string]float64) (float64, bool) {
	rate, ok := rates[code]
	if !ok {
		rate, ok = rates[strings.ToUpper(code)]
	}
	if !ok || rate <= 0 {
		return 0, false
	}
	return rate, true
}
