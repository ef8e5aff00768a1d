package stats

// Fence is an inclusive [Lower, Upper] acceptance interval
type Fence struct {
	Lower float64
	Upper float64
}

// Contains reports whether v lies inside the fence
func (f Fence) Contains(v float64) bool {
	return v >= f.Lower && v <= f.Upper
}

// QuantileFence builds a Tukey-style fence from arbitrary lower/upper quantiles:
// [qLow - k*(qHigh-qLow), qHigh + k*(qHigh-qLow)]. The coordinate cleaning uses
// the 5th and 95th percentiles with k = 1.5.
func QuantileFence(values []float64, low, high, k float64) Fence {
	if len(values) == 0 {
		return Fence{}
	}

	sorted := sortedCopy(values)
	ql := quantileSorted(sorted, low)
	qh := quantileSorted(sorted, high)
	spread := qh - ql

	return Fence{
		Lower: ql - k*spread,
		Upper: qh + k*spread,
	}
}
