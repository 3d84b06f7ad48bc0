package indicators

import "math"

// Series helpers. All functions return slices aligned with their
// input; positions without enough history hold NaN. NaN is the
// internal null; the engine drops NaN values when assembling rows.

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func valid(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SMA returns the simple moving average over period bars.
func SMA(vals []float64, period int) []float64 {
	out := nanSlice(len(vals))
	if period <= 0 || len(vals) < period {
		return out
	}

	var sum float64
	for i, v := range vals {
		sum += v
		if i >= period {
			sum -= vals[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// EMA returns the exponential moving average, seeded with the SMA of
// the first period values. Leading NaNs in the input (e.g. an EMA of
// another indicator) shift the seed window forward.
func EMA(vals []float64, period int) []float64 {
	out := nanSlice(len(vals))
	if period <= 0 {
		return out
	}

	start := 0
	for start < len(vals) && !valid(vals[start]) {
		start++
	}
	if len(vals)-start < period {
		return out
	}

	var sum float64
	for i := start; i < start+period; i++ {
		sum += vals[i]
	}
	ema := sum / float64(period)
	out[start+period-1] = ema

	k := 2.0 / (float64(period) + 1.0)
	for i := start + period; i < len(vals); i++ {
		ema = vals[i]*k + ema*(1-k)
		out[i] = ema
	}
	return out
}

// rollingMax returns the max over the trailing window. minPeriods=1
// semantics: every position has a value over however much history
// exists, capped at period.
func rollingMax(vals []float64, period int) []float64 {
	out := nanSlice(len(vals))
	for i := range vals {
		lo := i - period + 1
		if lo < 0 {
			lo = 0
		}
		m := vals[lo]
		for j := lo + 1; j <= i; j++ {
			if vals[j] > m {
				m = vals[j]
			}
		}
		out[i] = m
	}
	return out
}

func rollingMin(vals []float64, period int) []float64 {
	out := nanSlice(len(vals))
	for i := range vals {
		lo := i - period + 1
		if lo < 0 {
			lo = 0
		}
		m := vals[lo]
		for j := lo + 1; j <= i; j++ {
			if vals[j] < m {
				m = vals[j]
			}
		}
		out[i] = m
	}
	return out
}

// windowMax is the strict-window variant: NaN until a full window.
func windowMax(vals []float64, period int) []float64 {
	out := nanSlice(len(vals))
	for i := period - 1; i < len(vals); i++ {
		m := vals[i-period+1]
		for j := i - period + 2; j <= i; j++ {
			if vals[j] > m {
				m = vals[j]
			}
		}
		out[i] = m
	}
	return out
}

func windowMin(vals []float64, period int) []float64 {
	out := nanSlice(len(vals))
	for i := period - 1; i < len(vals); i++ {
		m := vals[i-period+1]
		for j := i - period + 2; j <= i; j++ {
			if vals[j] < m {
				m = vals[j]
			}
		}
		out[i] = m
	}
	return out
}

// StdDev returns the rolling population standard deviation.
func StdDev(vals []float64, period int) []float64 {
	out := nanSlice(len(vals))
	if period <= 1 || len(vals) < period {
		return out
	}

	for i := period - 1; i < len(vals); i++ {
		var sum float64
		for j := i - period + 1; j <= i; j++ {
			sum += vals[j]
		}
		mean := sum / float64(period)

		var sq float64
		for j := i - period + 1; j <= i; j++ {
			d := vals[j] - mean
			sq += d * d
		}
		out[i] = math.Sqrt(sq / float64(period))
	}
	return out
}

// sampleStdDev returns the rolling sample standard deviation (n-1
// denominator), matching how the historical volatility of returns is
// conventionally computed.
func sampleStdDev(vals []float64, period int) []float64 {
	out := nanSlice(len(vals))
	if period <= 1 {
		return out
	}

	for i := range vals {
		lo := i - period + 1
		if lo < 0 {
			continue
		}

		count := 0
		var sum float64
		for j := lo; j <= i; j++ {
			if !valid(vals[j]) {
				count = -1
				break
			}
			sum += vals[j]
			count++
		}
		if count != period {
			continue
		}
		mean := sum / float64(period)

		var sq float64
		for j := lo; j <= i; j++ {
			d := vals[j] - mean
			sq += d * d
		}
		out[i] = math.Sqrt(sq / float64(period-1))
	}
	return out
}
