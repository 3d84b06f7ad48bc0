package indicators

import "math"

func trueRange(high, low, prevClose float64) float64 {
	tr := high - low
	if v := math.Abs(high - prevClose); v > tr {
		tr = v
	}
	if v := math.Abs(low - prevClose); v > tr {
		tr = v
	}
	return tr
}

// ATR returns the Wilder-smoothed average true range over period bars.
func ATR(high, low, close []float64, period int) []float64 {
	out := nanSlice(len(close))
	if len(close) <= period {
		return out
	}

	var sum float64
	for i := 1; i <= period; i++ {
		sum += trueRange(high[i], low[i], close[i-1])
	}
	atr := sum / float64(period)
	out[period] = atr

	for i := period + 1; i < len(close); i++ {
		tr := trueRange(high[i], low[i], close[i-1])
		atr = (atr*float64(period-1) + tr) / float64(period)
		out[i] = atr
	}
	return out
}

// Bollinger returns the upper, middle and lower bands plus the derived
// width (percent of middle) and position (percent of band range,
// clamped to [0, 100]).
func Bollinger(close []float64, period int, mult float64) (upper, middle, lower, width, position []float64) {
	n := len(close)
	middle = SMA(close, period)
	sd := StdDev(close, period)

	upper = nanSlice(n)
	lower = nanSlice(n)
	width = nanSlice(n)
	position = nanSlice(n)

	for i := range close {
		if !valid(middle[i]) || !valid(sd[i]) {
			continue
		}
		upper[i] = middle[i] + mult*sd[i]
		lower[i] = middle[i] - mult*sd[i]

		if middle[i] != 0 {
			width[i] = 100 * (upper[i] - lower[i]) / middle[i]
		}
		span := upper[i] - lower[i]
		if span == 0 {
			position[i] = 50
			continue
		}
		position[i] = clamp(100*(close[i]-lower[i])/span, 0, 100)
	}
	return upper, middle, lower, width, position
}

// HistoricalVolatility returns the annualized standard deviation of
// daily returns over period bars, as a percentage.
func HistoricalVolatility(close []float64, period int) []float64 {
	n := len(close)
	returns := nanSlice(n)
	for i := 1; i < n; i++ {
		if close[i-1] == 0 {
			continue
		}
		returns[i] = close[i]/close[i-1] - 1
	}

	sd := sampleStdDev(returns, period)
	out := nanSlice(n)
	annualize := math.Sqrt(252)
	for i := range sd {
		if valid(sd[i]) {
			out[i] = sd[i] * annualize * 100
		}
	}
	return out
}
