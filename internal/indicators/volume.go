package indicators

// OBV returns on-balance volume, cumulative from the first bar.
func OBV(close, volume []float64) []float64 {
	out := nanSlice(len(close))
	if len(close) == 0 {
		return out
	}

	obv := volume[0]
	out[0] = obv
	for i := 1; i < len(close); i++ {
		switch {
		case close[i] > close[i-1]:
			obv += volume[i]
		case close[i] < close[i-1]:
			obv -= volume[i]
		}
		out[i] = obv
	}
	return out
}

// AD returns the Chaikin accumulation/distribution line.
func AD(high, low, close, volume []float64) []float64 {
	out := nanSlice(len(close))
	var ad float64
	for i := range close {
		span := high[i] - low[i]
		if span != 0 {
			clv := ((close[i] - low[i]) - (high[i] - close[i])) / span
			ad += clv * volume[i]
		}
		out[i] = ad
	}
	return out
}

// ADOSC returns the Chaikin oscillator: fast EMA of the A/D line minus
// the slow EMA.
func ADOSC(high, low, close, volume []float64, fast, slow int) []float64 {
	ad := AD(high, low, close, volume)
	emaFast := EMA(ad, fast)
	emaSlow := EMA(ad, slow)

	out := nanSlice(len(close))
	for i := range close {
		if valid(emaFast[i]) && valid(emaSlow[i]) {
			out[i] = emaFast[i] - emaSlow[i]
		}
	}
	return out
}

// RelativeVolume returns volume as a multiple of its period-bar
// average.
func RelativeVolume(volume []float64, period int) []float64 {
	ma := SMA(volume, period)
	out := nanSlice(len(volume))
	for i := range volume {
		if valid(ma[i]) && ma[i] != 0 {
			out[i] = volume[i] / ma[i]
		}
	}
	return out
}
