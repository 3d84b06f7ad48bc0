package indicators

import "math"

// WilliamsR returns Williams %R over period bars, in [-100, 0].
// A flat window (high == low) reads as the midpoint.
func WilliamsR(high, low, close []float64, period int) []float64 {
	out := nanSlice(len(close))
	hh := windowMax(high, period)
	ll := windowMin(low, period)

	for i := period - 1; i < len(close); i++ {
		denom := hh[i] - ll[i]
		if denom == 0 {
			out[i] = -50
			continue
		}
		out[i] = clamp(-100*(hh[i]-close[i])/denom, -100, 0)
	}
	return out
}

// RSI returns the Wilder-smoothed relative strength index, in [0, 100].
func RSI(close []float64, period int) []float64 {
	out := nanSlice(len(close))
	if len(close) <= period {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := close[i] - close[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < len(close); i++ {
		change := close[i] - close[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return clamp(100-100/(1+rs), 0, 100)
}

// Stochastic returns the slow %K and %D lines, both in [0, 100].
func Stochastic(high, low, close []float64, kPeriod, slowK, slowD int) (k, d []float64) {
	fastK := nanSlice(len(close))
	hh := windowMax(high, kPeriod)
	ll := windowMin(low, kPeriod)

	for i := kPeriod - 1; i < len(close); i++ {
		denom := hh[i] - ll[i]
		if denom == 0 {
			fastK[i] = 50
			continue
		}
		fastK[i] = clamp(100*(close[i]-ll[i])/denom, 0, 100)
	}

	k = smaSkipNaN(fastK, slowK)
	d = smaSkipNaN(k, slowD)
	return k, d
}

// smaSkipNaN averages over the window starting after the input's
// leading NaN run.
func smaSkipNaN(vals []float64, period int) []float64 {
	out := nanSlice(len(vals))
	start := 0
	for start < len(vals) && !valid(vals[start]) {
		start++
	}
	for i := start + period - 1; i < len(vals); i++ {
		var sum float64
		for j := i - period + 1; j <= i; j++ {
			sum += vals[j]
		}
		out[i] = sum / float64(period)
	}
	return out
}

// ROC returns the rate of change as a percentage vs period bars ago.
func ROC(close []float64, period int) []float64 {
	out := nanSlice(len(close))
	for i := period; i < len(close); i++ {
		if close[i-period] == 0 {
			continue
		}
		out[i] = 100 * (close[i] - close[i-period]) / close[i-period]
	}
	return out
}

// CCI returns the commodity channel index over period bars.
func CCI(high, low, close []float64, period int) []float64 {
	out := nanSlice(len(close))
	tp := make([]float64, len(close))
	for i := range tp {
		tp[i] = (high[i] + low[i] + close[i]) / 3
	}
	tpSMA := SMA(tp, period)

	for i := period - 1; i < len(close); i++ {
		var dev float64
		for j := i - period + 1; j <= i; j++ {
			dev += math.Abs(tp[j] - tpSMA[i])
		}
		dev /= float64(period)
		if dev == 0 {
			out[i] = 0
			continue
		}
		out[i] = (tp[i] - tpSMA[i]) / (0.015 * dev)
	}
	return out
}

// MFI returns the money flow index over period bars, in [0, 100].
func MFI(high, low, close, volume []float64, period int) []float64 {
	out := nanSlice(len(close))
	if len(close) <= period {
		return out
	}

	tp := make([]float64, len(close))
	for i := range tp {
		tp[i] = (high[i] + low[i] + close[i]) / 3
	}

	for i := period; i < len(close); i++ {
		var pos, neg float64
		for j := i - period + 1; j <= i; j++ {
			flow := tp[j] * volume[j]
			switch {
			case tp[j] > tp[j-1]:
				pos += flow
			case tp[j] < tp[j-1]:
				neg += flow
			}
		}
		if neg == 0 {
			out[i] = 100
			continue
		}
		out[i] = clamp(100-100/(1+pos/neg), 0, 100)
	}
	return out
}

// MACD returns the MACD line, signal line and histogram.
func MACD(close []float64, fast, slow, signal int) (line, sig, hist []float64) {
	emaFast := EMA(close, fast)
	emaSlow := EMA(close, slow)

	line = nanSlice(len(close))
	for i := range close {
		if valid(emaFast[i]) && valid(emaSlow[i]) {
			line[i] = emaFast[i] - emaSlow[i]
		}
	}

	sig = EMA(line, signal)

	hist = nanSlice(len(close))
	for i := range close {
		if valid(line[i]) && valid(sig[i]) {
			hist[i] = line[i] - sig[i]
		}
	}
	return line, sig, hist
}
