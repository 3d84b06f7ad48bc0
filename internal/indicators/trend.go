package indicators

import "math"

// ADX returns the average directional index with its +DI and -DI
// components, all Wilder-smoothed over period bars.
func ADX(high, low, close []float64, period int) (adx, plusDI, minusDI []float64) {
	n := len(close)
	adx = nanSlice(n)
	plusDI = nanSlice(n)
	minusDI = nanSlice(n)
	if n <= 2*period {
		return adx, plusDI, minusDI
	}

	tr := make([]float64, n)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 1; i < n; i++ {
		tr[i] = trueRange(high[i], low[i], close[i-1])

		upMove := high[i] - high[i-1]
		downMove := low[i-1] - low[i]
		if upMove > downMove && upMove > 0 {
			plusDM[i] = upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM[i] = downMove
		}
	}

	// Seed with plain sums of the first period values, then apply
	// Wilder smoothing.
	var trS, plusS, minusS float64
	for i := 1; i <= period; i++ {
		trS += tr[i]
		plusS += plusDM[i]
		minusS += minusDM[i]
	}

	dx := nanSlice(n)
	p := float64(period)
	for i := period; i < n; i++ {
		if i > period {
			trS = trS - trS/p + tr[i]
			plusS = plusS - plusS/p + plusDM[i]
			minusS = minusS - minusS/p + minusDM[i]
		}
		if trS == 0 {
			plusDI[i] = 0
			minusDI[i] = 0
			dx[i] = 0
			continue
		}
		plusDI[i] = 100 * plusS / trS
		minusDI[i] = 100 * minusS / trS

		sum := plusDI[i] + minusDI[i]
		if sum == 0 {
			dx[i] = 0
			continue
		}
		dx[i] = 100 * math.Abs(plusDI[i]-minusDI[i]) / sum
	}

	var adxVal float64
	for i := period; i < 2*period; i++ {
		adxVal += dx[i]
	}
	adxVal /= p
	adx[2*period-1] = adxVal
	for i := 2 * period; i < n; i++ {
		adxVal = (adxVal*(p-1) + dx[i]) / p
		adx[i] = adxVal
	}
	return adx, plusDI, minusDI
}

// ParabolicSAR returns the parabolic stop-and-reverse with the given
// acceleration step and maximum.
func ParabolicSAR(high, low []float64, step, maxAF float64) []float64 {
	n := len(high)
	out := nanSlice(n)
	if n < 2 {
		return out
	}

	uptrend := high[1]+low[1] >= high[0]+low[0]
	af := step
	var sar, ep float64
	if uptrend {
		sar = low[0]
		ep = high[1]
	} else {
		sar = high[0]
		ep = low[1]
	}
	out[1] = sar

	for i := 2; i < n; i++ {
		sar = sar + af*(ep-sar)

		if uptrend {
			// SAR may not enter the prior two bars' range.
			if sar > low[i-1] {
				sar = low[i-1]
			}
			if sar > low[i-2] {
				sar = low[i-2]
			}
			if low[i] < sar {
				uptrend = false
				sar = ep
				ep = low[i]
				af = step
			} else if high[i] > ep {
				ep = high[i]
				af = math.Min(af+step, maxAF)
			}
		} else {
			if sar < high[i-1] {
				sar = high[i-1]
			}
			if sar < high[i-2] {
				sar = high[i-2]
			}
			if high[i] > sar {
				uptrend = true
				sar = ep
				ep = high[i]
				af = step
			} else if low[i] < ep {
				ep = low[i]
				af = math.Min(af+step, maxAF)
			}
		}
		out[i] = sar
	}
	return out
}
