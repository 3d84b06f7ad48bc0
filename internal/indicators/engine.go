package indicators

import (
	"fmt"
	"sort"
	"time"

	"github.com/openquant/screener/internal/contracts"
	"github.com/openquant/screener/pkg/logger"
)

// MinPreferredBars is the history depth the orchestrator tries to
// maintain so the 200-bar averages and 52-week stats are meaningful.
// Shorter series still compute; long-window indicators come out null.
const MinPreferredBars = 200

// Engine computes the full indicator set for a price series. It is
// stateless and safe for concurrent use.
type Engine struct {
	log *logger.Logger
}

func NewEngine(log *logger.Logger) *Engine {
	return &Engine{log: log}
}

// Compute returns one IndicatorRow per input bar, oldest first. Bars
// must belong to a single symbol; they are sorted by date before
// computation. Values that cannot be computed from the available
// history are simply absent from the row.
func (e *Engine) Compute(bars []contracts.PriceBar, asOf time.Time) ([]contracts.IndicatorRow, error) {
	if len(bars) == 0 {
		return nil, fmt.Errorf("no price bars")
	}
	symbol := bars[0].Symbol
	for _, b := range bars[1:] {
		if b.Symbol != symbol {
			return nil, fmt.Errorf("mixed symbols in series: %s and %s", symbol, b.Symbol)
		}
	}

	sorted := make([]contracts.PriceBar, len(bars))
	copy(sorted, bars)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	n := len(sorted)
	open := make([]float64, n)
	high := make([]float64, n)
	low := make([]float64, n)
	close := make([]float64, n)
	volume := make([]float64, n)
	for i, b := range sorted {
		open[i] = b.Open
		high[i] = b.High
		low[i] = b.Low
		close[i] = b.Close
		volume[i] = b.Volume
	}

	series := map[string][]float64{
		contracts.IndOpen:   open,
		contracts.IndHigh:   high,
		contracts.IndLow:    low,
		contracts.IndClose:  close,
		contracts.IndVolume: volume,
	}

	wr21 := WilliamsR(high, low, close, 21)
	series[contracts.IndWilliamsR14] = WilliamsR(high, low, close, 14)
	series[contracts.IndWilliamsR21] = wr21
	series[contracts.IndEMA13WilliamsR] = EMA(wr21, 13)

	series[contracts.IndRSI14] = RSI(close, 14)
	series[contracts.IndRSI21] = RSI(close, 21)

	macd, macdSig, macdHist := MACD(close, 12, 26, 9)
	series[contracts.IndMACD] = macd
	series[contracts.IndMACDSignal] = macdSig
	series[contracts.IndMACDHist] = macdHist

	stochK, stochD := Stochastic(high, low, close, 14, 3, 3)
	series[contracts.IndStochK] = stochK
	series[contracts.IndStochD] = stochD

	series[contracts.IndROC10] = ROC(close, 10)
	series[contracts.IndROC20] = ROC(close, 20)
	series[contracts.IndCCI14] = CCI(high, low, close, 14)
	series[contracts.IndCCI20] = CCI(high, low, close, 20)
	series[contracts.IndMFI14] = MFI(high, low, close, volume, 14)

	series[contracts.IndEMA9] = EMA(close, 9)
	series[contracts.IndEMA20] = EMA(close, 20)
	series[contracts.IndEMA50] = EMA(close, 50)
	series[contracts.IndEMA200] = EMA(close, 200)

	sma20 := SMA(close, 20)
	sma50 := SMA(close, 50)
	sma200 := SMA(close, 200)
	series[contracts.IndSMA20] = sma20
	series[contracts.IndSMA50] = sma50
	series[contracts.IndSMA200] = sma200

	adx, plusDI, minusDI := ADX(high, low, close, 14)
	series[contracts.IndADX14] = adx
	series[contracts.IndPlusDI] = plusDI
	series[contracts.IndMinusDI] = minusDI
	series[contracts.IndSAR] = ParabolicSAR(high, low, 0.02, 0.2)

	atr14 := ATR(high, low, close, 14)
	series[contracts.IndATR14] = atr14
	series[contracts.IndATR20] = ATR(high, low, close, 20)

	atrPct := nanSlice(n)
	for i := range atrPct {
		if valid(atr14[i]) && close[i] != 0 {
			atrPct[i] = 100 * atr14[i] / close[i]
		}
	}
	series[contracts.IndATRPct] = atrPct

	bbU, bbM, bbL, bbW, bbP := Bollinger(close, 20, 2)
	series[contracts.IndBBUpper] = bbU
	series[contracts.IndBBMiddle] = bbM
	series[contracts.IndBBLower] = bbL
	series[contracts.IndBBWidth] = bbW
	series[contracts.IndBBPosition] = bbP

	series[contracts.IndStdDev20] = StdDev(close, 20)
	series[contracts.IndHistVol20] = HistoricalVolatility(close, 20)

	series[contracts.IndOBV] = OBV(close, volume)
	series[contracts.IndAD] = AD(high, low, close, volume)
	series[contracts.IndADOsc] = ADOSC(high, low, close, volume, 3, 10)
	series[contracts.IndVolumeMA20] = SMA(volume, 20)
	series[contracts.IndVolumeMA50] = SMA(volume, 50)
	series[contracts.IndRelVolume] = RelativeVolume(volume, 20)

	series[contracts.IndPriceVsSMA20Pct] = priceVsSMA(close, sma20)
	series[contracts.IndPriceVsSMA50Pct] = priceVsSMA(close, sma50)
	series[contracts.IndPriceVsSMA200Pct] = priceVsSMA(close, sma200)

	// 52-week stats use however much history exists, up to 252 bars.
	hh52 := rollingMax(high, 252)
	ll52 := rollingMin(low, 252)
	series[contracts.IndHigh52W] = hh52
	series[contracts.IndLow52W] = ll52

	pctFromHigh := nanSlice(n)
	pctFromLow := nanSlice(n)
	rangePos := nanSlice(n)
	for i := range close {
		if hh52[i] != 0 {
			pctFromHigh[i] = 100 * (close[i] - hh52[i]) / hh52[i]
		}
		if ll52[i] != 0 {
			pctFromLow[i] = 100 * (close[i] - ll52[i]) / ll52[i]
		}
		span := hh52[i] - ll52[i]
		if span == 0 {
			rangePos[i] = 50
		} else {
			rangePos[i] = clamp(100*(close[i]-ll52[i])/span, 0, 100)
		}
	}
	series[contracts.IndPctFrom52WHigh] = pctFromHigh
	series[contracts.IndPctFrom52WLow] = pctFromLow
	series[contracts.IndRange52WPosition] = rangePos

	rows := make([]contracts.IndicatorRow, n)
	for i, b := range sorted {
		values := make(map[string]float64, len(series)+1)
		for name, s := range series {
			if valid(s[i]) {
				values[name] = s[i]
			}
		}
		values[contracts.IndDataAgeDays] = ageDays(b.Date, asOf)
		rows[i] = contracts.IndicatorRow{
			Symbol: symbol,
			Date:   b.Date,
			Values: values,
		}
	}

	if n < MinPreferredBars {
		e.log.WithFields(map[string]interface{}{
			"symbol": symbol,
			"bars":   n,
		}).Debug("short history, long-window indicators omitted")
	}
	return rows, nil
}

// Latest computes all indicators and returns only the most recent row.
func (e *Engine) Latest(bars []contracts.PriceBar, asOf time.Time) (*contracts.IndicatorRow, error) {
	rows, err := e.Compute(bars, asOf)
	if err != nil {
		return nil, err
	}
	return &rows[len(rows)-1], nil
}

func priceVsSMA(close, sma []float64) []float64 {
	out := nanSlice(len(close))
	for i := range close {
		if valid(sma[i]) && sma[i] != 0 {
			out[i] = 100 * (close[i] - sma[i]) / sma[i]
		}
	}
	return out
}

func ageDays(barDate, asOf time.Time) float64 {
	d := asOf.Sub(barDate).Hours() / 24
	if d < 0 {
		d = 0
	}
	return float64(int(d))
}
