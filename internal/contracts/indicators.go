package contracts

import "time"

// Indicator value keys. These are the canonical names exposed through
// the query layer, so they double as filter/preset keys and as column
// names in the indicators table.
const (
	IndWilliamsR14    = "williams_r_14"
	IndWilliamsR21    = "williams_r_21"
	IndEMA13WilliamsR = "ema_13_williams_r"
	IndRSI14          = "rsi_14"
	IndRSI21          = "rsi_21"
	IndMACD           = "macd"
	IndMACDSignal     = "macd_signal"
	IndMACDHist       = "macd_hist"
	IndStochK         = "stoch_k"
	IndStochD         = "stoch_d"
	IndROC10          = "roc_10"
	IndROC20          = "roc_20"
	IndCCI14          = "cci_14"
	IndCCI20          = "cci_20"
	IndMFI14          = "mfi_14"

	IndEMA9    = "ema_9"
	IndEMA20   = "ema_20"
	IndEMA50   = "ema_50"
	IndEMA200  = "ema_200"
	IndSMA20   = "sma_20"
	IndSMA50   = "sma_50"
	IndSMA200  = "sma_200"
	IndADX14   = "adx_14"
	IndPlusDI  = "plus_di"
	IndMinusDI = "minus_di"
	IndSAR     = "sar"

	IndATR14      = "atr_14"
	IndATR20      = "atr_20"
	IndATRPct     = "atr_pct"
	IndBBUpper    = "bb_upper"
	IndBBMiddle   = "bb_middle"
	IndBBLower    = "bb_lower"
	IndBBWidth    = "bb_width"
	IndBBPosition = "bb_position"
	IndStdDev20   = "stddev_20"
	IndHistVol20  = "hist_volatility_20"

	IndOBV        = "obv"
	IndAD         = "ad"
	IndADOsc      = "adosc"
	IndVolumeMA20 = "volume_ma_20"
	IndVolumeMA50 = "volume_ma_50"
	IndRelVolume  = "relative_volume"

	IndPriceVsSMA20Pct  = "price_vs_sma20_pct"
	IndPriceVsSMA50Pct  = "price_vs_sma50_pct"
	IndPriceVsSMA200Pct = "price_vs_sma200_pct"
	IndHigh52W          = "high_52w"
	IndLow52W           = "low_52w"
	IndPctFrom52WHigh   = "pct_from_52w_high"
	IndPctFrom52WLow    = "pct_from_52w_low"
	IndRange52WPosition = "range_52w_position"
	IndDataAgeDays      = "data_age_days"

	IndOpen   = "open"
	IndHigh   = "high"
	IndLow    = "low"
	IndClose  = "close"
	IndVolume = "volume"
)

// IndicatorRow is the full set of computed indicator values for one
// (symbol, date). A key absent from Values means the indicator could
// not be computed from the available history (null, never zero).
// Rows are derived data: fully reproducible from PriceBars.
type IndicatorRow struct {
	Symbol string             `json:"symbol"`
	Date   time.Time          `json:"date"`
	Values map[string]float64 `json:"values"`
}

// Value returns a named indicator value and whether it is present.
func (r *IndicatorRow) Value(name string) (float64, bool) {
	if r == nil || r.Values == nil {
		return 0, false
	}
	v, ok := r.Values[name]
	return v, ok
}
