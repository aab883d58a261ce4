package models

// Timeframe is a trend-provider lookback window.
type Timeframe string

const (
	Timeframe3Months  Timeframe = "today 3-m"
	Timeframe12Months Timeframe = "today 12-m"
	Timeframe24Months Timeframe = "today 24-m"
	Timeframe5Years   Timeframe = "today 5-y"
)

// IsValidTimeframe returns true if tf is a supported timeframe.
func IsValidTimeframe(tf Timeframe) bool {
	switch tf {
	case Timeframe3Months, Timeframe12Months, Timeframe24Months, Timeframe5Years:
		return true
	default:
		return false
	}
}

// DefaultTimeframe returns the default timeframe.
func DefaultTimeframe() Timeframe { return Timeframe12Months }

// HistoryTimeframe is the longer window used for historical validation.
func HistoryTimeframe() Timeframe { return Timeframe24Months }

// NormalizeTimeframe converts raw string to a valid timeframe (or default).
func NormalizeTimeframe(s string) Timeframe {
	if s == "" {
		return DefaultTimeframe()
	}
	tf := Timeframe(s)
	if IsValidTimeframe(tf) {
		return tf
	}
	return DefaultTimeframe()
}
