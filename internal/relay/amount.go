package relay

import (
	"fmt"
	"math"
)

// MaxDecimals bounds the per-asset scale factor. SPL mints use at most 9.
const MaxDecimals = 9

// ToBaseUnits converts a display-unit amount (e.g. 1.5 USDC) to the
// ledger's base integer unit using the asset's decimal scale.
// Truncation is always downward (floor): rounding up would credit the
// recipient more than the caller asked to send.
func ToBaseUnits(display float64, decimals int) (uint64, error) {
	if decimals < 0 || decimals > MaxDecimals {
		return 0, fmt.Errorf("decimals out of range: %d", decimals)
	}
	if math.IsNaN(display) || math.IsInf(display, 0) {
		return 0, fmt.Errorf("amount is not a finite number")
	}
	if display <= 0 {
		return 0, fmt.Errorf("amount must be positive, got %v", display)
	}

	scaled := math.Floor(display * math.Pow10(decimals))
	if scaled < 1 {
		return 0, fmt.Errorf("amount %v is below one base unit", display)
	}
	if scaled > math.MaxUint64 {
		return 0, fmt.Errorf("amount %v overflows base units", display)
	}

	return uint64(scaled), nil
}
