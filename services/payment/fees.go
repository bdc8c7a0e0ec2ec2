package payment

import "math"

// PlatformFee computes the platform's cut of a captured amount in minor
// units. The fee rounds down, so the expert side never loses a sub-unit to
// rounding. A small epsilon absorbs binary float error on exact products
// like 10000 * 0.15.
func PlatformFee(amountMinor int64, feeRate float64) int64 {
	if amountMinor <= 0 || feeRate <= 0 {
		return 0
	}
	return int64(math.Floor(float64(amountMinor)*feeRate + 1e-9))
}

// NetAmount is what remains for the expert after the platform fee.
func NetAmount(amountMinor int64, feeRate float64) int64 {
	return amountMinor - PlatformFee(amountMinor, feeRate)
}
