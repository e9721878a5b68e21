// Pricing rules: expected price from neighbourhood supply and demand,
// storage capacity, and distance-adjusted offer prices.
package economy

import "math"

// EmptyAggregateDenominator replaces supply+demand when both are zero.
const EmptyAggregateDenominator = 0.00001

// Round rounds half to even, matching the rounding the model was calibrated with.
func Round(x float64) int {
	return int(math.RoundToEven(x))
}

// ExpectedPrice returns avgDemand / (avgSupply + avgDemand). When the
// aggregate is empty the fallback denominator keeps the price finite.
func ExpectedPrice(avgSupply, avgDemand float64) float64 {
	denom := avgSupply + avgDemand
	if denom == 0 {
		denom = EmptyAggregateDenominator
	}
	return avgDemand / denom
}

// MaxStockSize is the rounded gap between the neighbourhood's average total
// demand and the merchant's own total demand. The same scalar applies to every
// product kind.
func MaxStockSize(avgDemand float64, ownDemandTotal int) int {
	return Round(avgDemand - float64(ownDemandTotal))
}

// TransportCost scales a path cost into the fraction of the whole spatial
// network it covers. A network with no cost yields zero.
func TransportCost(distanceMultiplier, pathCost, totalSpatialCost float64) float64 {
	if totalSpatialCost <= 0 {
		return 0
	}
	return distanceMultiplier * pathCost / totalSpatialCost
}

// OfferPrice is what a buyer bids: its own expected price less transport.
func OfferPrice(expectedPrice, transportCost float64) float64 {
	return expectedPrice - transportCost
}
