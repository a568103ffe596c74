package risk

import "mt5-smc-bot/internal/market"

// Round-trip commission rates by asset class, as a fraction of notional.
const (
	cryptoCommissionRate  = 0.0005  // 0.05%
	defaultCommissionRate = 0.00025 // 0.025%, forex / metals / oils
)

// EstimateCommission returns the round-trip (open plus close) commission for
// a position of the given notional value.
func EstimateCommission(orderSizeUSD float64, symbol string) float64 {
	rate := defaultCommissionRate
	if market.Classify(symbol) == market.ClassCrypto {
		rate = cryptoCommissionRate
	}
	return orderSizeUSD * rate
}
