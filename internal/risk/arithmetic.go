package risk

import "fmt"

// PriceAtPnL returns the price at which a position reaches the desired PnL,
// both net of the round-trip commission and gross.
func PriceAtPnL(desiredPnL, entryPrice, orderSizeUSD float64, side string, commission float64) (withCommission, withoutCommission float64, err error) {
	switch side {
	case "BUY":
		withCommission = entryPrice * (1 + (desiredPnL+commission)/orderSizeUSD)
		withoutCommission = entryPrice * (1 + desiredPnL/orderSizeUSD)
	case "SELL":
		withCommission = entryPrice * (1 - (desiredPnL+commission)/orderSizeUSD)
		withoutCommission = entryPrice * (1 - desiredPnL/orderSizeUSD)
	default:
		return 0, 0, fmt.Errorf("%w: got %q", ErrInvalidDirection, side)
	}
	return withCommission, withoutCommission, nil
}

// PnLAtPrice is the inverse of PriceAtPnL: the gross and net PnL of a
// position marked at the given price.
func PnLAtPrice(currentPrice, entryPrice, orderSizeUSD float64, side string, commission float64) (gross, net float64, err error) {
	var priceChange float64
	switch side {
	case "BUY":
		priceChange = (currentPrice - entryPrice) / entryPrice
	case "SELL":
		priceChange = (entryPrice - currentPrice) / entryPrice
	default:
		return 0, 0, fmt.Errorf("%w: got %q", ErrInvalidDirection, side)
	}

	gross = orderSizeUSD * priceChange
	net = gross - commission
	return gross, net, nil
}

// OrderSizeUSD returns the notional value of a position.
func OrderSizeUSD(capital, leverage float64) float64 {
	return capital * leverage
}

// LiquidationPrice estimates the price at which a leveraged position is
// liquidated, ignoring maintenance margin.
func LiquidationPrice(entryPrice, leverage float64, side string) (float64, error) {
	switch side {
	case "BUY":
		return entryPrice * (1 - 1/leverage), nil
	case "SELL":
		return entryPrice * (1 + 1/leverage), nil
	default:
		return 0, fmt.Errorf("%w: got %q", ErrInvalidDirection, side)
	}
}

// LotsToUSD converts a volume in lots to its notional USD value.
func LotsToUSD(lots, contractSize, priceOpen float64) float64 {
	return lots * contractSize * priceOpen
}

// USDToLots converts a notional USD amount to lots at the given price,
// snapped to the broker's volume step.
func USDToLots(usdAmount, contractSize, price, volumeStep float64) float64 {
	if contractSize <= 0 || price <= 0 {
		return 0
	}
	return snapToStep(usdAmount/(contractSize*price), volumeStep)
}
