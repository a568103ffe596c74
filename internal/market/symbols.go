// Package market classifies trading symbols and answers session-window
// questions for them.
package market

import "strings"

// AssetClass groups symbols by the venue rules that apply to them.
type AssetClass string

const (
	ClassCrypto  AssetClass = "CRYPTO"
	ClassForex   AssetClass = "FOREX"
	ClassMetal   AssetClass = "METAL"
	ClassOil     AssetClass = "OIL"
	ClassUnknown AssetClass = "UNKNOWN"
)

var (
	cryptoTickers = []string{
		"BTC", "ETH", "BNB", "SOL", "HBAR", "DOGE", "LTC", "XRP",
		"ADA", "DOT", "MATIC", "UNI", "AVAX", "LINK", "ATOM", "AXS",
	}
	metalTickers = []string{"XAU", "XAG"}
	oilTickers   = []string{"OIL", "XNG", "NG", "WTI", "BRN"}
	currencies   = []string{"USD", "EUR", "GBP", "JPY", "CHF", "CAD", "AUD", "NZD"}
)

// Classify maps a broker symbol (for example "EURUSDm" or "BTCUSD") to its
// asset class. Crypto is checked first because crypto pairs also contain a
// quote currency.
func Classify(symbol string) AssetClass {
	s := strings.ToUpper(symbol)

	for _, t := range cryptoTickers {
		if strings.Contains(s, t) {
			return ClassCrypto
		}
	}
	for _, t := range metalTickers {
		if strings.Contains(s, t) {
			return ClassMetal
		}
	}
	for _, t := range oilTickers {
		if strings.Contains(s, t) {
			return ClassOil
		}
	}
	for _, c := range currencies {
		if strings.Contains(s, c) {
			return ClassForex
		}
	}
	return ClassUnknown
}
