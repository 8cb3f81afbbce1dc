package shared

import "math/big"

const (
	BasisPointsDivisor = 10_000

	// UsdDecimals scales every USD value and price.
	UsdDecimals = 30
	// FactorDecimals scales impact factors and exponents.
	FactorDecimals = 30
	UsdgDecimals   = 18
)

var (
	Precision             = new(big.Int).Exp(big.NewInt(10), big.NewInt(UsdDecimals), nil)
	BasisPointsDivisorBig = big.NewInt(BasisPointsDivisor)
)
