package snapshot

import (
	"errors"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tidwall/gjson"

	"github.com/krazyTry/perpdex-go/shared"
	"github.com/krazyTry/perpdex-go/u256"
)

var (
	ErrInvalidJSON    = errors.New("invalid snapshot json")
	ErrMissingField   = errors.New("missing field")
	ErrInvalidAddress = errors.New("invalid address")
	ErrUnknownToken   = errors.New("unknown token")
	ErrUnknownMarket  = errors.New("unknown market")
)

// Snapshot is one refresh cycle of externally supplied market state.
type Snapshot struct {
	ChainID   uint64
	Info      *shared.MarketsInfo
	Positions []*shared.Position
}

// Load reads and parses the snapshot file at path.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return Parse(data)
}

// Parse decodes a snapshot document. Quantities are uint256 values written as decimal or
// 0x-prefixed strings. Optional quantities left out decode to nil.
func Parse(data []byte) (*Snapshot, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidJSON
	}
	doc := gjson.ParseBytes(data)

	s := &Snapshot{
		ChainID: doc.Get("chainId").Uint(),
		Info: &shared.MarketsInfo{
			Markets: make(map[common.Address]*shared.Market),
			Tokens:  make(map[common.Address]*shared.Token),
		},
	}

	for i, v := range doc.Get("tokens").Array() {
		token, err := parseToken(v)
		if err != nil {
			return nil, fmt.Errorf("tokens[%d]: %w", i, err)
		}
		s.Info.Tokens[token.Address] = token
	}
	for i, v := range doc.Get("markets").Array() {
		market, err := parseMarket(v, s.Info)
		if err != nil {
			return nil, fmt.Errorf("markets[%d]: %w", i, err)
		}
		s.Info.Markets[market.Address] = market
	}
	for i, v := range doc.Get("positions").Array() {
		position, err := parsePosition(v, s.Info)
		if err != nil {
			return nil, fmt.Errorf("positions[%d]: %w", i, err)
		}
		s.Positions = append(s.Positions, position)
	}
	return s, nil
}

// Position returns the position keyed by account, market, collateral token and side.
func (s *Snapshot) Position(account, market, collateralToken common.Address, isLong bool) (*shared.Position, bool) {
	for _, p := range s.Positions {
		if p.Account == account && p.Market == market && p.CollateralToken == collateralToken && p.IsLong == isLong {
			return p, true
		}
	}
	return nil, false
}

func parseToken(v gjson.Result) (*shared.Token, error) {
	address, err := requiredAddress(v, "address")
	if err != nil {
		return nil, err
	}
	decimals := v.Get("decimals")
	if !decimals.Exists() {
		return nil, fmt.Errorf("%w: decimals", ErrMissingField)
	}
	if decimals.Uint() > 77 {
		return nil, fmt.Errorf("decimals %d out of range", decimals.Uint())
	}

	token := &shared.Token{
		Address:   address,
		Symbol:    v.Get("symbol").String(),
		Decimals:  uint8(decimals.Uint()),
		IsStable:  v.Get("isStable").Bool(),
		IsNative:  v.Get("isNative").Bool(),
		IsWrapped: v.Get("isWrapped").Bool(),
	}
	if prices := v.Get("prices"); prices.Exists() {
		minPrice, err := optionalBig(prices, "minPrice")
		if err != nil {
			return nil, err
		}
		maxPrice, err := optionalBig(prices, "maxPrice")
		if err != nil {
			return nil, err
		}
		token.Prices = &shared.TokenPrices{MinPrice: minPrice, MaxPrice: maxPrice}
	}
	return token, nil
}

func parseMarket(v gjson.Result, info *shared.MarketsInfo) (*shared.Market, error) {
	market := &shared.Market{IsDisabled: v.Get("isDisabled").Bool()}

	addresses := []struct {
		path   string
		target *common.Address
		token  bool
	}{
		{"address", &market.Address, false},
		{"indexToken", &market.IndexToken, true},
		{"longToken", &market.LongToken, true},
		{"shortToken", &market.ShortToken, true},
	}
	for _, a := range addresses {
		address, err := requiredAddress(v, a.path)
		if err != nil {
			return nil, err
		}
		if _, ok := info.Token(address); a.token && !ok {
			return nil, fmt.Errorf("%w: %s %s", ErrUnknownToken, a.path, address.Hex())
		}
		*a.target = address
	}

	var err error
	if market.Long, err = parsePool(v.Get("long")); err != nil {
		return nil, fmt.Errorf("long: %w", err)
	}
	if market.Short, err = parsePool(v.Get("short")); err != nil {
		return nil, fmt.Errorf("short: %w", err)
	}
	if market.SwapImpact, err = parseImpact(v.Get("swapImpact")); err != nil {
		return nil, fmt.Errorf("swapImpact: %w", err)
	}
	if market.PositionImpact, err = parseImpact(v.Get("positionImpact")); err != nil {
		return nil, fmt.Errorf("positionImpact: %w", err)
	}

	fields := []field{
		{"longInterestUsd", &market.LongInterestUsd},
		{"shortInterestUsd", &market.ShortInterestUsd},
		{"globalShortSize", &market.GlobalShortSize},
		{"maxGlobalShortSize", &market.MaxGlobalShortSize},
		{"maxPositionImpactFactor", &market.MaxPositionImpactFactor},
		{"positionImpactPoolAmount", &market.PositionImpactPoolAmount},
	}
	if err := decodeFields(v, fields); err != nil {
		return nil, err
	}
	return market, nil
}

func parsePool(v gjson.Result) (shared.PoolState, error) {
	var pool shared.PoolState
	fields := []field{
		{"poolAmount", &pool.PoolAmount},
		{"reservedAmount", &pool.ReservedAmount},
		{"bufferAmount", &pool.BufferAmount},
		{"maxPoolAmount", &pool.MaxPoolAmount},
		{"usdgAmount", &pool.UsdgAmount},
		{"maxUsdgAmount", &pool.MaxUsdgAmount},
		{"weight", &pool.Weight},
		{"impactPoolAmount", &pool.ImpactPoolAmount},
		{"cumulativeFundingRate", &pool.CumulativeFundingRate},
	}
	err := decodeFields(v, fields)
	return pool, err
}

func parseImpact(v gjson.Result) (shared.ImpactFactors, error) {
	var factors shared.ImpactFactors
	fields := []field{
		{"positiveFactor", &factors.PositiveFactor},
		{"negativeFactor", &factors.NegativeFactor},
		{"exponentFactor", &factors.ExponentFactor},
	}
	err := decodeFields(v, fields)
	return factors, err
}

func parsePosition(v gjson.Result, info *shared.MarketsInfo) (*shared.Position, error) {
	position := &shared.Position{
		IsLong:            v.Get("isLong").Bool(),
		LastIncreasedTime: v.Get("lastIncreasedTime").Int(),
	}
	var err error
	if position.Account, err = requiredAddress(v, "account"); err != nil {
		return nil, err
	}
	if position.Market, err = requiredAddress(v, "market"); err != nil {
		return nil, err
	}
	if _, ok := info.Market(position.Market); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMarket, position.Market.Hex())
	}
	if position.CollateralToken, err = requiredAddress(v, "collateralToken"); err != nil {
		return nil, err
	}
	if _, ok := info.Token(position.CollateralToken); !ok {
		return nil, fmt.Errorf("%w: collateralToken %s", ErrUnknownToken, position.CollateralToken.Hex())
	}

	fields := []field{
		{"sizeUsd", &position.SizeUsd},
		{"sizeInTokens", &position.SizeInTokens},
		{"collateralUsd", &position.CollateralUsd},
		{"averagePrice", &position.AveragePrice},
		{"entryFundingRate", &position.EntryFundingRate},
	}
	if err := decodeFields(v, fields); err != nil {
		return nil, err
	}
	if position.SizeUsd == nil || position.CollateralUsd == nil || position.AveragePrice == nil {
		return nil, fmt.Errorf("%w: sizeUsd, collateralUsd and averagePrice are required", ErrMissingField)
	}
	return position, nil
}

// field binds a JSON path to the quantity it decodes into.
type field struct {
	path   string
	target **big.Int
}

func decodeFields(v gjson.Result, fields []field) error {
	for _, f := range fields {
		value, err := optionalBig(v, f.path)
		if err != nil {
			return err
		}
		*f.target = value
	}
	return nil
}

func optionalBig(v gjson.Result, path string) (*big.Int, error) {
	r := v.Get(path)
	if !r.Exists() || r.Type == gjson.Null {
		return nil, nil
	}
	raw := r.String()
	if r.Type == gjson.Number {
		raw = r.Raw
	}
	value, err := u256.ParseBig(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return value, nil
}

func requiredAddress(v gjson.Result, path string) (common.Address, error) {
	r := v.Get(path)
	if !r.Exists() {
		return common.Address{}, fmt.Errorf("%w: %s", ErrMissingField, path)
	}
	if !common.IsHexAddress(r.String()) {
		return common.Address{}, fmt.Errorf("%w: %s %q", ErrInvalidAddress, path, r.String())
	}
	return common.HexToAddress(r.String()), nil
}
