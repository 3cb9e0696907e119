package oracles_test

import (
	"testing"
	"time"

	"code.pismoprotocol.io/pismo/config/encoding"
	"code.pismoprotocol.io/pismo/logging"
	"code.pismoprotocol.io/pismo/oracles"
	"code.pismoprotocol.io/pismo/types"
	"code.pismoprotocol.io/pismo/types/num"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getTestEngine(t *testing.T) *oracles.Engine {
	t.Helper()
	cfg := oracles.NewDefaultConfig()
	cfg.MaxPriceAge = encoding.Duration{Duration: 30 * time.Second}
	return oracles.NewEngine(logging.NewTestLogger(), cfg)
}

func pythToken() *types.TokenIdentifier {
	return &types.TokenIdentifier{
		TokenInfo:   "0x2::sui::SUI",
		PriceFeedID: "feed-sui",
		Decimals:    9,
		OracleKind:  types.OracleKindPyth,
	}
}

func TestPriceValidation(t *testing.T) {
	t.Run("Valid update returns price times ten to the expo", testPriceValue)
	t.Run("Stale publish time is rejected", testPriceStale)
	t.Run("Feed mismatch is rejected", testPriceFeedMismatch)
	t.Run("Non positive price is rejected", testPriceNonPositive)
	t.Run("Unknown oracle kind is rejected", testPriceUnknownKind)
}

func testPriceValue(t *testing.T) {
	e := getTestEngine(t)
	now := time.Now()
	p, err := e.Price(pythToken(), oracles.PriceData{
		FeedID:      "feed-sui",
		Price:       123456,
		Expo:        -4,
		PublishTime: now.Add(-time.Second),
	}, now)
	require.NoError(t, err)
	assert.Equal(t, "12.3456", p.String())
}

func testPriceStale(t *testing.T) {
	e := getTestEngine(t)
	now := time.Now()
	_, err := e.Price(pythToken(), oracles.PriceData{
		FeedID:      "feed-sui",
		Price:       10,
		PublishTime: now.Add(-31 * time.Second),
	}, now)
	assert.ErrorIs(t, err, oracles.ErrStalePrice)
}

func testPriceFeedMismatch(t *testing.T) {
	e := getTestEngine(t)
	now := time.Now()
	_, err := e.Price(pythToken(), oracles.PriceData{
		FeedID:      "feed-other",
		Price:       10,
		PublishTime: now,
	}, now)
	assert.ErrorIs(t, err, oracles.ErrFeedMismatch)
}

func testPriceNonPositive(t *testing.T) {
	e := getTestEngine(t)
	now := time.Now()
	_, err := e.Price(pythToken(), oracles.PriceData{
		FeedID:      "feed-sui",
		Price:       0,
		PublishTime: now,
	}, now)
	assert.ErrorIs(t, err, oracles.ErrNonPositivePrice)
}

func testPriceUnknownKind(t *testing.T) {
	e := getTestEngine(t)
	now := time.Now()
	tok := pythToken()
	tok.OracleKind = types.OracleKindUnspecified
	_, err := e.Price(tok, oracles.PriceData{
		FeedID:      "feed-sui",
		Price:       10,
		PublishTime: now,
	}, now)
	assert.ErrorIs(t, err, oracles.ErrUnknownOracleKind)
}

func TestTokenValue(t *testing.T) {
	// 1000 USDC with 6 decimals at $1, program shared decimals 10
	amount := num.NewUint(1_000_000_000)
	v, err := oracles.TokenValue(amount, num.DecimalFromInt64(1), 6, 10)
	require.NoError(t, err)
	assert.Equal(t, "10000000000000", v.String())

	// 100 units with 0 decimals at $10 and shared decimals 0
	v, err = oracles.TokenValue(num.NewUint(100), num.DecimalFromInt64(10), 0, 0)
	require.NoError(t, err)
	assert.True(t, v.EQUint64(1000))
}
