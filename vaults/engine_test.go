package vaults_test

import (
	"context"
	"testing"
	"time"

	"code.pismoprotocol.io/pismo/broker"
	"code.pismoprotocol.io/pismo/logging"
	"code.pismoprotocol.io/pismo/types"
	"code.pismoprotocol.io/pismo/types/num"
	"code.pismoprotocol.io/pismo/vaults"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getTestEngine(t *testing.T) *vaults.Engine {
	t.Helper()
	log := logging.NewTestLogger()
	brk := broker.New(log, broker.NewDefaultConfig())
	// shared decimals 4
	return vaults.NewEngine(log, vaults.NewDefaultConfig(), brk, 4)
}

func btcToken() *types.TokenIdentifier {
	return &types.TokenIdentifier{
		TokenInfo:   "0xbtc::btc::BTC",
		PriceFeedID: "feed-btc",
		Decimals:    2,
		OracleKind:  types.OracleKindPyth,
	}
}

func TestInitVault(t *testing.T) {
	e := getTestEngine(t)
	ctx := context.Background()

	v, m, err := e.InitVault(ctx, btcToken())
	require.NoError(t, err)
	assert.True(t, v.Balance.IsZero())
	assert.True(t, v.LPSupply.IsZero())
	assert.Equal(t, "lp::0xbtc::btc::BTC", v.LPTokenInfo)
	assert.Equal(t, v.Address, m.VaultAddress)

	byToken, err := e.VaultForToken("0xbtc::btc::BTC")
	require.NoError(t, err)
	assert.Equal(t, v.Address, byToken.Address)

	_, _, err = e.InitVault(ctx, btcToken())
	require.ErrorIs(t, err, vaults.ErrVaultAlreadyExists)
}

func TestLiquidity(t *testing.T) {
	t.Run("First deposit mints shares one to one", testLiquidityFirstDeposit)
	t.Run("Later deposits mint proportional shares", testLiquidityProportional)
	t.Run("Withdrawal burns shares for the proportional slice", testLiquidityWithdraw)
	t.Run("Withdrawing more shares than held is rejected", testLiquidityOverWithdraw)
}

func testLiquidityFirstDeposit(t *testing.T) {
	e := getTestEngine(t)
	ctx := context.Background()
	v, _, err := e.InitVault(ctx, btcToken())
	require.NoError(t, err)

	shares, err := e.DepositLiquidity(ctx, v.Address, "0xlp", num.NewUint(1000))
	require.NoError(t, err)
	assert.True(t, shares.EQUint64(1000))
	assert.True(t, v.Balance.EQUint64(1000))
	assert.True(t, v.LPSupply.EQUint64(1000))
}

func testLiquidityProportional(t *testing.T) {
	e := getTestEngine(t)
	ctx := context.Background()
	v, _, err := e.InitVault(ctx, btcToken())
	require.NoError(t, err)
	_, err = e.DepositLiquidity(ctx, v.Address, "0xlp", num.NewUint(1000))
	require.NoError(t, err)

	// the vault earned 500 from settlements, shares now trade above par
	require.NoError(t, e.CreditBalance(v.Address, num.NewUint(500)))

	shares, err := e.DepositLiquidity(ctx, v.Address, "0xlp2", num.NewUint(300))
	require.NoError(t, err)
	// 300 * 1000 / 1500
	assert.True(t, shares.EQUint64(200))
	assert.True(t, v.LPSupply.EQUint64(1200))
}

func testLiquidityWithdraw(t *testing.T) {
	e := getTestEngine(t)
	ctx := context.Background()
	v, _, err := e.InitVault(ctx, btcToken())
	require.NoError(t, err)
	_, err = e.DepositLiquidity(ctx, v.Address, "0xlp", num.NewUint(1000))
	require.NoError(t, err)
	require.NoError(t, e.CreditBalance(v.Address, num.NewUint(500)))

	amount, err := e.WithdrawLiquidity(ctx, v.Address, "0xlp", num.NewUint(400))
	require.NoError(t, err)
	// 400 * 1500 / 1000
	assert.True(t, amount.EQUint64(600))
	assert.True(t, v.Balance.EQUint64(900))
	assert.True(t, v.LPSupply.EQUint64(600))
}

func testLiquidityOverWithdraw(t *testing.T) {
	e := getTestEngine(t)
	ctx := context.Background()
	v, _, err := e.InitVault(ctx, btcToken())
	require.NoError(t, err)
	_, err = e.DepositLiquidity(ctx, v.Address, "0xlp", num.NewUint(100))
	require.NoError(t, err)

	_, err = e.WithdrawLiquidity(ctx, v.Address, "0xlp", num.NewUint(101))
	require.ErrorIs(t, err, vaults.ErrInsufficientShares)
}

func TestVaultRefreshValue(t *testing.T) {
	e := getTestEngine(t)
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	v, m, err := e.InitVault(ctx, btcToken())
	require.NoError(t, err)
	_, err = e.DepositLiquidity(ctx, v.Address, "0xlp", num.NewUint(1000))
	require.NoError(t, err)

	// 10.00 BTC at $10, token decimals 2, shared decimals 4
	require.NoError(t, e.RefreshValue(m.ID, num.DecimalFromInt64(10), now))
	assert.True(t, m.Value.EQUint64(1_000_000))
	assert.True(t, m.FreshAt(now.Add(30*time.Second), e.MaxValueAge()))
	assert.False(t, m.FreshAt(now.Add(2*time.Minute), e.MaxValueAge()))
}

func TestDebitForSettlement(t *testing.T) {
	e := getTestEngine(t)
	ctx := context.Background()
	v, m, err := e.InitVault(ctx, btcToken())
	require.NoError(t, err)
	_, err = e.DepositLiquidity(ctx, v.Address, "0xlp", num.NewUint(100))
	require.NoError(t, err)

	taken, err := e.DebitForSettlement(v.Address, num.NewUint(250))
	require.NoError(t, err)
	assert.True(t, taken.EQUint64(100))
	assert.True(t, v.Balance.IsZero())
	assert.True(t, m.Balance.IsZero())
}

func TestBalanceMutationRescalesValue(t *testing.T) {
	e := getTestEngine(t)
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	v, m, err := e.InitVault(ctx, btcToken())
	require.NoError(t, err)
	_, err = e.DepositLiquidity(ctx, v.Address, "0xlp", num.NewUint(1000))
	require.NoError(t, err)
	require.NoError(t, e.RefreshValue(m.ID, num.DecimalFromInt64(10), now))
	require.True(t, m.Value.EQUint64(1_000_000))

	// the cached value follows the balance it priced
	_, err = e.DebitForSettlement(v.Address, num.NewUint(500))
	require.NoError(t, err)
	assert.True(t, m.Balance.EQUint64(500))
	assert.True(t, m.Value.EQUint64(500_000))

	require.NoError(t, e.CreditBalance(v.Address, num.NewUint(500)))
	assert.True(t, m.Value.EQUint64(1_000_000))

	// draining the vault zeroes the value with it
	_, err = e.DebitForSettlement(v.Address, num.NewUint(1000))
	require.NoError(t, err)
	assert.True(t, m.Value.IsZero())
}
