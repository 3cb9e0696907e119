package collateral_test

import (
	"context"
	"testing"
	"time"

	"code.pismoprotocol.io/pismo/accounts"
	"code.pismoprotocol.io/pismo/broker"
	"code.pismoprotocol.io/pismo/collateral"
	"code.pismoprotocol.io/pismo/logging"
	"code.pismoprotocol.io/pismo/programs"
	"code.pismoprotocol.io/pismo/types"
	"code.pismoprotocol.io/pismo/types/num"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const usdcInfo = "0xusdc::usdc::USDC"

type testEngine struct {
	*collateral.Engine
	accounts *accounts.Engine
	programs *programs.Engine
	adminCap *programs.AdminCap
	program  *types.Program
	account  *types.Account
	ctx      context.Context
	now      time.Time
}

func getTestEngine(t *testing.T) *testEngine {
	t.Helper()
	log := logging.NewTestLogger()
	brk := broker.New(log, broker.NewDefaultConfig())
	ctx := context.Background()

	progEng, adminCap := programs.NewEngine(log, programs.NewDefaultConfig(), brk)
	require.NoError(t, progEng.RegisterToken(ctx, adminCap, &types.TokenIdentifier{
		TokenInfo:   usdcInfo,
		PriceFeedID: "feed-usdc",
		Decimals:    2,
		OracleKind:  types.OracleKindPyth,
	}))
	program, err := progEng.CreateProgram(ctx, adminCap, 4)
	require.NoError(t, err)
	require.NoError(t, progEng.AddSupportedCollateral(ctx, adminCap, program.ID, usdcInfo))

	accEng := accounts.NewEngine(log, accounts.NewDefaultConfig(), brk)
	acc, err := accEng.CreateAccount(ctx, "0xowner", program)
	require.NoError(t, err)

	eng := collateral.NewEngine(log, collateral.NewDefaultConfig(), brk, accEng, progEng)
	return &testEngine{
		Engine:   eng,
		accounts: accEng,
		programs: progEng,
		adminCap: adminCap,
		program:  program,
		account:  acc,
		ctx:      ctx,
		now:      time.Unix(1_700_000_000, 0),
	}
}

func (te *testEngine) collateralCount(t *testing.T) uint64 {
	t.Helper()
	st, err := te.accounts.Stats(te.account.ID)
	require.NoError(t, err)
	return st.CollateralCount
}

func TestDeposit(t *testing.T) {
	t.Run("Each deposit mints a fresh pair and counts it", testDepositMintsPair)
	t.Run("Depositing an unsupported token is rejected", testDepositUnsupported)
	t.Run("Depositing a deprecated token is rejected", testDepositDeprecated)
	t.Run("Zero deposits are rejected", testDepositZero)
}

func testDepositMintsPair(t *testing.T) {
	te := getTestEngine(t)
	c1, m1, err := te.Deposit(te.ctx, te.account.ID, usdcInfo, num.NewUint(1000))
	require.NoError(t, err)
	c2, _, err := te.Deposit(te.ctx, te.account.ID, usdcInfo, num.NewUint(500))
	require.NoError(t, err)

	assert.NotEqual(t, c1.ID, c2.ID)
	assert.Equal(t, uint64(2), te.collateralCount(t))
	assert.True(t, m1.RemainingAmount.EQUint64(1000))

	got, err := te.MarkerForCollateral(c1.ID)
	require.NoError(t, err)
	assert.Equal(t, m1.ID, got.ID)
}

func testDepositUnsupported(t *testing.T) {
	te := getTestEngine(t)
	_, _, err := te.Deposit(te.ctx, te.account.ID, "0xeth::eth::ETH", num.NewUint(10))
	require.ErrorIs(t, err, collateral.ErrTokenNotSupported)
}

func testDepositDeprecated(t *testing.T) {
	te := getTestEngine(t)
	require.NoError(t, te.programs.DeprecateToken(te.ctx, te.adminCap, usdcInfo))
	_, _, err := te.Deposit(te.ctx, te.account.ID, usdcInfo, num.NewUint(10))
	require.ErrorIs(t, err, collateral.ErrTokenDeprecated)
}

func testDepositZero(t *testing.T) {
	te := getTestEngine(t)
	_, _, err := te.Deposit(te.ctx, te.account.ID, usdcInfo, num.UintZero())
	require.ErrorIs(t, err, collateral.ErrZeroAmount)
}

func TestWithdraw(t *testing.T) {
	t.Run("Partial withdrawal leaves the pair alive", testWithdrawPartial)
	t.Run("Partial withdrawal rescales the marker value", testWithdrawRescalesValue)
	t.Run("Withdrawing the full balance destroys the pair", testWithdrawAll)
	t.Run("Overdraft is rejected", testWithdrawOverdraft)
	t.Run("Deprecated token balances can still be withdrawn", testWithdrawDeprecated)
}

func testWithdrawPartial(t *testing.T) {
	te := getTestEngine(t)
	c, m, err := te.Deposit(te.ctx, te.account.ID, usdcInfo, num.NewUint(1000))
	require.NoError(t, err)

	require.NoError(t, te.Withdraw(te.ctx, c.ID, num.NewUint(400)))
	assert.True(t, c.Amount.EQUint64(600))
	assert.True(t, m.RemainingAmount.EQUint64(600))
	assert.Equal(t, uint64(1), te.collateralCount(t))
}

func testWithdrawRescalesValue(t *testing.T) {
	te := getTestEngine(t)
	// 10.00 USDC at $1 is 100_000 in shared decimals 4
	c, m, err := te.Deposit(te.ctx, te.account.ID, usdcInfo, num.NewUint(1000))
	require.NoError(t, err)
	require.NoError(t, te.RefreshValue(m.ID, num.DecimalFromInt64(1), te.now))
	require.True(t, m.Value.EQUint64(100_000))

	require.NoError(t, te.Withdraw(te.ctx, c.ID, num.NewUint(900)))
	assert.True(t, m.RemainingAmount.EQUint64(100))
	assert.True(t, m.Value.EQUint64(10_000))
}

func testWithdrawAll(t *testing.T) {
	te := getTestEngine(t)
	c, _, err := te.Deposit(te.ctx, te.account.ID, usdcInfo, num.NewUint(1000))
	require.NoError(t, err)

	require.NoError(t, te.Withdraw(te.ctx, c.ID, num.NewUint(1000)))
	_, err = te.Collateral(c.ID)
	require.ErrorIs(t, err, collateral.ErrCollateralNotFound)
	assert.Equal(t, uint64(0), te.collateralCount(t))
}

func testWithdrawOverdraft(t *testing.T) {
	te := getTestEngine(t)
	c, _, err := te.Deposit(te.ctx, te.account.ID, usdcInfo, num.NewUint(100))
	require.NoError(t, err)

	require.ErrorIs(t, te.Withdraw(te.ctx, c.ID, num.NewUint(101)), collateral.ErrInsufficientBalance)
	assert.True(t, c.Amount.EQUint64(100))
}

func testWithdrawDeprecated(t *testing.T) {
	te := getTestEngine(t)
	c, _, err := te.Deposit(te.ctx, te.account.ID, usdcInfo, num.NewUint(100))
	require.NoError(t, err)
	require.NoError(t, te.programs.DeprecateToken(te.ctx, te.adminCap, usdcInfo))

	require.NoError(t, te.Withdraw(te.ctx, c.ID, num.NewUint(100)))
}

func TestCombine(t *testing.T) {
	te := getTestEngine(t)
	c1, _, err := te.Deposit(te.ctx, te.account.ID, usdcInfo, num.NewUint(300))
	require.NoError(t, err)
	c2, _, err := te.Deposit(te.ctx, te.account.ID, usdcInfo, num.NewUint(700))
	require.NoError(t, err)
	require.Equal(t, uint64(2), te.collateralCount(t))

	combined, err := te.Combine(te.ctx, c1.ID, c2.ID)
	require.NoError(t, err)
	assert.True(t, combined.Amount.EQUint64(1000))
	assert.Equal(t, uint64(1), te.collateralCount(t))

	_, err = te.Collateral(c1.ID)
	require.ErrorIs(t, err, collateral.ErrCollateralNotFound)
	_, err = te.Collateral(c2.ID)
	require.ErrorIs(t, err, collateral.ErrCollateralNotFound)
}

func TestRefreshValue(t *testing.T) {
	te := getTestEngine(t)
	// 10.00 USDC at $1, token decimals 2, shared decimals 4
	_, m, err := te.Deposit(te.ctx, te.account.ID, usdcInfo, num.NewUint(1000))
	require.NoError(t, err)

	require.NoError(t, te.RefreshValue(m.ID, num.DecimalFromInt64(1), te.now))
	assert.True(t, m.Value.EQUint64(100_000))
	assert.True(t, m.FreshAt(te.now.Add(30*time.Second), te.MaxValueAge()))
	assert.False(t, m.FreshAt(te.now.Add(2*time.Minute), te.MaxValueAge()))
}

func TestTakeForSettlement(t *testing.T) {
	t.Run("Takes at most the remaining balance", testTakeClamped)
	t.Run("Draining the balance destroys the pair", testTakeDrains)
	t.Run("Partial take rescales the marker value", testTakeRescalesValue)
}

func testTakeClamped(t *testing.T) {
	te := getTestEngine(t)
	c, _, err := te.Deposit(te.ctx, te.account.ID, usdcInfo, num.NewUint(100))
	require.NoError(t, err)

	taken, err := te.TakeForSettlement(c.ID, num.NewUint(250))
	require.NoError(t, err)
	assert.True(t, taken.EQUint64(100))
}

func testTakeDrains(t *testing.T) {
	te := getTestEngine(t)
	c, _, err := te.Deposit(te.ctx, te.account.ID, usdcInfo, num.NewUint(100))
	require.NoError(t, err)

	_, err = te.TakeForSettlement(c.ID, num.NewUint(100))
	require.NoError(t, err)
	_, err = te.Collateral(c.ID)
	require.ErrorIs(t, err, collateral.ErrCollateralNotFound)
	assert.Equal(t, uint64(0), te.collateralCount(t))
}

func testTakeRescalesValue(t *testing.T) {
	te := getTestEngine(t)
	c, m, err := te.Deposit(te.ctx, te.account.ID, usdcInfo, num.NewUint(1000))
	require.NoError(t, err)
	require.NoError(t, te.RefreshValue(m.ID, num.DecimalFromInt64(1), te.now))

	taken, err := te.TakeForSettlement(c.ID, num.NewUint(500))
	require.NoError(t, err)
	assert.True(t, taken.EQUint64(500))
	assert.True(t, m.Value.EQUint64(50_000))
}

func TestCollateralValueAssertion(t *testing.T) {
	t.Run("Complete run over every marker passes", testCVAComplete)
	t.Run("Skipping a marker fails completion", testCVAIncomplete)
	t.Run("Double counting a marker is rejected", testCVADuplicate)
	t.Run("A foreign marker is rejected", testCVAOwnerMismatch)
	t.Run("Depositing mid-assertion fails completion", testCVAStatsChanged)
	t.Run("Withdrawing mid-assertion fails completion", testCVAMarkerValueChanged)
}

func testCVAComplete(t *testing.T) {
	te := getTestEngine(t)
	_, m1, err := te.Deposit(te.ctx, te.account.ID, usdcInfo, num.NewUint(1000))
	require.NoError(t, err)
	_, m2, err := te.Deposit(te.ctx, te.account.ID, usdcInfo, num.NewUint(500))
	require.NoError(t, err)

	a, err := te.StartValueAssertion(te.ctx, te.account.ID)
	require.NoError(t, err)
	require.NoError(t, te.AccumulateValue(a, m1.ID, num.DecimalFromInt64(1), te.now))
	require.NoError(t, te.AccumulateValue(a, m2.ID, num.DecimalFromInt64(1), te.now))

	total, err := te.CompleteValueAssertion(a, te.account.ID)
	require.NoError(t, err)
	// 15.00 USDC at $1 in shared decimals 4
	assert.True(t, total.EQUint64(150_000))
}

func testCVAIncomplete(t *testing.T) {
	te := getTestEngine(t)
	_, m1, err := te.Deposit(te.ctx, te.account.ID, usdcInfo, num.NewUint(1000))
	require.NoError(t, err)
	_, _, err = te.Deposit(te.ctx, te.account.ID, usdcInfo, num.NewUint(500))
	require.NoError(t, err)

	a, err := te.StartValueAssertion(te.ctx, te.account.ID)
	require.NoError(t, err)
	require.NoError(t, te.AccumulateValue(a, m1.ID, num.DecimalFromInt64(1), te.now))

	_, err = te.CompleteValueAssertion(a, te.account.ID)
	require.ErrorIs(t, err, collateral.ErrAssertionIncomplete)
}

func testCVADuplicate(t *testing.T) {
	te := getTestEngine(t)
	_, m1, err := te.Deposit(te.ctx, te.account.ID, usdcInfo, num.NewUint(1000))
	require.NoError(t, err)

	a, err := te.StartValueAssertion(te.ctx, te.account.ID)
	require.NoError(t, err)
	require.NoError(t, te.AccumulateValue(a, m1.ID, num.DecimalFromInt64(1), te.now))
	err = te.AccumulateValue(a, m1.ID, num.DecimalFromInt64(1), te.now)
	require.ErrorIs(t, err, collateral.ErrAlreadyAccumulated)
}

func testCVAOwnerMismatch(t *testing.T) {
	te := getTestEngine(t)
	other, err := te.accounts.CreateAccount(te.ctx, "0xother", te.program)
	require.NoError(t, err)
	_, m, err := te.Deposit(te.ctx, other.ID, usdcInfo, num.NewUint(100))
	require.NoError(t, err)

	a, err := te.StartValueAssertion(te.ctx, te.account.ID)
	require.NoError(t, err)
	err = te.AccumulateValue(a, m.ID, num.DecimalFromInt64(1), te.now)
	require.ErrorIs(t, err, collateral.ErrOwnerMismatch)
}

func testCVAStatsChanged(t *testing.T) {
	te := getTestEngine(t)
	_, m1, err := te.Deposit(te.ctx, te.account.ID, usdcInfo, num.NewUint(1000))
	require.NoError(t, err)

	a, err := te.StartValueAssertion(te.ctx, te.account.ID)
	require.NoError(t, err)
	require.NoError(t, te.AccumulateValue(a, m1.ID, num.DecimalFromInt64(1), te.now))

	_, _, err = te.Deposit(te.ctx, te.account.ID, usdcInfo, num.NewUint(500))
	require.NoError(t, err)

	_, err = te.CompleteValueAssertion(a, te.account.ID)
	require.ErrorIs(t, err, collateral.ErrAccountStatsChanged)
}

func testCVAMarkerValueChanged(t *testing.T) {
	te := getTestEngine(t)
	// 10.00 USDC accumulated at $1, then 9.00 withdrawn before completion:
	// the count is unchanged but the accumulated total no longer describes
	// the account, so completion must fail
	c, _, err := te.Deposit(te.ctx, te.account.ID, usdcInfo, num.NewUint(1000))
	require.NoError(t, err)
	m, err := te.MarkerForCollateral(c.ID)
	require.NoError(t, err)

	a, err := te.StartValueAssertion(te.ctx, te.account.ID)
	require.NoError(t, err)
	require.NoError(t, te.AccumulateValue(a, m.ID, num.DecimalFromInt64(1), te.now))
	require.True(t, a.Total().EQUint64(100_000))

	require.NoError(t, te.Withdraw(te.ctx, c.ID, num.NewUint(900)))

	_, err = te.CompleteValueAssertion(a, te.account.ID)
	require.ErrorIs(t, err, collateral.ErrMarkerValueChanged)
}
