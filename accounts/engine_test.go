package accounts_test

import (
	"context"
	"testing"

	"code.pismoprotocol.io/pismo/accounts"
	"code.pismoprotocol.io/pismo/broker"
	"code.pismoprotocol.io/pismo/logging"
	"code.pismoprotocol.io/pismo/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getTestEngine(t *testing.T) *accounts.Engine {
	t.Helper()
	log := logging.NewTestLogger()
	brk := broker.New(log, broker.NewDefaultConfig())
	return accounts.NewEngine(log, accounts.NewDefaultConfig(), brk)
}

func testProgram() *types.Program {
	return &types.Program{ID: "prog-1", SharedDecimals: 9}
}

func TestCreateAccount(t *testing.T) {
	e := getTestEngine(t)
	acc, err := e.CreateAccount(context.Background(), "0xowner", testProgram())
	require.NoError(t, err)

	got, err := e.Account(acc.ID)
	require.NoError(t, err)
	assert.Equal(t, "0xowner", got.Owner)
	assert.Equal(t, "prog-1", got.ProgramID)

	st, err := e.Stats(acc.ID)
	require.NoError(t, err)
	assert.Equal(t, acc.StatsID, st.ID)
	assert.Equal(t, uint64(0), st.CollateralCount)
	assert.Equal(t, uint64(0), st.NumOpenPositions)

	_, err = e.Account("missing")
	require.ErrorIs(t, err, accounts.ErrAccountNotFound)
}

func TestCounters(t *testing.T) {
	t.Run("Counters follow the inc and dec operations", testCounterRoundTrip)
	t.Run("Decrementing a zero counter underflows", testCounterUnderflow)
	t.Run("Stats copies do not leak internal state", testStatsIsolated)
	t.Run("ZeroStats clears both counters", testZeroStats)
}

func testCounterRoundTrip(t *testing.T) {
	e := getTestEngine(t)
	acc, err := e.CreateAccount(context.Background(), "0xowner", testProgram())
	require.NoError(t, err)

	require.NoError(t, e.IncCollateralCount(acc.ID))
	require.NoError(t, e.IncCollateralCount(acc.ID))
	require.NoError(t, e.IncOpenPositions(acc.ID))
	require.NoError(t, e.DecCollateralCount(acc.ID))

	st, err := e.Stats(acc.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), st.CollateralCount)
	assert.Equal(t, uint64(1), st.NumOpenPositions)
}

func testCounterUnderflow(t *testing.T) {
	e := getTestEngine(t)
	acc, err := e.CreateAccount(context.Background(), "0xowner", testProgram())
	require.NoError(t, err)

	require.ErrorIs(t, e.DecCollateralCount(acc.ID), accounts.ErrCounterUnderflow)
	require.ErrorIs(t, e.DecOpenPositions(acc.ID), accounts.ErrCounterUnderflow)
}

func testStatsIsolated(t *testing.T) {
	e := getTestEngine(t)
	acc, err := e.CreateAccount(context.Background(), "0xowner", testProgram())
	require.NoError(t, err)

	st, err := e.Stats(acc.ID)
	require.NoError(t, err)
	st.CollateralCount = 42

	fresh, err := e.Stats(acc.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), fresh.CollateralCount)
}

func testZeroStats(t *testing.T) {
	e := getTestEngine(t)
	acc, err := e.CreateAccount(context.Background(), "0xowner", testProgram())
	require.NoError(t, err)
	require.NoError(t, e.IncCollateralCount(acc.ID))
	require.NoError(t, e.IncOpenPositions(acc.ID))

	require.NoError(t, e.ZeroStats(acc.ID))
	st, err := e.Stats(acc.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), st.CollateralCount)
	assert.Equal(t, uint64(0), st.NumOpenPositions)
}
