package ethereum_test

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidroute/deployer/internal/testutil"
	"github.com/aidroute/deployer/pkg/config"
	"github.com/aidroute/deployer/pkg/ethereum"
)

var asset = common.HexToAddress("0xCaC524BcA292aaade2DF8A05cC58F0a65B1B3bB9")

func TestSimulatedDeployAndRead(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := testutil.NewSimulatedClient(t, 20*time.Millisecond)

	assert.Equal(t, config.SimulatedChainID, client.ChainID().Uint64())
	assert.Equal(t, "hardhat", client.Network())

	balance, err := client.BalanceAt(ctx, client.Address())
	require.NoError(t, err)
	assert.Equal(t, 1, balance.Cmp(big.NewInt(0)))

	contract, err := client.DeployContract(ctx, testutil.StubArtifact(t), asset)
	require.NoError(t, err)
	require.NotNil(t, contract.DeployTx)
	assert.NotEqual(t, common.Address{}, contract.Address)

	receipt, err := client.WaitForReceipt(ctx, contract.DeployTx.Hash(), 3)
	require.NoError(t, err)

	assert.Equal(t, contract.DeployTx.Hash(), receipt.TxHash)
	assert.Positive(t, receipt.GasUsed)
	assert.GreaterOrEqual(t, receipt.ConfirmedAt, receipt.BlockNumber+2)

	stats, err := client.Read(ctx, contract, "getStats")
	require.NoError(t, err)
	require.Len(t, stats, 5)
	assert.Equal(t, "42", stats[0].(*big.Int).String())
	assert.Equal(t, "0", stats[4].(*big.Int).String())

	owner, err := client.Read(ctx, contract, "owner")
	require.NoError(t, err)
	require.Len(t, owner, 1)
	assert.Equal(t, common.BigToAddress(big.NewInt(42)), owner[0])
}

func TestReadUnknownMethod(t *testing.T) {
	ctx := context.Background()

	client := testutil.NewSimulatedClient(t, 20*time.Millisecond)

	contract, err := client.DeployContract(ctx, testutil.StubArtifact(t), asset)
	require.NoError(t, err)

	_, err = client.Read(ctx, contract, "totalMissions")
	assert.Error(t, err)
}

func TestWaitForReceiptSingleConfirmation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := testutil.NewSimulatedClient(t, 20*time.Millisecond)

	contract, err := client.DeployContract(ctx, testutil.StubArtifact(t), asset)
	require.NoError(t, err)

	receipt, err := client.WaitForReceipt(ctx, contract.DeployTx.Hash(), 0)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, receipt.ConfirmedAt, receipt.BlockNumber)
}

func TestWaitForReceiptHonoursContext(t *testing.T) {
	// No block production: the transaction stays pending.
	client := testutil.NewSimulatedClient(t, 0)

	contract, err := client.DeployContract(context.Background(), testutil.StubArtifact(t), asset)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err = client.WaitForReceipt(ctx, contract.DeployTx.Hash(), 3)

	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestOpenChainIDMismatch(t *testing.T) {
	resolved := testutil.SimulatedNetwork(0)
	resolved.ChainID = config.SepoliaChainID

	_, err := ethereum.Open(context.Background(), logrus.New(), resolved, ethereum.ClientOptions{})

	require.ErrorIs(t, err, ethereum.ErrChainIDMismatch)
}

func TestOpenWithoutSigner(t *testing.T) {
	resolved := testutil.SimulatedNetwork(0)
	resolved.PrivateKey = ""

	_, err := ethereum.Open(context.Background(), logrus.New(), resolved, ethereum.ClientOptions{})

	require.ErrorIs(t, err, ethereum.ErrNoSigner)
}

func TestOpenUnsupportedType(t *testing.T) {
	resolved := testutil.SimulatedNetwork(0)
	resolved.Type = "ipc"

	_, err := ethereum.Open(context.Background(), logrus.New(), resolved, ethereum.ClientOptions{})

	require.ErrorIs(t, err, ethereum.ErrUnsupportedNetworkType)
}

func TestParsePrivateKey(t *testing.T) {
	key, err := ethereum.ParsePrivateKey("0x" + config.DevPrivateKey)
	require.NoError(t, err)
	assert.NotNil(t, key)

	_, err = ethereum.ParsePrivateKey("  ")
	require.ErrorIs(t, err, ethereum.ErrNoSigner)

	_, err = ethereum.ParsePrivateKey("zz")
	assert.Error(t, err)
}
