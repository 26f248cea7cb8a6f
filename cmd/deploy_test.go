package cmd

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidroute/deployer/internal/testutil"
	"github.com/aidroute/deployer/pkg/config"
	"github.com/aidroute/deployer/pkg/deployer"
	"github.com/aidroute/deployer/pkg/ethereum"
)

func testSession(t *testing.T, env map[string]string) *session {
	t.Helper()

	cfg := config.Default()
	cfg.Contract.ArtifactPath = testutil.WriteStubArtifact(t, t.TempDir())
	cfg.Networks["hardhat"].BlockTime = 20 * time.Millisecond
	cfg.Deployment.PollInterval = 10 * time.Millisecond
	cfg.Deployment.ConfirmationTimeout = 20 * time.Second

	return &session{cfg: cfg, env: config.MapEnv(env)}
}

func TestRunDeploySimulated(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	out := &bytes.Buffer{}

	record, err := runDeploy(ctx, testSession(t, nil), "hardhat", out)
	require.NoError(t, err)

	assert.Equal(t, deployer.StateDone, record.State)
	assert.Equal(t, deployer.VerificationSkipped, record.Verification)
	assert.Equal(t, ethcommon.HexToAddress("0xCaC524BcA292aaade2DF8A05cC58F0a65B1B3bB9"), record.AssetAddress)
	assert.Contains(t, out.String(), record.ContractAddress.Hex())
	assert.Contains(t, out.String(), record.TxHash.Hex())
}

func TestRunDeployAssetFromEnv(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	asset := "0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238"

	record, err := runDeploy(ctx, testSession(t, map[string]string{"PYUSD_ADDRESS": asset}), "hardhat", &bytes.Buffer{})
	require.NoError(t, err)

	assert.Equal(t, ethcommon.HexToAddress(asset), record.AssetAddress)
}

func TestRunDeployServerBindFailure(t *testing.T) {
	var calls atomic.Int32

	node := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "unexpected call", http.StatusInternalServerError)
	}))
	t.Cleanup(node.Close)

	s := testSession(t, nil)
	s.cfg.Networks["node"] = &config.NetworkConfig{
		Type:        config.NetworkTypeHTTP,
		URL:         node.URL,
		DevAccounts: true,
	}
	s.cfg.Server.HealthCheckAddr = "256.0.0.1:0"

	_, err := runDeploy(context.Background(), s, "node", &bytes.Buffer{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to listen on healthcheck address")
	assert.Equal(t, int32(0), calls.Load())
}

func TestRunDeploySimulatedNetworkFromFile(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dir := t.TempDir()
	file := filepath.Join(dir, "deployer.yaml")

	require.NoError(t, os.WriteFile(file, []byte(`
deployment:
  pollInterval: 10ms
  confirmationTimeout: 20s
networks:
  dev:
    type: simulated
    chainId: 1337
    devAccounts: true
`), 0o600))

	cfg, err := config.Load(file)
	require.NoError(t, err)

	cfg.Contract.ArtifactPath = testutil.WriteStubArtifact(t, dir)

	record, err := runDeploy(ctx, &session{cfg: cfg, env: config.MapEnv(nil)}, "dev", &bytes.Buffer{})
	require.NoError(t, err)

	assert.Equal(t, deployer.StateDone, record.State)
	assert.GreaterOrEqual(t, record.ConfirmedAt, record.BlockNumber+2)
}

func TestRunDeployWithServer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s := testSession(t, nil)
	s.cfg.Server.MetricsAddr = "127.0.0.1:0"
	s.cfg.Server.HealthCheckAddr = "127.0.0.1:0"

	record, err := runDeploy(ctx, s, "hardhat", &bytes.Buffer{})
	require.NoError(t, err)

	assert.Equal(t, deployer.StateDone, record.State)
}

func TestRunDeployWithoutSigner(t *testing.T) {
	_, err := runDeploy(context.Background(), testSession(t, nil), "sepolia", &bytes.Buffer{})

	require.ErrorIs(t, err, ethereum.ErrNoSigner)
}

func TestRunDeployInvalidAsset(t *testing.T) {
	_, err := runDeploy(context.Background(), testSession(t, map[string]string{"PYUSD_ADDRESS": "pyusd"}), "hardhat", &bytes.Buffer{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid asset address")
}

func TestRunDeployUnexpectedArtifact(t *testing.T) {
	s := testSession(t, nil)
	s.cfg.Contract.Name = "Lock"

	_, err := runDeploy(context.Background(), s, "hardhat", &bytes.Buffer{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "holds AidRouteMissions, expected Lock")
}

func TestRunDeployUnknownNetwork(t *testing.T) {
	_, err := runDeploy(context.Background(), testSession(t, nil), "mainnet", &bytes.Buffer{})

	require.ErrorIs(t, err, config.ErrUnknownNetwork)
}

func TestNewVerifier(t *testing.T) {
	cfg := config.Default()

	tests := []struct {
		name     string
		network  string
		env      map[string]string
		expected bool
	}{
		{
			name:    "local network with key",
			network: "hardhat",
			env:     map[string]string{"ETHERSCAN_API_KEY": "key"},
		},
		{
			name:    "verification network without key",
			network: "sepolia",
		},
		{
			name:     "verification network with key",
			network:  "sepolia",
			env:      map[string]string{"ETHERSCAN_API_KEY": "key"},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolved, err := cfg.Resolve(config.MapEnv(tt.env), tt.network)
			require.NoError(t, err)

			v := newVerifier(cfg, resolved, resolved.ChainID)

			if tt.expected {
				assert.NotNil(t, v)
			} else {
				assert.Nil(t, v)
			}
		})
	}
}

func TestVerifyCommand(t *testing.T) {
	cmd := verifyCommand("sepolia",
		ethcommon.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"),
		ethcommon.HexToAddress("0xCaC524BcA292aaade2DF8A05cC58F0a65B1B3bB9"))

	assert.Equal(t,
		"aidroute-deployer verify --network sepolia 0x5FbDB2315678afecb367f032d93F642f64180aa3 0xCaC524BcA292aaade2DF8A05cC58F0a65B1B3bB9",
		cmd)
}

func TestRunVerifyWithoutAPIKey(t *testing.T) {
	err := runVerify(context.Background(), testSession(t, nil), "sepolia", []string{"0x5FbDB2315678afecb367f032d93F642f64180aa3"})

	require.ErrorIs(t, err, ErrNoAPIKey)
	assert.Contains(t, err.Error(), "set ETHERSCAN_API_KEY or etherscan.apiKey")
}

func TestVerifyHelpDocumentsAPIKey(t *testing.T) {
	assert.Contains(t, verifyCmd.Long, "ETHERSCAN_API_KEY")
	assert.Contains(t, verifyCmd.Long, "built-in fallback key")
}

func TestRunVerifyInvalidAddress(t *testing.T) {
	s := testSession(t, map[string]string{"ETHERSCAN_API_KEY": "key"})

	err := runVerify(context.Background(), s, "sepolia", []string{"0x1234"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid contract address")
}
