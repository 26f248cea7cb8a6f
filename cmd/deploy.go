package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/aidroute/deployer/pkg/config"
	"github.com/aidroute/deployer/pkg/deployer"
	"github.com/aidroute/deployer/pkg/ethereum"
	"github.com/aidroute/deployer/pkg/server"
	"github.com/aidroute/deployer/pkg/verify"
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploys the contract to the selected network.",
	Long: `Deploys the contract to the selected network, waits for the configured
number of confirmations, reads its initial state back and, on the verification
network with an Etherscan API key, submits its source for verification.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := initCommon()
		if err != nil {
			return err
		}

		defer s.flushMetrics()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		_, err = runDeploy(ctx, s, networkName, cmd.OutOrStdout())

		return err
	},
}

func init() {
	rootCmd.AddCommand(deployCmd)
}

func runDeploy(ctx context.Context, s *session, network string, out io.Writer) (*deployer.Record, error) {
	resolved, err := s.cfg.Resolve(s.env, network)
	if err != nil {
		return nil, err
	}

	if !resolved.HasSigner() {
		return nil, fmt.Errorf("%w for network %s", ethereum.ErrNoSigner, resolved.NetworkName)
	}

	if !ethcommon.IsHexAddress(resolved.AssetAddress) {
		return nil, fmt.Errorf("invalid asset address %q", resolved.AssetAddress)
	}

	artifact, err := ethereum.LoadArtifact(s.cfg.Contract.ArtifactPath)
	if err != nil {
		return nil, err
	}

	if artifact.ContractName != s.cfg.Contract.Name {
		return nil, fmt.Errorf("artifact %s holds %s, expected %s", s.cfg.Contract.ArtifactPath, artifact.ContractName, s.cfg.Contract.Name)
	}

	var current atomic.Pointer[deployer.Deployer]

	srv := server.New(log, s.cfg.Server, func() (string, bool) {
		d := current.Load()
		if d == nil {
			return string(deployer.StateInit), true
		}

		state := d.State()

		return string(state), state != deployer.StateFailed
	})

	if err := srv.Start(ctx); err != nil {
		return nil, err
	}

	defer func() {
		if err := srv.Stop(ctx); err != nil {
			log.WithError(err).Warn("Failed to stop server")
		}
	}()

	client, err := ethereum.Open(ctx, log, resolved, ethereum.ClientOptions{
		PollInterval: s.cfg.Deployment.PollInterval,
	})
	if err != nil {
		return nil, err
	}

	defer func() {
		if err := client.Close(); err != nil {
			log.WithError(err).Warn("Failed to close chain client")
		}
	}()

	asset := ethcommon.HexToAddress(resolved.AssetAddress)

	d, err := deployer.New(log, client, deployer.Options{
		Network:             resolved.NetworkName,
		Artifact:            artifact,
		AssetAddress:        asset,
		Confirmations:       s.cfg.Deployment.Confirmations,
		ConfirmationTimeout: s.cfg.Deployment.ConfirmationTimeout,
		Verifier:            newVerifier(s.cfg, resolved, client.ChainID().Uint64()),
		VerifyCommand: func(contract ethcommon.Address) string {
			return verifyCommand(resolved.NetworkName, contract, asset)
		},
		Summary: out,
	})
	if err != nil {
		return nil, err
	}

	current.Store(d)

	return d.Run(ctx)
}

// newVerifier returns nil unless the network is the verification network and
// an Etherscan API key is configured.
func newVerifier(cfg *config.Config, resolved *config.Resolved, chainID uint64) verify.Verifier {
	if !resolved.VerificationEnabled(cfg.Deployment.VerifyNetwork) {
		return nil
	}

	return verify.NewEtherscan(log, verify.EtherscanOptions{
		APIURL:       cfg.Etherscan.APIURL,
		APIKey:       resolved.EtherscanAPIKey,
		ChainID:      chainID,
		BuildInfoDir: cfg.Contract.BuildInfoDir,
		PollInterval: cfg.Etherscan.PollInterval,
		Timeout:      cfg.Etherscan.Timeout,
	})
}

func verifyCommand(network string, contract, asset ethcommon.Address) string {
	return fmt.Sprintf("%s verify --network %s %s %s", rootCmd.Name(), network, contract.Hex(), asset.Hex())
}
