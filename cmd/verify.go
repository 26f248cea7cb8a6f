package cmd

import (
	"context"
	"errors"
	"fmt"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/aidroute/deployer/pkg/config"
	"github.com/aidroute/deployer/pkg/ethereum"
	"github.com/aidroute/deployer/pkg/verify"
)

// ErrNoAPIKey is returned by verify when no Etherscan API key is configured.
var ErrNoAPIKey = errors.New("no Etherscan API key configured")

var verifyCmd = &cobra.Command{
	Use:   "verify <address> [asset]",
	Short: "Verifies a deployed contract on Etherscan.",
	Long: `Submits the source of an already deployed contract to Etherscan. The asset
address is the constructor argument and defaults to the configured one.

An Etherscan API key is required. It is read from ETHERSCAN_API_KEY (process
environment or .env) or from etherscan.apiKey in the config file. There is no
built-in fallback key, so without one the command fails before contacting
Etherscan.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := initCommon()
		if err != nil {
			return err
		}

		defer s.flushMetrics()

		return runVerify(cmd.Context(), s, networkName, args)
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(ctx context.Context, s *session, network string, args []string) error {
	resolved, err := s.cfg.Resolve(s.env, network)
	if err != nil {
		return err
	}

	if resolved.EtherscanAPIKey == "" {
		return fmt.Errorf("%w: set %s or etherscan.apiKey", ErrNoAPIKey, s.cfg.Etherscan.APIKeyEnv)
	}

	if !ethcommon.IsHexAddress(args[0]) {
		return fmt.Errorf("invalid contract address %q", args[0])
	}

	asset := resolved.AssetAddress
	if len(args) > 1 {
		asset = args[1]
	}

	if !ethcommon.IsHexAddress(asset) {
		return fmt.Errorf("invalid asset address %q", asset)
	}

	artifact, err := ethereum.LoadArtifact(s.cfg.Contract.ArtifactPath)
	if err != nil {
		return err
	}

	constructorArgs, err := artifact.PackConstructor(ethcommon.HexToAddress(asset))
	if err != nil {
		return fmt.Errorf("failed to encode constructor arguments: %w", err)
	}

	chainID, err := chainIDOf(ctx, resolved)
	if err != nil {
		return err
	}

	verifier := verify.NewEtherscan(log, verify.EtherscanOptions{
		APIURL:       s.cfg.Etherscan.APIURL,
		APIKey:       resolved.EtherscanAPIKey,
		ChainID:      chainID,
		BuildInfoDir: s.cfg.Contract.BuildInfoDir,
		PollInterval: s.cfg.Etherscan.PollInterval,
		Timeout:      s.cfg.Etherscan.Timeout,
	})

	address := ethcommon.HexToAddress(args[0])

	err = verifier.Verify(ctx, verify.Request{
		Address:         address,
		SourceName:      artifact.SourceName,
		ContractName:    artifact.ContractName,
		ConstructorArgs: constructorArgs,
	})

	switch {
	case err == nil:
		log.WithField("address", address.Hex()).Info("Contract verified on Etherscan")
	case verify.IsAlreadyVerified(err):
		log.WithField("address", address.Hex()).Info("Contract already verified on Etherscan")
	default:
		return err
	}

	return nil
}

// chainIDOf returns the configured chain id, asking the node when none is configured.
func chainIDOf(ctx context.Context, resolved *config.Resolved) (uint64, error) {
	if resolved.ChainID != 0 {
		return resolved.ChainID, nil
	}

	if resolved.Type != config.NetworkTypeHTTP {
		return 0, fmt.Errorf("network %s has no chain id to verify against", resolved.NetworkName)
	}

	info, err := ethereum.ProbeEndpoint(ctx, resolved.RPCURL)
	if err != nil {
		return 0, err
	}

	return info.ChainID, nil
}
