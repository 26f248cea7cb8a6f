// Package testutil provides test helper utilities for unit and integration tests.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aidroute/deployer/pkg/config"
	"github.com/aidroute/deployer/pkg/ethereum"
)

// MissionsABI mirrors the AidRouteMissions surface the deployer touches.
const MissionsABI = `[
	{"type":"constructor","stateMutability":"nonpayable","inputs":[{"name":"_pyusd","type":"address"}]},
	{"type":"function","name":"getStats","stateMutability":"view","inputs":[],"outputs":[
		{"name":"","type":"uint256"},
		{"name":"","type":"uint256"},
		{"name":"","type":"uint256"},
		{"name":"","type":"uint256"},
		{"name":"","type":"uint256"}
	]},
	{"type":"function","name":"owner","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]}
]`

// StubBytecode deploys a contract that answers every call with 160 bytes whose
// first word is 42. getStats therefore reads (42, 0, 0, 0, 0) and owner reads
// address 0x...2a. Constructor arguments appended to it are ignored.
//
//	init:    PUSH1 0x0a PUSH1 0x0c PUSH1 0x00 CODECOPY PUSH1 0x0a PUSH1 0x00 RETURN
//	runtime: PUSH1 0x2a PUSH1 0x00 MSTORE PUSH1 0xa0 PUSH1 0x00 RETURN
const StubBytecode = "0x600a600c600039600a6000f3602a60005260a06000f3"

// StubArtifactJSON is a build artifact for the stub contract.
func StubArtifactJSON() []byte {
	return []byte(`{
	"_format": "hh-sol-artifact-1",
	"contractName": "AidRouteMissions",
	"sourceName": "contracts/AidRouteMissions.sol",
	"abi": ` + MissionsABI + `,
	"bytecode": "` + StubBytecode + `",
	"deployedBytecode": "0x602a60005260a06000f3",
	"linkReferences": {},
	"deployedLinkReferences": {}
}`)
}

// WriteStubArtifact writes the stub artifact under dir and returns its path.
func WriteStubArtifact(t *testing.T, dir string) string {
	t.Helper()

	path := filepath.Join(dir, "AidRouteMissions.json")

	if err := os.WriteFile(path, StubArtifactJSON(), 0o600); err != nil {
		t.Fatalf("failed to write artifact: %v", err)
	}

	return path
}

// StubArtifact returns the parsed stub artifact.
func StubArtifact(t *testing.T) *ethereum.Artifact {
	t.Helper()

	artifact, err := ethereum.ParseArtifact(StubArtifactJSON())
	if err != nil {
		t.Fatalf("failed to parse stub artifact: %v", err)
	}

	return artifact
}

// SimulatedNetwork returns a resolved simulated network funded for the
// development account. A zero blockTime leaves block production to the caller.
func SimulatedNetwork(blockTime time.Duration) *config.Resolved {
	return &config.Resolved{
		NetworkName:  "hardhat",
		Type:         config.NetworkTypeSimulated,
		ChainID:      config.SimulatedChainID,
		PrivateKey:   config.DevPrivateKey,
		AssetAddress: "0xCaC524BcA292aaade2DF8A05cC58F0a65B1B3bB9",
		BlockTime:    blockTime,
	}
}

// NewSimulatedClient opens a chain client on a fresh in-process chain.
// The chain is shut down when the test completes.
func NewSimulatedClient(t *testing.T, blockTime time.Duration) *ethereum.Client {
	t.Helper()

	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)

	client, err := ethereum.Open(context.Background(), log, SimulatedNetwork(blockTime), ethereum.ClientOptions{
		PollInterval: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("failed to open simulated chain: %v", err)
	}

	t.Cleanup(func() {
		_ = client.Close()
	})

	return client
}
