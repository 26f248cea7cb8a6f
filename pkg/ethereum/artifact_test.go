package ethereum

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testABI = `[{"type":"constructor","inputs":[{"name":"_pyusd","type":"address"}]},
{"type":"function","name":"owner","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]}]`

func TestParseArtifact(t *testing.T) {
	tests := []struct {
		name        string
		json        string
		expectedErr error
		errContains string
	}{
		{
			name: "valid artifact",
			json: `{"_format":"hh-sol-artifact-1","contractName":"AidRouteMissions","sourceName":"contracts/AidRouteMissions.sol","abi":` +
				testABI + `,"bytecode":"0x6000"}`,
		},
		{
			name:        "missing contract name",
			json:        `{"abi":[],"bytecode":"0x6000"}`,
			errContains: "contractName is missing",
		},
		{
			name:        "interface without bytecode",
			json:        `{"contractName":"IERC20","abi":[],"bytecode":"0x"}`,
			expectedErr: ErrEmptyBytecode,
		},
		{
			name:        "bytecode without prefix",
			json:        `{"contractName":"AidRouteMissions","abi":[],"bytecode":"6000"}`,
			errContains: "failed to decode bytecode",
		},
		{
			name:        "not json",
			json:        `artifact`,
			errContains: "invalid character",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			artifact, err := ParseArtifact([]byte(tt.json))

			switch {
			case tt.expectedErr != nil:
				require.ErrorIs(t, err, tt.expectedErr)
			case tt.errContains != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
			default:
				require.NoError(t, err)
				assert.Equal(t, "AidRouteMissions", artifact.ContractName)
				assert.Equal(t, "hh-sol-artifact-1", artifact.Format)
				assert.Equal(t, []byte{0x60, 0x00}, artifact.Bytecode)
				assert.Contains(t, artifact.ABI.Methods, "owner")
			}
		})
	}
}

func TestArtifactFullyQualifiedName(t *testing.T) {
	a := &Artifact{ContractName: "AidRouteMissions", SourceName: "contracts/AidRouteMissions.sol"}

	assert.Equal(t, "contracts/AidRouteMissions.sol:AidRouteMissions", a.FullyQualifiedName())
}

func TestArtifactPackConstructor(t *testing.T) {
	artifact, err := ParseArtifact([]byte(`{"contractName":"AidRouteMissions","abi":` + testABI + `,"bytecode":"0x6000"}`))
	require.NoError(t, err)

	asset := common.HexToAddress("0xCaC524BcA292aaade2DF8A05cC58F0a65B1B3bB9")

	packed, err := artifact.PackConstructor(asset)
	require.NoError(t, err)
	require.Len(t, packed, 32)
	assert.Equal(t, asset.Bytes(), packed[12:])

	_, err = artifact.PackConstructor()
	assert.Error(t, err)
}

func TestLoadArtifactMissingFile(t *testing.T) {
	_, err := LoadArtifact("does-not-exist.json")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read artifact")
}
