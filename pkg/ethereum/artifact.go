package ethereum

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Artifact is a compiled contract as written by the build tool
// (artifacts/contracts/<Source>.sol/<Name>.json).
type Artifact struct {
	Format       string
	ContractName string
	SourceName   string
	ABI          abi.ABI
	Bytecode     []byte
}

type rawArtifact struct {
	Format       string          `json:"_format"`
	ContractName string          `json:"contractName"`
	SourceName   string          `json:"sourceName"`
	ABI          json.RawMessage `json:"abi"`
	Bytecode     string          `json:"bytecode"`
}

// LoadArtifact reads and parses an artifact file.
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}

	artifact, err := ParseArtifact(data)
	if err != nil {
		return nil, fmt.Errorf("invalid artifact %s: %w", path, err)
	}

	return artifact, nil
}

// ParseArtifact parses artifact JSON.
func ParseArtifact(data []byte) (*Artifact, error) {
	var raw rawArtifact

	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	if raw.ContractName == "" {
		return nil, fmt.Errorf("contractName is missing")
	}

	parsed, err := abi.JSON(bytes.NewReader(raw.ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse abi: %w", err)
	}

	bytecode, err := hexutil.Decode(raw.Bytecode)
	if err != nil {
		return nil, fmt.Errorf("failed to decode bytecode: %w", err)
	}

	if len(bytecode) == 0 {
		return nil, fmt.Errorf("%s: %w", raw.ContractName, ErrEmptyBytecode)
	}

	return &Artifact{
		Format:       raw.Format,
		ContractName: raw.ContractName,
		SourceName:   raw.SourceName,
		ABI:          parsed,
		Bytecode:     bytecode,
	}, nil
}

// FullyQualifiedName returns "<sourceName>:<contractName>".
func (a *Artifact) FullyQualifiedName() string {
	return a.SourceName + ":" + a.ContractName
}

// PackConstructor ABI-encodes constructor arguments.
func (a *Artifact) PackConstructor(args ...any) ([]byte, error) {
	return a.ABI.Pack("", args...)
}
