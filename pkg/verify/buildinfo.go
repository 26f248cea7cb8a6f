package verify

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// BuildInfo is a compiler run as recorded by the build tool
// (artifacts/build-info/<id>.json).
type BuildInfo struct {
	ID              string          `json:"id"`
	SolcVersion     string          `json:"solcVersion"`
	SolcLongVersion string          `json:"solcLongVersion"`
	Input           json.RawMessage `json:"input"`
	Output          struct {
		Contracts map[string]map[string]json.RawMessage `json:"contracts"`
	} `json:"output"`
}

// CompilerVersion returns the version string the explorer expects, e.g. "v0.8.24+commit.e11b9ed9".
func (b *BuildInfo) CompilerVersion() string {
	return "v" + b.SolcLongVersion
}

// Contains reports whether the compiler output holds the contract.
func (b *BuildInfo) Contains(sourceName, contractName string) bool {
	contracts, ok := b.Output.Contracts[sourceName]
	if !ok {
		return false
	}

	_, ok = contracts[contractName]

	return ok
}

// FindBuildInfo scans dir for the build-info file whose output contains the
// contract. Files are searched in name order; the first match wins.
func FindBuildInfo(dir, sourceName, contractName string) (*BuildInfo, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list build info: %w", err)
	}

	sort.Strings(paths)

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read build info: %w", err)
		}

		var info BuildInfo

		if err := json.Unmarshal(data, &info); err != nil {
			return nil, fmt.Errorf("invalid build info %s: %w", path, err)
		}

		if info.Contains(sourceName, contractName) {
			if len(info.Input) == 0 || info.SolcLongVersion == "" {
				return nil, fmt.Errorf("build info %s is missing compiler input or version", path)
			}

			return &info, nil
		}
	}

	return nil, fmt.Errorf("%w: %s:%s in %s", ErrBuildInfoNotFound, sourceName, contractName, dir)
}
