// Package config resolves everything a deployment run needs to know about its
// target network before any chain interaction happens.
//
// Configuration is layered: built-in defaults (struct tags and DefaultNetworks),
// an optional YAML file, and finally environment variables (process environment
// first, then a .env file). The resulting Config is built once at process start
// and handed to the components that need it.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

// DefaultFile is loaded when no config file is given and it exists in the
// working directory.
const DefaultFile = "deployer.yaml"

// Config is the main configuration for the deployer.
type Config struct {
	// LoggingLevel is the logging level to use.
	LoggingLevel string `yaml:"logging" default:"info"`
	// DefaultNetwork is used when no network is selected on the command line.
	DefaultNetwork string `yaml:"defaultNetwork" default:"hardhat"`
	// Networks are merged over DefaultNetworks by name, field by field.
	Networks map[string]*NetworkConfig `yaml:"networks"`
	// Contract describes the compiled contract to deploy.
	Contract ContractConfig `yaml:"contract"`
	// Deployment holds orchestrator settings.
	Deployment DeploymentConfig `yaml:"deployment"`
	// Etherscan is the block explorer verification configuration.
	Etherscan EtherscanConfig `yaml:"etherscan"`
	// MetricsTextfile, if set, receives the process metrics in Prometheus text
	// format when the command exits.
	MetricsTextfile string `yaml:"metricsTextfile"`
	// Server exposes metrics and health over HTTP while a deployment runs.
	Server ServerConfig `yaml:"server"`
}

// ServerConfig configures the optional HTTP endpoints. Empty addresses disable them.
type ServerConfig struct {
	// MetricsAddr is the address to listen on for metrics.
	MetricsAddr string `yaml:"metricsAddr"`
	// HealthCheckAddr is the address to listen on for healthcheck.
	HealthCheckAddr string `yaml:"healthCheckAddr"`
	// ShutdownTimeout bounds the graceful shutdown of the endpoints.
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" default:"10s"`
}

// ContractConfig points at the build tool's output for the contract.
type ContractConfig struct {
	Name         string `yaml:"name" default:"AidRouteMissions"`
	ArtifactPath string `yaml:"artifactPath" default:"artifacts/contracts/AidRouteMissions.sol/AidRouteMissions.json"`
	BuildInfoDir string `yaml:"buildInfoDir" default:"artifacts/build-info"`
}

// DeploymentConfig holds the orchestrator settings.
type DeploymentConfig struct {
	// Confirmations is the block depth after which the deployment is final.
	Confirmations uint64 `yaml:"confirmations" default:"3"`
	// ConfirmationTimeout bounds the wait for Confirmations.
	ConfirmationTimeout time.Duration `yaml:"confirmationTimeout" default:"10m"`
	// PollInterval is how often the receipt and chain head are polled.
	PollInterval time.Duration `yaml:"pollInterval" default:"2s"`
	// AssetAddress is the constructor argument (payment token) fallback.
	AssetAddress string `yaml:"assetAddress" default:"0xCaC524BcA292aaade2DF8A05cC58F0a65B1B3bB9"`
	// AssetAddressEnv overrides AssetAddress when set and non-empty.
	AssetAddressEnv string `yaml:"assetAddressEnv" default:"PYUSD_ADDRESS"`
	// VerifyNetwork is the only network on which source verification runs.
	VerifyNetwork string `yaml:"verifyNetwork" default:"sepolia"`
}

// EtherscanConfig configures source verification.
type EtherscanConfig struct {
	APIURL       string        `yaml:"apiUrl" default:"https://api.etherscan.io/v2/api"`
	APIKey       string        `yaml:"apiKey"`
	APIKeyEnv    string        `yaml:"apiKeyEnv" default:"ETHERSCAN_API_KEY"`
	PollInterval time.Duration `yaml:"pollInterval" default:"3s"`
	Timeout      time.Duration `yaml:"timeout" default:"2m"`
}

// Load reads the config file, applying defaults first. An empty file name
// falls back to DefaultFile, which may be absent.
func Load(file string) (*Config, error) {
	optional := false

	if file == "" {
		file = DefaultFile
		optional = true
	}

	config := &Config{}

	if err := defaults.Set(config); err != nil {
		return nil, err
	}

	yamlFile, err := os.ReadFile(file)
	if err != nil {
		if !(optional && errors.Is(err, os.ErrNotExist)) {
			return nil, err
		}
	} else {
		type plain Config

		if err := yaml.Unmarshal(yamlFile, (*plain)(config)); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", file, err)
		}
	}

	config.mergeDefaultNetworks()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Default returns a config built only from defaults.
func Default() *Config {
	config := &Config{}

	//nolint:errcheck // static struct tags
	_ = defaults.Set(config)

	config.mergeDefaultNetworks()

	return config
}

func (c *Config) mergeDefaultNetworks() {
	if c.Networks == nil {
		c.Networks = make(map[string]*NetworkConfig)
	}

	for name, network := range DefaultNetworks() {
		override, exists := c.Networks[name]

		switch {
		case !exists:
			c.Networks[name] = network
		case override != nil:
			c.Networks[name] = override.mergeOver(network)
		}
	}

	for _, network := range c.Networks {
		if network != nil && network.Type == NetworkTypeSimulated && network.BlockTime == 0 {
			network.BlockTime = DefaultBlockTime
		}
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for name, network := range c.Networks {
		if network == nil {
			return fmt.Errorf("network %q has no configuration", name)
		}

		if err := network.Validate(); err != nil {
			return fmt.Errorf("invalid network %q: %w", name, err)
		}
	}

	if c.Deployment.Confirmations == 0 {
		return fmt.Errorf("deployment.confirmations must be at least 1")
	}

	if c.Deployment.ConfirmationTimeout <= 0 {
		return fmt.Errorf("deployment.confirmationTimeout must be positive")
	}

	if c.Deployment.PollInterval <= 0 {
		return fmt.Errorf("deployment.pollInterval must be positive")
	}

	if c.Contract.Name == "" {
		return fmt.Errorf("contract.name is required")
	}

	return nil
}

// NetworkNames returns the configured network names in sorted order.
func (c *Config) NetworkNames() []string {
	names := make([]string, 0, len(c.Networks))

	for name := range c.Networks {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
