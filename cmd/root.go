package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/aidroute/deployer/pkg/common"
	"github.com/aidroute/deployer/pkg/config"
)

var (
	log          = logrus.New()
	configFile   string
	envFile      string
	networkName  string
	loggingLevel string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "aidroute-deployer",
	Short:         "Deploys the AidRouteMissions contract.",
	Long:          `Deploys the AidRouteMissions contract to a configured network, waits for confirmations and optionally verifies its source on Etherscan.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		log.WithError(err).Error("Command failed")

		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is ./"+config.DefaultFile+" if present)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file consulted after the process environment")
	rootCmd.PersistentFlags().StringVar(&networkName, "network", "", "network to use (default is the config's defaultNetwork)")
	rootCmd.PersistentFlags().StringVar(&loggingLevel, "logging", "", "logging level, overrides the config file")
}

// session is what every command needs, built once per invocation.
type session struct {
	cfg *config.Config
	env config.Env
}

func initCommon() (*session, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	env, err := config.LoadEnv(envFile)
	if err != nil {
		return nil, err
	}

	levelName := cfg.LoggingLevel
	if loggingLevel != "" {
		levelName = loggingLevel
	}

	level, err := logrus.ParseLevel(levelName)
	if err != nil {
		log.WithError(err).Warn("Invalid logging level, using info")

		level = logrus.InfoLevel
	}

	log.SetLevel(level)

	return &session{cfg: cfg, env: env}, nil
}

// flushMetrics writes the metrics textfile if one is configured.
func (s *session) flushMetrics() {
	if s.cfg.MetricsTextfile == "" {
		return
	}

	if err := common.WriteTextfile(s.cfg.MetricsTextfile); err != nil {
		log.WithError(err).Warn("Failed to write metrics")
	}
}
