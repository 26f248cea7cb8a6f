package cmd

import (
	"github.com/spf13/cobra"

	"github.com/aidroute/deployer/pkg/probe"
)

var checkEndpoints bool

var networksCmd = &cobra.Command{
	Use:   "networks",
	Short: "Prints the configured networks.",
	Long: `Prints the configured network names and the selected network's resolved
configuration with credentials redacted. With --check every http endpoint is
asked for its chain id.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := initCommon()
		if err != nil {
			return err
		}

		p := probe.New(log, s.cfg, s.env, cmd.OutOrStdout(), probe.Options{})

		if err := p.Print(networkName); err != nil {
			return err
		}

		if !checkEndpoints {
			return nil
		}

		_, err = p.Check(cmd.Context())

		return err
	},
}

func init() {
	networksCmd.Flags().BoolVar(&checkEndpoints, "check", false, "query every http network for its chain id")

	rootCmd.AddCommand(networksCmd)
}
