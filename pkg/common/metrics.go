package common

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DeploymentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aidroute_deployer_deployments_total",
		Help: "Total number of deployment runs by final outcome",
	}, []string{"network", "outcome"})

	StepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aidroute_deployer_steps_total",
		Help: "Total number of orchestrator steps by outcome",
	}, []string{"network", "step", "outcome"})

	StepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "aidroute_deployer_step_duration_seconds",
		Help:    "Time taken by an orchestrator step",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 16),
	}, []string{"network", "step"})

	DeployerBalance = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "aidroute_deployer_balance_eth",
		Help: "Deployer balance observed before deployment",
	}, []string{"network"})

	DeploymentGasUsed = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "aidroute_deployer_gas_used",
		Help: "Gas used by the last deployment transaction",
	}, []string{"network"})

	DeploymentBlock = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "aidroute_deployer_block_number",
		Help: "Block numbers of the last deployment",
	}, []string{"network", "boundary"})

	VerificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aidroute_deployer_verifications_total",
		Help: "Total number of verification attempts by outcome",
	}, []string{"network", "outcome"})
)

// WriteTextfile writes every registered metric to path in the node-exporter
// textfile collector format.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}

	return nil
}
