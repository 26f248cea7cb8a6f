package ethereum

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/ethereum/go-ethereum/params"
	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"
)

// SimulatedPrefund is the genesis balance of every simulated account (1,000,000 ETH).
var SimulatedPrefund = new(big.Int).Mul(big.NewInt(1_000_000), big.NewInt(params.Ether))

// SimulatedBackend is an in-process chain backed by go-ethereum's simulated
// backend. With a block time it commits a block on every tick; otherwise
// blocks are only produced by Commit.
type SimulatedBackend struct {
	simulated.Client

	log       logrus.FieldLogger
	sim       *simulated.Backend
	scheduler *gocron.Scheduler

	mu sync.Mutex
}

// NewSimulatedBackend starts a simulated chain with the given genesis allocation.
func NewSimulatedBackend(log logrus.FieldLogger, alloc types.GenesisAlloc, blockTime time.Duration) (*SimulatedBackend, error) {
	sim := simulated.NewBackend(alloc, simulated.WithBlockGasLimit(50_000_000))

	s := &SimulatedBackend{
		Client: sim.Client(),
		log:    log.WithField("component", "ethereum/simulated"),
		sim:    sim,
	}

	// Commit the genesis block.
	s.Commit()

	if blockTime > 0 {
		s.scheduler = gocron.NewScheduler(time.UTC)
		s.scheduler.SingletonModeAll()

		if _, err := s.scheduler.Every(blockTime).Do(func() {
			s.Commit()
		}); err != nil {
			_ = sim.Close()

			return nil, fmt.Errorf("failed to schedule block production: %w", err)
		}

		s.scheduler.StartAsync()

		s.log.WithField("block_time", blockTime).Debug("Simulated chain producing blocks")
	}

	return s, nil
}

// Commit seals the pending block.
func (s *SimulatedBackend) Commit() common.Hash {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sim.Commit()
}

// Close stops block production and shuts the chain down.
func (s *SimulatedBackend) Close() error {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sim.Close()
}
