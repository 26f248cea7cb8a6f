package ethereum

import (
	"context"
	"errors"
	"fmt"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
)

var errNotYet = errors.New("not yet")

// WaitForReceipt blocks until the transaction is mined and the chain head is
// confirmations-1 blocks past the block containing it (so confirmations=1
// returns as soon as the receipt exists). The wait is bounded only by ctx.
//
// A missing receipt or a head that is not deep enough is polled again after
// the poll interval. Any other RPC error ends the wait.
func (c *Client) WaitForReceipt(ctx context.Context, hash common.Hash, confirmations uint64) (*Receipt, error) {
	if confirmations == 0 {
		confirmations = 1
	}

	log := c.log.WithField("tx_hash", hash.Hex())

	mined, err := pollUntil(ctx, c.pollInterval, func() (*types.Receipt, error) {
		start := time.Now()

		receipt, err := c.backend.TransactionReceipt(ctx, hash)

		c.metrics.ObserveRPCCall(c.network, "eth_getTransactionReceipt", start, err)

		if err != nil {
			if errors.Is(err, ethereum.NotFound) {
				return nil, errNotYet
			}

			return nil, backoff.Permanent(fmt.Errorf("failed to get receipt: %w", err))
		}

		return receipt, nil
	})
	if err != nil {
		return nil, err
	}

	result := &Receipt{
		TxHash:      mined.TxHash,
		BlockNumber: mined.BlockNumber.Uint64(),
		GasUsed:     mined.GasUsed,
		Status:      mined.Status,
	}

	if mined.Status != types.ReceiptStatusSuccessful {
		return result, fmt.Errorf("%w: %s in block %d", ErrTransactionReverted, hash.Hex(), result.BlockNumber)
	}

	target := result.BlockNumber + confirmations - 1

	log.WithFields(logrus.Fields{
		"block_number":  result.BlockNumber,
		"confirmations": confirmations,
		"target_block":  target,
	}).Debug("Transaction mined, waiting for confirmations")

	head, err := pollUntil(ctx, c.pollInterval, func() (uint64, error) {
		start := time.Now()

		head, err := c.backend.BlockNumber(ctx)

		c.metrics.ObserveRPCCall(c.network, "eth_blockNumber", start, err)

		if err != nil {
			return 0, backoff.Permanent(fmt.Errorf("failed to get block number: %w", err))
		}

		if head < target {
			return 0, errNotYet
		}

		return head, nil
	})
	if err != nil {
		return result, err
	}

	result.ConfirmedAt = head

	return result, nil
}

// pollUntil calls fn every interval until it succeeds, returns a permanent
// error, or ctx is done.
func pollUntil[T any](ctx context.Context, interval time.Duration, fn func() (T, error)) (T, error) {
	b := backoff.WithContext(backoff.NewConstantBackOff(interval), ctx)

	return backoff.RetryWithData[T](fn, b)
}
