package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/nimasrn/bank-ledger/internal/model"
	"github.com/nimasrn/bank-ledger/internal/queue"
	"github.com/nimasrn/bank-ledger/pkg/logger"
	"github.com/nimasrn/bank-ledger/pkg/prom"
)

// ReceiptProcessor turns committed ledger events into SMS receipts.
// Delivery is at-most-once per receipt: the idempotency service fences
// concurrent consumers and caps retries before the queue falls back to
// its DLQ.
type ReceiptProcessor struct {
	client      *Client
	idempotency *IdempotencyService
}

func NewReceiptProcessor(client *Client, idempotency *IdempotencyService) *ReceiptProcessor {
	return &ReceiptProcessor{
		client:      client,
		idempotency: idempotency,
	}
}

func (p *ReceiptProcessor) GetType() string {
	return "receipt"
}

func (p *ReceiptProcessor) Process(ctx context.Context, queueMessage *queue.Message) error {
	var receipt model.Receipt
	err := json.Unmarshal(queueMessage.Data, &receipt)
	if err != nil {
		logger.Error("Failed to unmarshal receipt", "error", err)
		return err
	}
	if receipt.Tel == "" {
		logger.Warn("Receipt has no contact number, dropping", "transaction_id", receipt.TransactionID)
		return nil
	}

	receiptID := strconv.FormatInt(receipt.TransactionID, 10)

	procCtx, err := p.idempotency.AcquireProcessingLock(ctx, receiptID)
	if err != nil {
		if errors.Is(err, ErrAlreadyProcessed) {
			logger.Info("Receipt already processed, skipping", "receipt_id", receiptID)
			return nil
		}
		if errors.Is(err, ErrMaxRetriesExceeded) {
			logger.Error("Max retries exceeded, dropping receipt", "receipt_id", receiptID)
			return nil
		}
		if errors.Is(err, ErrLockAcquireFailed) {
			logger.Info("Lock held by another consumer, will retry", "receipt_id", receiptID)
			return errors.New("lock held by another consumer")
		}
		logger.Error("Failed to acquire lock", "receipt_id", receiptID, "error", err)
		return err
	}

	defer func() {
		if procCtx.lockAcquired {
			p.idempotency.ReleaseLock(ctx, procCtx)
		}
	}()

	logger.Info("Processing receipt",
		"receipt_id", receiptID,
		"type", string(receipt.Type),
		"tel", receipt.Tel,
		"retry_count", procCtx.RetryCount,
		"is_retry", procCtx.IsRetry)

	req := &SendRequest{
		ReceiptID: receiptID,
		Tel:       receipt.Tel,
		Content:   formatReceipt(&receipt),
	}

	res, err := p.client.SendReceipt(ctx, req)
	if err != nil {
		logger.Error("Failed to send receipt", "receipt_id", receiptID, "error", err)
		if markErr := p.idempotency.MarkFailure(ctx, procCtx, err); markErr != nil {
			logger.Error("Failed to mark failure", "receipt_id", receiptID, "error", markErr)
		}
		return err
	}

	if res.Status == StatusDelivered {
		if res.DeliveredAt != nil {
			prom.AddReceiptDeliveryDuration(
				res.DeliveredAt.Sub(receipt.CreatedAt).Seconds(),
				string(receipt.Type),
			)
		}

		if markErr := p.idempotency.MarkSuccess(ctx, procCtx); markErr != nil {
			logger.Error("Failed to mark success", "receipt_id", receiptID, "error", markErr)
			// The receipt went out, a stale marker only risks one duplicate
		}

		logger.Info("Receipt delivered",
			"receipt_id", receiptID,
			"tel", receipt.Tel,
			"retry_count", procCtx.RetryCount)

		return nil
	}

	logger.Warn("Receipt not delivered", "receipt_id", receiptID, "status", res.Status)
	if markErr := p.idempotency.MarkFailure(ctx, procCtx, errors.New("provider returned non-delivered status")); markErr != nil {
		logger.Error("Failed to mark failure", "receipt_id", receiptID, "error", markErr)
	}
	return errors.New("failed to deliver receipt")
}

// formatReceipt renders the SMS body for a committed ledger entry.
func formatReceipt(r *model.Receipt) string {
	when := r.CreatedAt.Format(time.DateTime)
	switch r.Type {
	case model.TransactionDeposit:
		return fmt.Sprintf("[Deposit] %d credited to %s at %s", r.Amount, r.Receiver, when)
	case model.TransactionWithdraw:
		return fmt.Sprintf("[Withdraw] %d debited from %s at %s", r.Amount, r.Sender, when)
	case model.TransactionTransfer:
		return fmt.Sprintf("[Transfer] %d sent from %s to %s at %s", r.Amount, r.Sender, r.Receiver, when)
	}
	return fmt.Sprintf("[%s] amount %d at %s", r.Type, r.Amount, when)
}
