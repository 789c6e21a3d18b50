package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nimasrn/bank-ledger/pkg/logger"
	"github.com/nimasrn/bank-ledger/pkg/redis"
)

var (
	ErrAlreadyProcessed   = errors.New("receipt already processed")
	ErrLockAcquireFailed  = errors.New("failed to acquire processing lock")
	ErrMaxRetriesExceeded = errors.New("maximum retries exceeded")
)

type IdempotencyConfig struct {
	LockTTL time.Duration

	ProcessedTTL time.Duration

	MaxRetries int

	RetryKeyPrefix string

	LockKeyPrefix string

	ProcessedKeyPrefix string
}

func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		LockTTL:            30 * time.Second,
		ProcessedTTL:       24 * time.Hour,
		MaxRetries:         3,
		RetryKeyPrefix:     "receipt:retry:",
		LockKeyPrefix:      "receipt:lock:",
		ProcessedKeyPrefix: "receipt:processed:",
	}
}

// IdempotencyService guarantees each receipt is delivered at most once
// even when several consumers pull from the same stream. It keeps a
// short-lived SetNX lock while a receipt is in flight and a long-lived
// processed marker once delivery succeeded.
type IdempotencyService struct {
	redis  redis.RedisAdapter
	config IdempotencyConfig
}

func NewIdempotencyService(redisAdapter redis.RedisAdapter, config IdempotencyConfig) *IdempotencyService {
	return &IdempotencyService{
		redis:  redisAdapter,
		config: config,
	}
}

type ProcessingContext struct {
	ReceiptID    string
	RetryCount   int
	IsRetry      bool
	lockAcquired bool
	service      *IdempotencyService
}

func (s *IdempotencyService) AcquireProcessingLock(ctx context.Context, receiptID string) (*ProcessingContext, error) {
	processedKey := s.config.ProcessedKeyPrefix + receiptID
	exists, err := s.redis.Exist(processedKey)
	if err != nil {
		logger.Warn("Failed to check processed status", "receipt_id", receiptID, "error", err)
		// Continue even if the check fails, a duplicate send beats a stuck queue
	} else if exists > 0 {
		logger.Info("Receipt already processed, skipping", "receipt_id", receiptID)
		return nil, ErrAlreadyProcessed
	}

	retryKey := s.config.RetryKeyPrefix + receiptID
	retryCountBytes, err := s.redis.Get(retryKey)
	retryCount := 0
	if err == nil && len(retryCountBytes) > 0 {
		fmt.Sscanf(string(retryCountBytes), "%d", &retryCount)
	}

	if retryCount >= s.config.MaxRetries {
		logger.Error("Max retries exceeded for receipt", "receipt_id", receiptID, "retry_count", retryCount)
		return nil, fmt.Errorf("%w: receipt_id=%s, retries=%d", ErrMaxRetriesExceeded, receiptID, retryCount)
	}

	lockKey := s.config.LockKeyPrefix + receiptID
	lockValue := []byte(fmt.Sprintf("%d", time.Now().UnixNano()))

	acquired, err := s.redis.SetNX(lockKey, lockValue, s.config.LockTTL)
	if err != nil {
		logger.Error("Failed to acquire lock", "receipt_id", receiptID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrLockAcquireFailed, err)
	}

	if !acquired {
		logger.Info("Lock already held by another consumer", "receipt_id", receiptID)
		return nil, ErrLockAcquireFailed
	}

	logger.Info("Processing lock acquired",
		"receipt_id", receiptID,
		"retry_count", retryCount,
		"lock_ttl", s.config.LockTTL)

	return &ProcessingContext{
		ReceiptID:    receiptID,
		RetryCount:   retryCount,
		IsRetry:      retryCount > 0,
		lockAcquired: true,
		service:      s,
	}, nil
}

func (s *IdempotencyService) MarkSuccess(ctx context.Context, pc *ProcessingContext) error {
	receiptID := pc.ReceiptID

	processedKey := s.config.ProcessedKeyPrefix + receiptID
	err := s.redis.Set(processedKey, []byte("1"), s.config.ProcessedTTL)
	if err != nil {
		logger.Error("Failed to mark receipt as processed", "receipt_id", receiptID, "error", err)
		return fmt.Errorf("failed to mark as processed: %w", err)
	}

	s.cleanup(ctx, pc)

	logger.Info("Receipt marked as successfully processed",
		"receipt_id", receiptID,
		"retry_count", pc.RetryCount)

	return nil
}

func (s *IdempotencyService) MarkFailure(ctx context.Context, pc *ProcessingContext, reason error) error {
	receiptID := pc.ReceiptID

	retryKey := s.config.RetryKeyPrefix + receiptID
	newRetryCount := pc.RetryCount + 1
	retryValue := []byte(fmt.Sprintf("%d", newRetryCount))

	// The retry counter outlives the lock so attempts are tracked across
	// reclaims by other consumers.
	err := s.redis.Set(retryKey, retryValue, s.config.ProcessedTTL)
	if err != nil {
		logger.Error("Failed to increment retry counter", "receipt_id", receiptID, "error", err)
	}

	lockKey := s.config.LockKeyPrefix + receiptID
	if err := s.redis.Del(lockKey); err != nil {
		logger.Warn("Failed to remove lock", "receipt_id", receiptID, "error", err)
	}

	logger.Warn("Receipt processing failed, will retry",
		"receipt_id", receiptID,
		"retry_count", newRetryCount,
		"max_retries", s.config.MaxRetries,
		"reason", reason)

	return nil
}

func (s *IdempotencyService) ReleaseLock(ctx context.Context, pc *ProcessingContext) error {
	if pc == nil || !pc.lockAcquired {
		return nil
	}

	lockKey := s.config.LockKeyPrefix + pc.ReceiptID
	if err := s.redis.Del(lockKey); err != nil {
		logger.Warn("Failed to release lock", "receipt_id", pc.ReceiptID, "error", err)
		return err
	}

	pc.lockAcquired = false
	logger.Debug("Processing lock released", "receipt_id", pc.ReceiptID)
	return nil
}

func (s *IdempotencyService) cleanup(ctx context.Context, pc *ProcessingContext) {
	receiptID := pc.ReceiptID

	lockKey := s.config.LockKeyPrefix + receiptID
	if err := s.redis.Del(lockKey); err != nil {
		logger.Warn("Failed to cleanup lock", "receipt_id", receiptID, "error", err)
	}

	retryKey := s.config.RetryKeyPrefix + receiptID
	if err := s.redis.Del(retryKey); err != nil {
		logger.Warn("Failed to cleanup retry counter", "receipt_id", receiptID, "error", err)
	}

	pc.lockAcquired = false
}

func (s *IdempotencyService) GetRetryCount(ctx context.Context, receiptID string) (int, error) {
	retryKey := s.config.RetryKeyPrefix + receiptID
	retryCountBytes, err := s.redis.Get(retryKey)
	if err != nil {
		if err == redis.NilError {
			return 0, nil
		}
		return 0, err
	}

	retryCount := 0
	fmt.Sscanf(string(retryCountBytes), "%d", &retryCount)
	return retryCount, nil
}

func (s *IdempotencyService) IsProcessed(ctx context.Context, receiptID string) (bool, error) {
	processedKey := s.config.ProcessedKeyPrefix + receiptID
	exists, err := s.redis.Exist(processedKey)
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}
