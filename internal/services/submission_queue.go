package services

import (
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/huangang/cdashconf/internal/config"
)

const (
	TaskTypeSubmission  = "submission:process"
	SubmissionQueueName = "submissions"
)

var ErrSyncSubmission = errors.New("asynchronous submission is disabled")

// RedisOpt converts the broker settings for asynq.
func RedisOpt(cfg *config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// SubmissionTaskOptions turns the processing limits into asynq options. The
// attempt count includes the first try, so retries are one fewer.
func SubmissionTaskOptions(cfg *config.SubmissionConfig) []asynq.Option {
	opts := []asynq.Option{asynq.Queue(SubmissionQueueName)}

	if limit := cfg.ProcessingTimeLimit(); limit > 0 {
		opts = append(opts, asynq.Timeout(limit))
	}

	retries := cfg.ProcessingMaxAttempts - 1
	if retries < 0 {
		retries = 0
	}
	opts = append(opts, asynq.MaxRetry(retries))
	return opts
}

// NewSubmissionTask wraps a submission payload in a task carrying the
// configured processing limits.
func NewSubmissionTask(payload []byte, cfg *config.SubmissionConfig) *asynq.Task {
	return asynq.NewTask(TaskTypeSubmission, payload, SubmissionTaskOptions(cfg)...)
}

// CheckSubmissionBroker verifies the Redis broker is reachable when
// asynchronous submission is enabled.
func CheckSubmissionBroker(cfg *config.Config) error {
	if !cfg.Mode.AsyncSubmission {
		return ErrSyncSubmission
	}

	inspector := asynq.NewInspector(RedisOpt(&cfg.Redis))
	defer inspector.Close()

	if _, err := inspector.Queues(); err != nil {
		return fmt.Errorf("redis at %s unavailable: %w", cfg.Redis.Addr, err)
	}
	return nil
}
