package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/staffdesk/recalc/internal/infra/persistence/commonrepo"
	"go.uber.org/zap"
)

// NopTransaction runs the pipeline without a database transaction. Used in
// tests and for jobs whose steps manage their own persistence.
type NopTransaction struct{}

func (NopTransaction) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Worker executes one partition: the job's ordered pipeline against the
// partition's scope, inside its own transaction, isolated from sibling
// partitions.
//
// Execute never lets a failure escape to the orchestrator. Anything that goes
// wrong inside the pipeline, panics included, is converted into a
// PartitionResult with status FAILURE carrying the original error.
type Worker struct {
	tx     commonrepo.Transaction
	logger *zap.Logger
}

func NewWorker(tx commonrepo.Transaction, logger *zap.Logger) *Worker {
	if tx == nil {
		tx = NopTransaction{}
	}
	return &Worker{tx: tx, logger: logger}
}

func (w *Worker) Execute(ctx context.Context, job *Job, descriptor PartitionDescriptor) (result PartitionResult) {
	started := time.Now()
	partitionID := descriptor.PartitionID()
	result = PartitionResult{Status: PartitionSuccess, PartitionID: partitionID}

	defer func() {
		result.ProcessingTime = time.Since(started)
		if r := recover(); r != nil {
			err := fmt.Errorf("panic in partition pipeline: %v", r)
			w.logger.Error("partition worker recovered from panic",
				zap.String("partition_id", partitionID),
				zap.Any("panic", r))
			result = PartitionResult{
				Status:         PartitionFailure,
				Message:        fmt.Sprintf("partition %s panicked", partitionID),
				ErrorDetail:    err.Error(),
				Err:            err,
				ProcessingTime: time.Since(started),
				PartitionID:    partitionID,
			}
		}
	}()

	if msg, ok := w.validate(job, descriptor); !ok {
		result.Status = PartitionFailure
		result.Message = msg
		result.ErrorDetail = msg
		result.Err = errors.New(msg)
		return result
	}

	err := w.tx.Execute(ctx, func(ctx context.Context) error {
		for _, step := range job.Steps {
			if err := step.Run(ctx, descriptor.EntityID, descriptor.Date); err != nil {
				var partial *PartialError
				if errors.As(err, &partial) {
					// Partial outcome is a soft signal: record it and keep the
					// remaining steps running for this scope.
					result.Status = PartitionPartial
					result.Message = fmt.Sprintf("step %s partial for partition %s: %s", step.Name(), partitionID, partial.Reason)
					continue
				}
				return fmt.Errorf("step %s failed for partition %s: %w", step.Name(), partitionID, err)
			}
		}
		return nil
	})
	if err != nil {
		result.Status = PartitionFailure
		result.Message = fmt.Sprintf("partition %s failed", partitionID)
		result.ErrorDetail = err.Error()
		result.Err = err
		w.logger.Warn("partition failed",
			zap.String("partition_id", partitionID),
			zap.String("job", job.Name),
			zap.Error(err))
		return result
	}

	return result
}

// validate checks the descriptor carries everything the job's axis requires.
// A blank required field is a FAILURE outcome, not a thrown error.
func (w *Worker) validate(job *Job, d PartitionDescriptor) (string, bool) {
	var missing []string
	needEntity := job.Axis == AxisEntityDate || job.Axis == AxisEntity
	needDate := job.Axis == AxisEntityDate || job.Axis == AxisDate
	if needEntity && strings.TrimSpace(d.EntityID) == "" {
		missing = append(missing, "entity")
	}
	if needDate && d.Date.IsZero() {
		missing = append(missing, "date")
	}
	if len(missing) == 0 {
		return "", true
	}
	return fmt.Sprintf("missing partition properties: entity=%q, date=%q (missing: %s)",
		d.EntityID, formatDate(d.Date), strings.Join(missing, ",")), false
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}
