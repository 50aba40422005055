package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/stockroom/internal/jobs"
	"github.com/odyssey-erp/stockroom/internal/reports"
)

const defaultLowStockLogLimit = 50

// LowStockSource lists components at or below their minimum quantity.
type LowStockSource interface {
	LowStock(ctx context.Context) ([]reports.LowStockItem, error)
}

// LowStockScanJob logs the components that need reordering.
type LowStockScanJob struct {
	Source  LowStockSource
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewLowStockScanJob initialises the scan handler.
func NewLowStockScanJob(source LowStockSource, logger *slog.Logger, metrics *jobmetrics.Metrics) *LowStockScanJob {
	return &LowStockScanJob{Source: source, Logger: logger, Metrics: metrics}
}

// Handle executes the scan.
func (j *LowStockScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Source == nil {
		return errors.New("low stock scan: handler not configured")
	}
	var payload LowStockScanPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("low stock scan: decode payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	if payload.Limit <= 0 {
		payload.Limit = defaultLowStockLogLimit
	}

	start := time.Now()
	tracker := j.Metrics.Track(TaskLowStockScan)
	logger := j.logger()

	items, err := j.Source.LowStock(ctx)
	if err != nil {
		logger.Error("scan failed", slog.Any("error", err))
		return tracker.End(err)
	}
	for i, item := range items {
		if i == payload.Limit {
			break
		}
		logger.Warn("component below minimum",
			slog.Int64("component_id", item.ComponentID),
			slog.String("part_number", item.SupplierPartNumber),
			slog.String("location", item.LocationCode),
			slog.Int("current", item.CurrentQuantity),
			slog.Int("minimum", item.MinimumQuantity),
		)
	}
	j.Metrics.SetLowStock(len(items))
	logger.Info("completed low stock scan",
		slog.Int("low_stock", len(items)),
		slog.Duration("duration", time.Since(start)),
	)
	return tracker.End(nil)
}

func (j *LowStockScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskLowStockScan))
	}
	return slog.Default().With(slog.String("job", TaskLowStockScan))
}
