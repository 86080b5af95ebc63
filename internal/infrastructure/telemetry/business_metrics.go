package telemetry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const defaultCollectInterval = 5 * time.Minute

// ErrMeterNil is returned when BusinessMetrics is built without a meter
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// CatalogMetricsProvider reads catalog-wide counts for the periodic gauges
type CatalogMetricsProvider interface {
	CountActiveProducts(ctx context.Context) (int64, error)
	CountActiveSellers(ctx context.Context) (int64, error)
}

// BusinessMetricsConfig configures NewBusinessMetrics
type BusinessMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	CollectInterval time.Duration
	CatalogProvider CatalogMetricsProvider
}

// BusinessMetrics records marketplace activity: placed orders, their value
// and size, and the size of the live catalog
type BusinessMetrics struct {
	logger *zap.Logger

	ordersPlaced     *Counter
	orderAmountCents *Counter
	unitsSold        *Counter
	orderValue       *Histogram

	activeProducts *Gauge
	activeSellers  *Gauge

	catalogProvider CatalogMetricsProvider
	collectInterval time.Duration
	stopChan        chan struct{}
	stopOnce        sync.Once
	collectOnce     sync.Once
	wg              sync.WaitGroup
}

// NewBusinessMetrics registers the business instruments on the meter
func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	interval := cfg.CollectInterval
	if interval <= 0 {
		interval = defaultCollectInterval
	}

	bm := &BusinessMetrics{
		logger:          logger,
		catalogProvider: cfg.CatalogProvider,
		collectInterval: interval,
		stopChan:        make(chan struct{}),
	}

	in := NewInstruments(cfg.Meter)
	bm.ordersPlaced = in.Counter("marketplace_orders_placed_total", "Orders placed through checkout", "{orders}")
	bm.orderAmountCents = in.Counter("marketplace_order_amount_cents_total", "Sum of order totals in cents", "{cents}")
	bm.unitsSold = in.Counter("marketplace_units_sold_total", "Product units sold", "{units}")
	bm.orderValue = in.Histogram("marketplace_order_value", "Distribution of order totals", "BRL", OrderValueBuckets...)
	bm.activeProducts = in.Gauge("marketplace_catalog_active_products", "Active products of active sellers", "{products}")
	bm.activeSellers = in.Gauge("marketplace_catalog_active_sellers", "Active seller accounts", "{sellers}")
	if err := in.Err(); err != nil {
		return nil, err
	}

	return bm, nil
}

// RecordOrderPlaced records one placed order with its total, line count and units
func (bm *BusinessMetrics) RecordOrderPlaced(ctx context.Context, totalAmount decimal.Decimal, itemCount, units int) {
	bm.ordersPlaced.Inc(ctx)
	bm.orderAmountCents.Add(ctx, totalAmount.Shift(2).Round(0).IntPart())
	bm.unitsSold.Add(ctx, int64(units))
	bm.orderValue.Record(ctx, totalAmount.InexactFloat64())

	bm.logger.Debug("order metrics recorded",
		zap.String("total", totalAmount.StringFixed(2)),
		zap.Int("items", itemCount),
		zap.Int("units", units))
}

// StartPeriodicCollection refreshes the catalog gauges every interval until
// Stop is called or ctx ends. Later calls are no-ops.
func (bm *BusinessMetrics) StartPeriodicCollection(ctx context.Context) {
	bm.collectOnce.Do(func() {
		bm.wg.Add(1)
		go bm.runPeriodicCollection(ctx)
	})
}

func (bm *BusinessMetrics) runPeriodicCollection(ctx context.Context) {
	defer bm.wg.Done()

	ticker := time.NewTicker(bm.collectInterval)
	defer ticker.Stop()

	bm.collectCatalogMetrics(ctx)
	for {
		select {
		case <-bm.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			bm.collectCatalogMetrics(ctx)
		}
	}
}

func (bm *BusinessMetrics) collectCatalogMetrics(ctx context.Context) {
	if bm.catalogProvider == nil {
		return
	}

	if products, err := bm.catalogProvider.CountActiveProducts(ctx); err != nil {
		bm.logger.Warn("Failed to count active products", zap.Error(err))
	} else {
		bm.activeProducts.Record(ctx, products)
	}

	if sellers, err := bm.catalogProvider.CountActiveSellers(ctx); err != nil {
		bm.logger.Warn("Failed to count active sellers", zap.Error(err))
	} else {
		bm.activeSellers.Record(ctx, sellers)
	}
}

// Stop ends periodic collection and waits for the collector to exit
func (bm *BusinessMetrics) Stop() {
	bm.stopOnce.Do(func() {
		close(bm.stopChan)
	})
	bm.wg.Wait()
}
