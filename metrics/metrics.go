package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	opCounter          *prometheus.CounterVec
	rejectionCounter   *prometheus.CounterVec
	transfersScheduled *prometheus.CounterVec
	transfersExecuted  *prometheus.CounterVec
	liquidationCounter prometheus.Counter
	openPositionsGauge prometheus.Gauge
)

func init() {
	opCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pismo",
		Subsystem: "engine",
		Name:      "operations_total",
		Help:      "Number of engine operations processed",
	}, []string{"operation"})
	rejectionCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pismo",
		Subsystem: "engine",
		Name:      "rejections_total",
		Help:      "Number of operations rejected, by reason",
	}, []string{"operation", "reason"})
	transfersScheduled = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pismo",
		Subsystem: "settlement",
		Name:      "transfers_scheduled_total",
		Help:      "Number of settlement transfers scheduled, by destination",
	}, []string{"to"})
	transfersExecuted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pismo",
		Subsystem: "settlement",
		Name:      "transfers_executed_total",
		Help:      "Number of settlement transfers executed, by destination",
	}, []string{"to"})
	liquidationCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "pismo",
		Subsystem: "settlement",
		Name:      "liquidations_total",
		Help:      "Number of accounts liquidated",
	})
	openPositionsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "pismo",
		Subsystem: "positions",
		Name:      "open_total",
		Help:      "Number of currently open positions",
	})

	prometheus.MustRegister(
		opCounter,
		rejectionCounter,
		transfersScheduled,
		transfersExecuted,
		liquidationCounter,
		openPositionsGauge,
	)
}

// OpCounterInc counts one processed engine operation.
func OpCounterInc(operation string) {
	opCounter.WithLabelValues(operation).Inc()
}

// RejectionCounterInc counts one rejected operation with the reason it was
// rejected for.
func RejectionCounterInc(operation, reason string) {
	rejectionCounter.WithLabelValues(operation, reason).Inc()
}

// TransferScheduledInc counts one scheduled settlement transfer.
func TransferScheduledInc(to string) {
	transfersScheduled.WithLabelValues(to).Inc()
}

// TransferExecutedInc counts one executed settlement transfer.
func TransferExecutedInc(to string) {
	transfersExecuted.WithLabelValues(to).Inc()
}

// LiquidationInc counts one completed liquidation.
func LiquidationInc() {
	liquidationCounter.Inc()
}

// OpenPositionsAdd moves the open positions gauge.
func OpenPositionsAdd(delta float64) {
	openPositionsGauge.Add(delta)
}
