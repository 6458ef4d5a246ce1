package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const metricPrefix = "cashshift_"

var (
	registerOnce sync.Once

	shiftsOpened prometheus.Counter
	shiftsClosed prometheus.Counter

	transactionsRecorded *prometheus.CounterVec
	handoversProcessed   prometheus.Counter
	handoverCents        prometheus.Counter
	ordersCompleted      *prometheus.CounterVec
)

// Init registers the ledger counters with the default registry. Safe to
// call more than once.
func Init() {
	registerOnce.Do(func() {
		shiftsOpened = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "shifts_opened_total",
			Help: "Total cash shifts opened",
		})
		shiftsClosed = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "shifts_closed_total",
			Help: "Total cash shifts closed",
		})
		transactionsRecorded = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "transactions_total",
				Help: "Total drawer transactions by kind",
			},
			[]string{"kind"},
		)
		handoversProcessed = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "handovers_total",
			Help: "Total cash handovers processed",
		})
		handoverCents = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "handover_cents_total",
			Help: "Total cash handed over, in cents",
		})
		ordersCompleted = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "orders_completed_total",
				Help: "Total completed orders absorbed by the ledger, by outcome",
			},
			[]string{"outcome"},
		)

		prometheus.MustRegister(
			shiftsOpened,
			shiftsClosed,
			transactionsRecorded,
			handoversProcessed,
			handoverCents,
			ordersCompleted,
		)
	})
}

func ShiftOpened() {
	if shiftsOpened != nil {
		shiftsOpened.Inc()
	}
}

func ShiftClosed() {
	if shiftsClosed != nil {
		shiftsClosed.Inc()
	}
}

func TransactionRecorded(kind string) {
	if transactionsRecorded != nil {
		transactionsRecorded.WithLabelValues(kind).Inc()
	}
}

func HandoverProcessed(amountCents int64) {
	if handoversProcessed != nil {
		handoversProcessed.Inc()
	}
	if handoverCents != nil && amountCents > 0 {
		handoverCents.Add(float64(amountCents))
	}
}

// OrderCompleted records the ledger outcome of a completed order:
// "linked", "unlinked", "debt" or "direct".
func OrderCompleted(outcome string) {
	if ordersCompleted != nil {
		ordersCompleted.WithLabelValues(outcome).Inc()
	}
}
