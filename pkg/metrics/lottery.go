package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	ResultWon    = "won"
	ResultMiss   = "miss"
	ResultFailed = "failed"
)

var (
	// Outcome of every draw request
	DrawTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lottery_draw_total",
		Help: "Count of lottery draws by result.",
	}, []string{"result"})

	DrawLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "lottery_draw_latency_seconds",
		Help:    "Latency of a single lottery draw",
		Buckets: prometheus.DefBuckets,
	})

	// A prize was picked but its stock was taken by a concurrent draw
	StockRaceLost = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lottery_stock_race_lost_total",
		Help: "Draws that selected a prize whose stock ran out before it could be taken",
	})

	SyncChanges = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lottery_sync_changes_total",
		Help: "Durable values rewritten by reconciliation, by kind (event, prize, user).",
	}, []string{"kind"})

	EmergencySyncTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lottery_emergency_sync_total",
		Help: "Emergency reconciliations triggered by failed draws, by outcome.",
	}, []string{"outcome"})

	WinRecordTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lottery_win_record_total",
		Help: "Win record persistence attempts by outcome (saved, failed, dropped).",
	}, []string{"outcome"})
)

func Init() {
	prometheus.MustRegister(
		DrawTotal,
		DrawLatency,
		StockRaceLost,
		SyncChanges,
		EmergencySyncTotal,
		WinRecordTotal,
	)
}
