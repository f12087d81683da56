package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the prometheus collectors of the ledger core
// 台帳コアのprometheusコレクターを保持
type Metrics struct {
	MovementsRecorded *prometheus.CounterVec // タイプ別の記録済み移動数
	StockRejections   prometheus.Counter     // 在庫不足で拒否された移動数
	AlertsCreated     prometheus.Counter     // 作成されたリオーダーアラート数
	AlertConflicts    prometheus.Counter     // 重複により拒否されたアラート作成数
}

// NewMetrics creates and registers the ledger collectors
// 台帳コレクターを作成して登録
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		MovementsRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "zairyo",
			Subsystem: "ledger",
			Name:      "movements_recorded_total",
			Help:      "Number of stock movements recorded, by movement type.",
		}, []string{"type"}),
		StockRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "zairyo",
			Subsystem: "ledger",
			Name:      "insufficient_stock_total",
			Help:      "Number of movements rejected because stock would go negative.",
		}),
		AlertsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "zairyo",
			Subsystem: "alerts",
			Name:      "created_total",
			Help:      "Number of reorder alerts created.",
		}),
		AlertConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "zairyo",
			Subsystem: "alerts",
			Name:      "conflicts_total",
			Help:      "Number of reorder alert creations rejected as duplicates.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.MovementsRecorded, m.StockRejections, m.AlertsCreated, m.AlertConflicts)
	}

	return m
}

// 以下のヘルパーはメトリクス未設定（nil）でも安全に呼び出せる

func (m *Metrics) movementRecorded(t MovementType) {
	if m == nil {
		return
	}
	m.MovementsRecorded.WithLabelValues(string(t)).Inc()
}

func (m *Metrics) stockRejected() {
	if m == nil {
		return
	}
	m.StockRejections.Inc()
}

func (m *Metrics) alertCreated() {
	if m == nil {
		return
	}
	m.AlertsCreated.Inc()
}

func (m *Metrics) alertConflicted() {
	if m == nil {
		return
	}
	m.AlertConflicts.Inc()
}
