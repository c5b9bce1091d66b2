package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 聚合对外暴露的 Prometheus 指标。
type Metrics struct {
	OrdersPlaced      *prometheus.CounterVec
	OrdersFailed      prometheus.Counter
	AutoSells         prometheus.Counter
	TriggersCancelled prometheus.Counter
	ProtectionsRun    prometheus.Counter
	Errors            prometheus.Counter
}

// NewMetrics 在给定注册表上注册全部指标。
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		OrdersPlaced: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "delist_guard",
			Name:      "orders_placed_total",
			Help:      "成功下单数量，按下单路径区分。",
		}, []string{"decision"}),
		OrdersFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "delist_guard",
			Name:      "orders_failed_total",
			Help:      "批量创建中失败的下单数量。",
		}),
		AutoSells: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "delist_guard",
			Name:      "auto_sells_total",
			Help:      "到期市价卖出的持仓数量。",
		}),
		TriggersCancelled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "delist_guard",
			Name:      "triggers_cancelled_total",
			Help:      "防护流程中撤销的触发单数量。",
		}),
		ProtectionsRun: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "delist_guard",
			Name:      "protections_total",
			Help:      "已执行的下架防护次数。",
		}),
		Errors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "delist_guard",
			Name:      "errors_total",
			Help:      "记录到监控的异常数量。",
		}),
	}
}
