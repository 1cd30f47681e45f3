// Package metrics exposes Prometheus collectors for the quest orchestrator.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "quesster"

// Metrics 编排器指标；nil *Metrics 的所有方法均为空操作
type Metrics struct {
	transitions    *prometheus.CounterVec
	submissions    *prometheus.CounterVec
	pollAttempts   *prometheus.CounterVec
	confirmSeconds *prometheus.HistogramVec
	reconciliation *prometheus.CounterVec
}

// New 创建并注册指标；reg 为 nil 时注册到默认 registry
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orchestrator_transitions_total",
			Help:      "State machine transitions by source and target state.",
		}, []string{"from", "to"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transaction_submissions_total",
			Help:      "Transaction submissions by intent kind and result.",
		}, []string{"kind", "result"}),
		pollAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "allowance_poll_attempts_total",
			Help:      "Allowance reads made while waiting for an approval.",
		}, []string{"result"}),
		confirmSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transaction_confirmation_seconds",
			Help:      "Time from submission to a final receipt.",
			Buckets:   []float64{1, 2, 5, 10, 20, 40, 80, 180},
		}, []string{"kind", "status"}),
		reconciliation: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciliation_warnings_total",
			Help:      "Confirmed on-chain actions whose off-chain write failed.",
		}, []string{"kind"}),
	}
	reg.MustRegister(m.transitions, m.submissions, m.pollAttempts, m.confirmSeconds, m.reconciliation)
	return m
}

// Transition 记录状态迁移
func (m *Metrics) Transition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

// Submission 记录提交结果（result: sent / rejected / failed ...）
func (m *Metrics) Submission(kind, result string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(kind, result).Inc()
}

// PollAttempt 记录一次 allowance 查询
func (m *Metrics) PollAttempt(result string) {
	if m == nil {
		return
	}
	m.pollAttempts.WithLabelValues(result).Inc()
}

// Confirmation 记录确认耗时
func (m *Metrics) Confirmation(kind, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.confirmSeconds.WithLabelValues(kind, status).Observe(elapsed.Seconds())
}

// Reconciliation 记录对账告警
func (m *Metrics) Reconciliation(kind string) {
	if m == nil {
		return
	}
	m.reconciliation.WithLabelValues(kind).Inc()
}
