package ufs2

import "github.com/prometheus/client_golang/prometheus"

// metrics are Engine's optional prometheus counters (spec §2 DOMAIN STACK:
// client_golang). They are created lazily by WithMetrics and stay nil
// (no-op) otherwise, so a plain Open never pays for a registerer.
type metrics struct {
	ops      *prometheus.CounterVec
	errors   *prometheus.CounterVec
	allocs   prometheus.Counter
	frees    prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ufs2_ops_total",
			Help: "UFS2 engine operations by name.",
		}, []string{"op"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ufs2_errors_total",
			Help: "UFS2 engine operations that returned an error, by op and errno.",
		}, []string{"op", "errno"}),
		allocs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ufs2_block_allocs_total",
			Help: "Blocks and fragments allocated.",
		}),
		frees: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ufs2_block_frees_total",
			Help: "Blocks and fragments freed.",
		}),
	}
	for _, c := range []prometheus.Collector{m.ops, m.errors, m.allocs, m.frees} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *metrics) observeOp(op string, err error) {
	if m == nil {
		return
	}
	m.ops.WithLabelValues(op).Inc()
	if err != nil {
		m.errors.WithLabelValues(op, errnoOf(err).Error()).Inc()
	}
}
