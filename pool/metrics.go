package pool

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes pool-level gauges for scraping, giving the teacher's
// prometheus/client_golang dependency a home in the accounting core (the
// teacher repo only imports it for node/consensus metrics; spec.md's
// reserve/auction/emissions surfaces are a natural fit for the same
// instrumentation style).
type Metrics struct {
	Utilization    *prometheus.GaugeVec
	BorrowRate     *prometheus.GaugeVec
	AuctionCount   prometheus.Gauge
	EmissionsIndex *prometheus.GaugeVec
}

// NewMetrics registers and returns the pool's gauges against reg.
func NewMetrics(reg prometheus.Registerer, poolLabel string) *Metrics {
	constLabels := prometheus.Labels{"pool": poolLabel}
	m := &Metrics{
		Utilization: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   "lendpool",
			Name:        "reserve_utilization",
			Help:        "Current utilization ratio (borrowed/supplied) per reserve index.",
			ConstLabels: constLabels,
		}, []string{"reserve"}),
		BorrowRate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   "lendpool",
			Name:        "reserve_borrow_rate",
			Help:        "Current per-second borrow interest rate per reserve index, ir_mod applied.",
			ConstLabels: constLabels,
		}, []string{"reserve"}),
		AuctionCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "lendpool",
			Name:        "auctions_in_progress",
			Help:        "Number of currently open auctions of any kind.",
			ConstLabels: constLabels,
		}),
		EmissionsIndex: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   "lendpool",
			Name:        "emissions_index",
			Help:        "Cumulative emitted-per-share index per token_id.",
			ConstLabels: constLabels,
		}, []string{"token_id"}),
	}
	reg.MustRegister(m.Utilization, m.BorrowRate, m.AuctionCount, m.EmissionsIndex)
	return m
}

// Observe updates the reserve-scoped gauges for r.
func (m *Metrics) Observe(r *Reserve) {
	label := prometheus.Labels{"reserve": strconv.FormatUint(uint64(r.Config.Index), 10)}

	u := r.Utilization()
	uf, _ := u.Float64()
	m.Utilization.With(label).Set(uf)

	curIR := r.Config.curveRate(u)
	irModRat := ratFromScaledInt(r.Data.IRMod, RateScalar)
	ir := curIR.Mul(curIR, irModRat)
	irf, _ := ir.Float64()
	m.BorrowRate.With(label).Set(irf)
}

// SetAuctionCount sets the open-auction gauge.
func (m *Metrics) SetAuctionCount(n int) {
	m.AuctionCount.Set(float64(n))
}

// ObserveEmissionsIndex records a token_id's cumulative emissions index.
func (m *Metrics) ObserveEmissionsIndex(tokenID uint64, index float64) {
	m.EmissionsIndex.With(prometheus.Labels{"token_id": strconv.FormatUint(tokenID, 10)}).Set(index)
}
