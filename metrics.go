package nftkit

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector exports a ledger's supply and mutation metrics to Prometheus.
type Collector struct {
	ledger *TokenLedger

	supply    *prometheus.Desc
	mutations *prometheus.Desc
	denied    *prometheus.Desc
	minted    *prometheus.Desc
	avgDur    *prometheus.Desc
	maxDur    *prometheus.Desc
}

// NewCollector creates a collector for ledger. Register it with
// prometheus.MustRegister or a custom registry.
func NewCollector(ledger *TokenLedger) *Collector {
	labels := prometheus.Labels{"collection": ledger.Name(), "symbol": ledger.Symbol()}
	return &Collector{
		ledger: ledger,
		supply: prometheus.NewDesc("nftkit_total_supply",
			"Number of tokens minted.", nil, labels),
		mutations: prometheus.NewDesc("nftkit_mutations_total",
			"Mutating calls by outcome.", []string{"outcome"}, labels),
		denied: prometheus.NewDesc("nftkit_denied_mutations_total",
			"Mutating calls rejected by the role check.", nil, labels),
		minted: prometheus.NewDesc("nftkit_tokens_minted_total",
			"Tokens minted since the last reset.", nil, labels),
		avgDur: prometheus.NewDesc("nftkit_mutation_duration_avg_seconds",
			"Average duration of mutating calls.", nil, labels),
		maxDur: prometheus.NewDesc("nftkit_mutation_duration_max_seconds",
			"Longest mutating call.", nil, labels),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.supply
	ch <- c.mutations
	ch <- c.denied
	ch <- c.minted
	ch <- c.avgDur
	ch <- c.maxDur
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	m := c.ledger.Monitor().Metrics()

	ch <- prometheus.MustNewConstMetric(c.supply, prometheus.GaugeValue, float64(c.ledger.TotalSupply()))
	ch <- prometheus.MustNewConstMetric(c.mutations, prometheus.CounterValue, float64(m.SuccessfulMutations), "success")
	ch <- prometheus.MustNewConstMetric(c.mutations, prometheus.CounterValue, float64(m.DeniedMutations), "denied")
	ch <- prometheus.MustNewConstMetric(c.mutations, prometheus.CounterValue, float64(m.RejectedMutations), "rejected")
	ch <- prometheus.MustNewConstMetric(c.mutations, prometheus.CounterValue, float64(m.FailedMutations), "failure")
	ch <- prometheus.MustNewConstMetric(c.denied, prometheus.CounterValue, float64(m.DeniedMutations))
	ch <- prometheus.MustNewConstMetric(c.minted, prometheus.CounterValue, float64(m.TokensMinted))
	ch <- prometheus.MustNewConstMetric(c.avgDur, prometheus.GaugeValue, m.AverageDuration.Seconds())
	ch <- prometheus.MustNewConstMetric(c.maxDur, prometheus.GaugeValue, m.MaxDuration.Seconds())
}
