// Package metrics exposes market observations as Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zappabad/coinsim/internal/market/core"
)

const namespace = "coinsim"

// Recorder holds every collector on a private registry.
type Recorder struct {
	registry *prometheus.Registry

	commands    *prometheus.CounterVec
	events      *prometheus.CounterVec
	dropped     prometheus.Counter
	price       *prometheus.GaugeVec
	circulation *prometheus.GaugeVec
	holdings    *prometheus.GaugeVec
	cash        prometheus.Gauge
	tick        prometheus.Gauge
}

// NewRecorder creates a Recorder with Go runtime and process collectors.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Market commands processed, by command and outcome.",
		}, []string{"command", "outcome"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Market events published, by kind.",
		}, []string{"kind"}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscriber_dropped_events_total",
			Help:      "Events dropped on slow subscribers.",
		}),
		price: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "asset_price_usd",
			Help:      "Current asset price.",
		}, []string{"symbol"}),
		circulation: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "asset_circulation",
			Help:      "Units available to buy.",
		}, []string{"symbol"}),
		holdings: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "player_holdings",
			Help:      "Units owned by the player.",
		}, []string{"symbol"}),
		cash: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "player_cash_usd",
			Help:      "Player cash balance.",
		}),
		tick: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ticks",
			Help:      "Ticks since the last reset.",
		}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.commands, r.events, r.dropped,
		r.price, r.circulation, r.holdings, r.cash, r.tick,
	)
	return r
}

// ObserveCommand counts a processed command.
func (r *Recorder) ObserveCommand(kind string, err error) {
	r.commands.WithLabelValues(kind, core.ErrorCode(err)).Inc()
}

// ObserveEvents counts published events by kind.
func (r *Recorder) ObserveEvents(events []core.Event) {
	for _, ev := range events {
		r.events.WithLabelValues(core.EventKind(ev)).Inc()
	}
}

// ObserveState sets the market and portfolio gauges.
func (r *Recorder) ObserveState(st core.State) {
	for sym, a := range st.Assets {
		r.price.WithLabelValues(string(sym)).Set(a.Price)
		r.circulation.WithLabelValues(string(sym)).Set(a.Circulation)
	}
	for sym, q := range st.Portfolio {
		r.holdings.WithLabelValues(string(sym)).Set(q)
	}
	r.cash.Set(st.Cash)
	r.tick.Set(float64(st.Tick))
}

// ObserveDropped counts events lost on slow subscribers.
func (r *Recorder) ObserveDropped(n int) {
	r.dropped.Add(float64(n))
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
