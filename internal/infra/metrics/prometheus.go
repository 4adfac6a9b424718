package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a private registry with the bank's counters.
type Collector struct {
	registry     *prometheus.Registry
	commands     *prometheus.CounterVec
	tickDuration *prometheus.HistogramVec
	tickEvents   *prometheus.CounterVec
	currentDay   prometheus.Gauge
	saves        *prometheus.CounterVec
	saveDuration prometheus.Histogram
	dirtyRecords prometheus.Gauge
}

func New() *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,
		commands: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bank_commands_total",
			Help: "Player commands by name and result code",
		}, []string{"command", "result"}),
		tickDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bank_daily_task_duration_seconds",
			Help:    "Time taken by one daily task run",
			Buckets: prometheus.DefBuckets,
		}, []string{"task"}),
		tickEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bank_daily_events_total",
			Help: "Outcomes of scheduled work (payments, misses, defaults, pauses)",
		}, []string{"task", "event"}),
		currentDay: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bank_game_day",
			Help: "Last in-game day processed by the daily runner",
		}),
		saves: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bank_persist_saves_total",
			Help: "Persist flushes by result",
		}, []string{"result"}),
		saveDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "bank_persist_save_duration_seconds",
			Help:    "Time taken by one persist flush",
			Buckets: prometheus.DefBuckets,
		}),
		dirtyRecords: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bank_persist_dirty_records",
			Help: "Records waiting to be flushed",
		}),
	}
}

func (c *Collector) RecordCommand(command, result string) {
	c.commands.WithLabelValues(command, result).Inc()
}

func (c *Collector) RecordTask(task string, took time.Duration) {
	c.tickDuration.WithLabelValues(task).Observe(took.Seconds())
}

func (c *Collector) RecordTaskEvents(task, event string, n int) {
	if n <= 0 {
		return
	}

	c.tickEvents.WithLabelValues(task, event).Add(float64(n))
}

func (c *Collector) SetDay(day int64) {
	c.currentDay.Set(float64(day))
}

func (c *Collector) RecordSave(took time.Duration, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}

	c.saves.WithLabelValues(result).Inc()
	c.saveDuration.Observe(took.Seconds())
}

func (c *Collector) SetDirty(n int) {
	c.dirtyRecords.Set(float64(n))
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
