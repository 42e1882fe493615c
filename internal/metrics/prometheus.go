// Package metrics records allocation outcomes as Prometheus metrics
package metrics

import (
	"github.com/limaJavier/seating/pkg/model"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder observes room outcomes into its own registry
type Recorder struct {
	registry *prometheus.Registry
	duration *prometheus.HistogramVec
	rooms    *prometheus.CounterVec
	students *prometheus.CounterVec
}

func NewRecorder() *Recorder {
	recorder := &Recorder{
		registry: prometheus.NewRegistry(),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "seating",
			Name:      "room_solve_seconds",
			Help:      "Wall-clock time spent solving a room.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"status"}),
		rooms: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "seating",
			Name:      "rooms_total",
			Help:      "Rooms processed by allocation runs, by outcome.",
		}, []string{"status"}),
		students: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "seating",
			Name:      "students_total",
			Help:      "Students handed to room solves, by whether they were seated.",
		}, []string{"result"}),
	}
	recorder.registry.MustRegister(recorder.duration, recorder.rooms, recorder.students)
	return recorder
}

func (recorder *Recorder) ObserveRoom(_ string, outcome model.RoomOutcome) {
	status := string(outcome.Status)
	recorder.rooms.WithLabelValues(status).Inc()
	if outcome.Status == model.StatusSkipped {
		return
	}
	recorder.duration.WithLabelValues(status).Observe(outcome.Duration.Seconds())
	recorder.students.WithLabelValues("seated").Add(float64(outcome.Seated))
	recorder.students.WithLabelValues("unseated").Add(float64(outcome.Requested - outcome.Seated))
}

func (recorder *Recorder) Registry() *prometheus.Registry {
	return recorder.registry
}

// WriteTextfile dumps the metrics in the text format read by the node exporter textfile collector
func (recorder *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, recorder.registry)
}
