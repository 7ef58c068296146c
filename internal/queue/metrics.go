package queue

import "github.com/prometheus/client_golang/prometheus"

var (
	TasksEnqueuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_tasks_enqueued_total",
			Help: "Total tasks enqueued grouped by type and outcome",
		},
		[]string{"type", "status"},
	)
	TasksProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_tasks_processed_total",
			Help: "Total tasks processed by the worker grouped by type and outcome",
		},
		[]string{"type", "status"},
	)
)

func init() {
	prometheus.MustRegister(TasksEnqueuedTotal, TasksProcessedTotal)
}
