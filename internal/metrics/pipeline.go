package metrics

import "github.com/prometheus/client_golang/prometheus"

// Pipeline Prometheus metrics.
var (
	CrawlItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crawl_items_total",
			Help:      "Crawled posts by source and outcome",
		},
		[]string{"source", "result"}, // new, skipped, failed
	)

	BookmarkItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookmark_items_total",
			Help:      "Bookmark synthesis outcomes",
		},
		[]string{"result"}, // created, skipped, failed
	)

	IndexItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_items_total",
			Help:      "Vector index outcomes",
		},
		[]string{"result"}, // saved, skipped, failed
	)

	AnswersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_total",
			Help:      "Answers by confidence tier",
		},
		[]string{"confidence"},
	)

	JobRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Job runs by kind and outcome",
		},
		[]string{"job", "result"}, // completed, skipped
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers crawl, bookmark, index, answer and job metrics.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(CrawlItemsTotal)
	prometheus.MustRegister(BookmarkItemsTotal)
	prometheus.MustRegister(IndexItemsTotal)
	prometheus.MustRegister(AnswersTotal)
	prometheus.MustRegister(JobRunsTotal)
	pipelineMetricsRegistered = true
}
