package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "habitbot"

var (
	// 定时任务执行次数
	JobRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Scheduled job executions by outcome",
		},
		[]string{"job", "status"}, // status: success, error, panic
	)

	// 定时任务耗时（秒）
	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Scheduled job duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		},
		[]string{"job"},
	)

	// 因重复时间槽被跳过的任务
	JobSlotsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_slots_skipped_total",
			Help:      "Job firings skipped because the slot was already claimed",
		},
		[]string{"job"},
	)

	// 通知投递计数
	NotificationsDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_delivered_total",
			Help:      "Notifications handed to a delivery channel",
		},
		[]string{"channel", "status"}, // channel: telegram, outbox; status: success, failed
	)

	// 习惯打卡计数
	HabitCompletions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "habit_completions_total",
			Help:      "Mark-done attempts by result",
		},
		[]string{"result"}, // result: recorded, duplicate
	)

	// 清理的过期笔记
	NotesCleaned = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notes_cleaned_total",
			Help:      "Notes removed by the retention cleanup",
		},
	)

	// 慢查询计数
	SlowQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "db_slow_queries_total",
			Help:      "Queries slower than the configured threshold",
		},
		[]string{"sql"},
	)

	// 慢查询耗时（秒）
	SlowQueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "db_slow_query_duration_seconds",
			Help:      "Duration of slow queries in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 8), // 100ms to ~12s
		},
	)

	// HTTP 请求延迟（秒）
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// 机器人收到的更新
	BotUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bot_updates_total",
			Help:      "Chat updates handled by kind",
		},
		[]string{"kind"}, // kind: command, text, callback, ignored
	)
)

// RecordJobRun 记录一次任务执行
func RecordJobRun(job, status string, duration time.Duration) {
	JobRuns.WithLabelValues(job, status).Inc()
	JobDuration.WithLabelValues(job).Observe(duration.Seconds())
}

// IncrementSlotSkipped 记录一次被跳过的时间槽
func IncrementSlotSkipped(job string) {
	JobSlotsSkipped.WithLabelValues(job).Inc()
}

// IncrementDelivered 记录通知投递结果
func IncrementDelivered(channel, status string) {
	NotificationsDelivered.WithLabelValues(channel, status).Inc()
}

// IncrementHabitCompletion 记录打卡结果
func IncrementHabitCompletion(recorded bool) {
	if recorded {
		HabitCompletions.WithLabelValues("recorded").Inc()
		return
	}
	HabitCompletions.WithLabelValues("duplicate").Inc()
}

// AddNotesCleaned 累加清理数量
func AddNotesCleaned(n int64) {
	if n > 0 {
		NotesCleaned.Add(float64(n))
	}
}

// IncrementSlowQuery 记录慢查询
func IncrementSlowQuery(sql string, duration time.Duration) {
	SlowQueries.WithLabelValues(sql).Inc()
	SlowQueryDuration.Observe(duration.Seconds())
}

// RecordHTTPRequestDuration 记录 HTTP 请求延迟
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// IncrementBotUpdate 记录收到的更新
func IncrementBotUpdate(kind string) {
	BotUpdates.WithLabelValues(kind).Inc()
}
