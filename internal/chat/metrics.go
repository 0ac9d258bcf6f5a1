package chat

import "github.com/prometheus/client_golang/prometheus"

var (
	ConnectedSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chatapp_connected_sessions",
		Help: "Number of currently open transport connections",
	})

	OnlineUsers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chatapp_online_users",
		Help: "Number of users past the join handshake",
	})

	EventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chatapp_events_total",
		Help: "Total registry events processed by type",
	}, []string{"type"})

	EventProcessingDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chatapp_event_processing_seconds",
		Help:    "Time to process each registry event type",
		Buckets: prometheus.DefBuckets,
	}, []string{"type"})

	DroppedLines = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chatapp_dropped_lines_total",
		Help: "Outbound lines dropped because a client's buffer was full",
	})

	HistoryLength = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chatapp_history_messages",
		Help: "Messages held in the replayable chat history",
	})

	AckEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chatapp_ack_entries",
		Help: "Message id to sender entries held for ack correlation",
	})
)

func init() {
	prometheus.MustRegister(ConnectedSessions)
	prometheus.MustRegister(OnlineUsers)
	prometheus.MustRegister(EventsTotal)
	prometheus.MustRegister(EventProcessingDuration)
	prometheus.MustRegister(DroppedLines)
	prometheus.MustRegister(HistoryLength)
	prometheus.MustRegister(AckEntries)
}
