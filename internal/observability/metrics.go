package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Session metrics
	sessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transcriber_sessions_started_total",
		Help: "Total number of successfully started transcription sessions",
	})

	sessionActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "transcriber_session_active",
		Help: "1 while a transcription session is running",
	})

	sessionStops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transcriber_session_stops_total",
		Help: "Total number of session stops by reason",
	}, []string{"reason"})

	transcriptWords = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "transcriber_transcript_words",
		Help: "Word count of the current transcript",
	})

	// Recognition metrics
	recognitionErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transcriber_recognition_errors_total",
		Help: "Total number of recognition errors by kind",
	}, []string{"kind"})

	recognitionRestarts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transcriber_recognition_restarts_total",
		Help: "Recognition restarts by outcome (scheduled, started, failed, cancelled)",
	}, []string{"outcome"})

	finalSegments = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transcriber_final_segments_total",
		Help: "Total number of final segments appended to the transcript",
	})

	// Connectivity metrics
	connectivityChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transcriber_connectivity_checks_total",
		Help: "Connectivity checks by result (online, offline, fallback)",
	}, []string{"result"})

	connectivityOnline = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "transcriber_connectivity_online",
		Help: "Last known connectivity state (1=online)",
	})

	// Audio metrics
	audioBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transcriber_audio_bytes_total",
		Help: "Total audio bytes delivered to the recognizer",
	}, []string{"source"}) // source: "file" or "capture"

	decodeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "transcriber_decode_duration_seconds",
		Help:    "Time spent decoding uploaded media",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	})

	// UI metrics
	wsClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "transcriber_ws_clients",
		Help: "Number of connected UI websocket clients",
	})

	notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transcriber_notifications_total",
		Help: "Notifications sent to the UI by level",
	}, []string{"level"})
)

// RecordSessionStart records a successful session start
func RecordSessionStart() {
	sessionsStarted.Inc()
	sessionActive.Set(1)
}

// RecordSessionStop records a transition out of the running state
func RecordSessionStop(reason string) {
	sessionActive.Set(0)
	sessionStops.WithLabelValues(reason).Inc()
}

// SetTranscriptWords updates the transcript word gauge
func SetTranscriptWords(n int) {
	transcriptWords.Set(float64(n))
}

// RecordRecognitionError records a recognition error by kind
func RecordRecognitionError(kind string) {
	recognitionErrors.WithLabelValues(kind).Inc()
}

// RecordRestart records a restart lifecycle step
func RecordRestart(outcome string) {
	recognitionRestarts.WithLabelValues(outcome).Inc()
}

// RecordFinalSegments adds appended final segments
func RecordFinalSegments(n int) {
	finalSegments.Add(float64(n))
}

// RecordConnectivityCheck records a probe result
func RecordConnectivityCheck(result string) {
	connectivityChecks.WithLabelValues(result).Inc()
}

// SetOnline updates the last known connectivity gauge
func SetOnline(online bool) {
	if online {
		connectivityOnline.Set(1)
		return
	}
	connectivityOnline.Set(0)
}

// RecordAudioBytes records audio bytes delivered to the recognizer
func RecordAudioBytes(source string, bytes int) {
	audioBytes.WithLabelValues(source).Add(float64(bytes))
}

// ObserveDecode records a media decode duration in seconds
func ObserveDecode(seconds float64) {
	decodeDuration.Observe(seconds)
}

// ClientConnected increments the websocket client gauge
func ClientConnected() {
	wsClients.Inc()
}

// ClientDisconnected decrements the websocket client gauge
func ClientDisconnected() {
	wsClients.Dec()
}

// RecordNotification counts a UI notification
func RecordNotification(level string) {
	notifications.WithLabelValues(level).Inc()
}
