package server

import (
	"fmt"
	"time"

	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/VictoriaMetrics/metrics"
)

// serverMetrics holds the metrics exposed on the admin endpoint.
// Every server owns its own set so several servers can live in one process.
type serverMetrics struct {
	set *metrics.Set

	connectionsAccepted *metrics.Counter
	handshakeFailures   *metrics.Counter
	connectOK           *metrics.Counter
	connectRejected     *metrics.Counter
	connectTaken        *metrics.Counter
	rateLimited         *metrics.Counter
	invalidRequests     *metrics.Counter
	internalErrors      *metrics.Counter
	commandDuration     *metrics.Histogram
}

func newServerMetrics(s *Server) *serverMetrics {
	set := metrics.NewSet()

	set.NewGauge("skv_sessions_active", func() float64 {
		return float64(s.registry.Len())
	})
	set.NewGauge("skv_store_keys", func() float64 {
		return float64(s.store.Len())
	})
	set.NewGauge("skv_ratelimit_tracked_identities", func() float64 {
		return float64(s.limiter.Len())
	})

	return &serverMetrics{
		set:                 set,
		connectionsAccepted: set.NewCounter("skv_connections_accepted_total"),
		handshakeFailures:   set.NewCounter("skv_handshake_failures_total"),
		connectOK:           set.NewCounter(`skv_connect_total{result="ok"}`),
		connectRejected:     set.NewCounter(`skv_connect_total{result="error"}`),
		connectTaken:        set.NewCounter(`skv_connect_total{result="taken"}`),
		rateLimited:         set.NewCounter("skv_rate_limited_total"),
		invalidRequests:     set.NewCounter("skv_invalid_requests_total"),
		internalErrors:      set.NewCounter("skv_internal_errors_total"),
		commandDuration:     set.NewHistogram("skv_command_duration_seconds"),
	}
}

// observeCommand counts cmd by verb and records how long it took.
// Unknown verbs are counted as "other" to keep the label set bounded.
func (m *serverMetrics) observeCommand(verb common.Verb, start time.Time) {
	label := "other"
	switch verb {
	case common.VerbPut, common.VerbGet, common.VerbDelete, common.VerbDisconnect:
		label = string(verb)
	}
	m.set.GetOrCreateCounter(fmt.Sprintf(`skv_commands_total{verb=%q}`, label)).Inc()
	m.commandDuration.UpdateDuration(start)
}
