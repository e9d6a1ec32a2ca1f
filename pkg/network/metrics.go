package network

import "github.com/prometheus/client_golang/prometheus"

// Named gauges/counters emitted by the peer book and connection manager.
// Nothing in this package reads them back; they are write-only, as is
// conventional for a process-wide metrics sink.
var (
	connectionsConnecting = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "snarkos",
		Name:      "connections_connecting",
		Help:      "Number of peers currently in the connecting state.",
	})
	connectionsConnected = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "snarkos",
		Name:      "connections_connected",
		Help:      "Number of peers currently connected.",
	})
	connectionsDisconnected = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "snarkos",
		Name:      "connections_disconnected",
		Help:      "Number of known but currently disconnected peers.",
	})
	connectionsAllInitiated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "snarkos",
		Name:      "connections_all_initiated",
		Help:      "Total number of outbound connection attempts initiated.",
	})
	handshakesSuccessesInit = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "snarkos",
		Name:      "handshakes_successes_init",
		Help:      "Total number of successful initiator-side handshakes.",
	})
	handshakesFailuresInit = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "snarkos",
		Name:      "handshakes_failures_init",
		Help:      "Total number of failed initiator-side handshakes.",
	})
	handshakesTimeoutsInit = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "snarkos",
		Name:      "handshakes_timeouts_init",
		Help:      "Total number of initiator-side handshakes that timed out.",
	})
	handshakesSuccessesResp = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "snarkos",
		Name:      "handshakes_successes_resp",
		Help:      "Total number of successful responder-side handshakes.",
	})
	handshakesFailuresResp = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "snarkos",
		Name:      "handshakes_failures_resp",
		Help:      "Total number of failed responder-side handshakes.",
	})
	handshakesTimeoutsResp = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "snarkos",
		Name:      "handshakes_timeouts_resp",
		Help:      "Total number of responder-side handshakes that timed out.",
	})
	connectionsAllAccepted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "snarkos",
		Name:      "connections_all_accepted",
		Help:      "Total number of inbound connections accepted at the socket level.",
	})
)

func init() {
	prometheus.MustRegister(
		connectionsConnecting,
		connectionsConnected,
		connectionsDisconnected,
		connectionsAllInitiated,
		connectionsAllAccepted,
		handshakesSuccessesInit,
		handshakesFailuresInit,
		handshakesTimeoutsInit,
		handshakesSuccessesResp,
		handshakesFailuresResp,
		handshakesTimeoutsResp,
	)
}
