// Package metrics exposes the server's Prometheus instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ConnectedClients tracks the number of joined connections.
	ConnectedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "lanchat",
		Name:      "connected_clients",
		Help:      "Number of clients currently joined to the chatroom",
	})

	// MessagesTotal counts messages fanned out to the room.
	MessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lanchat",
		Name:      "messages_total",
		Help:      "Total chat messages broadcast by the server",
	})

	// JoinsRejected counts joins refused for a username collision.
	JoinsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lanchat",
		Name:      "joins_rejected_total",
		Help:      "Total join requests rejected because the username was taken",
	})
)

// Serve blocks serving the /metrics endpoint on addr.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}
