package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gatherguru"

// Registry is the process-wide metrics registry. Built explicitly instead
// of using the global default so tests can register without collisions.
var Registry = prometheus.NewRegistry()

var buildInfo = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "build_info",
		Help:      "Build information (value is always 1)",
	},
	[]string{"version", "commit"},
)

func init() {
	Registry.MustRegister(buildInfo)
	Registry.MustRegister(collectors.NewGoCollector())
	Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}

// Init records build metadata. Call once at startup.
func Init(version, commit string) {
	buildInfo.WithLabelValues(version, commit).Set(1)
}

// Handler serves the registry for Prometheus scrapes.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
