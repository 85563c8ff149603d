package main

import (
	"fmt"
	"log"
	"net/http"
	"net/http/pprof"
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Bren2010/notetree/notify"
	"github.com/Bren2010/notetree/tree/accumulator"
	"github.com/Bren2010/notetree/tree/incremental"
)

var (
	Version   = "dev"
	GoVersion = runtime.Version()
)

var (
	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "build_info",
			Help: "A metric with a constant '1' value labeled by version, and goversion.",
		},
		[]string{"version", "goversion"},
	)
	insertOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insert_operations",
			Help: "Incremented for each insert operation, labeled by success or failure.",
		},
		[]string{"success"},
	)
	insertDur = prometheus.NewSummary(
		prometheus.SummaryOpts{
			Name: "insert_duration",
			Help: "Summary of how long an insert operation takes to complete.",
		},
	)
	requestCtr = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "requests",
			Help: "Incremented for each API request received.",
		},
		[]string{"path", "status"},
	)
)

func init() {
	buildInfo.WithLabelValues(Version, GoVersion).Set(1)
	prometheus.MustRegister(buildInfo, insertOps, insertDur, requestCtr)
}

// treeMetrics registers the gauges that track how full a tree of the given
// height is. The returned observer must be passed to accumulator.Open.
func treeMetrics(reg prometheus.Registerer, levels int) *notify.Metrics {
	return notify.NewMetrics(reg, incremental.Capacity(levels))
}

// metricsHandler returns the handler of the metrics and debugging server.
func metricsHandler(acc *accumulator.Accumulator) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(rw http.ResponseWriter, req *http.Request) {
		if req.URL.Path == "/" {
			fmt.Fprintln(rw, "notetree metrics and debugging server")
		} else {
			rw.WriteHeader(404)
			fmt.Fprintln(rw, "404 not found")
		}
	})
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/debug/tree", func(rw http.ResponseWriter, req *http.Request) {
		fmt.Fprintf(rw, "suite=%v levels=%v capacity=%v size=%v full=%v root=%v\n",
			acc.Suite().Name(), acc.Levels(), acc.Capacity(), acc.Size(), acc.Full(), acc.Root())
	})

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	mux.HandleFunc("/debug/version", func(w http.ResponseWriter, req *http.Request) {
		fmt.Fprintf(w, "Version: %s, GoVersion: %s", Version, GoVersion)
	})
	return mux
}

func metrics(addr string, acc *accumulator.Accumulator) {
	srv := &http.Server{
		Addr:    addr,
		Handler: metricsHandler(acc),
	}
	log.Printf("Starting metrics server at: %v", addr)
	log.Fatal(srv.ListenAndServe())
}
