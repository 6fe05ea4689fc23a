package mainboilerplate

import (
	_ "expvar" // Import for /debug/vars
	"net/http"
	_ "net/http/pprof" // Import for /debug/pprof
	"runtime/debug"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// DiagnosticsConfig configures pull-based application metrics, debugging and diagnostics.
type DiagnosticsConfig struct {
	Address string `long:"address" env:"ADDRESS" description:"Address to serve metrics & debugging endpoints on, eg ':8080'. Disabled if empty"`
}

// InitDiagnosticsAndRecover enables serving of metrics and debugging services
// registered on the default HTTPMux. If an Address is configured, the mux is
// served on it. It also returns a closure which should be deferred, which
// logs a recovered panic before re-raising it.
func InitDiagnosticsAndRecover(cfg DiagnosticsConfig) func() {
	registerDiagnostics.Do(func() {
		// Package "net/http/pprof" serves /debug/pprof/.
		// Package "expvar" serves /debug/vars

		// Serve a liveness check at /debug/ready.
		http.HandleFunc("/debug/ready", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		// Serve Prometheus metrics at /debug/metrics.
		http.Handle("/debug/metrics", promhttp.Handler())
	})

	if cfg.Address != "" {
		go func() {
			if err := http.ListenAndServe(cfg.Address, nil); err != nil {
				log.WithFields(log.Fields{"err": err, "address": cfg.Address}).
					Warn("diagnostics server exited")
			}
		}()
		log.WithField("address", cfg.Address).Debug("serving diagnostics")
	}
	return logPanic
}

// logPanic recovers a panic, logs it with its stack, and re-raises it.
func logPanic() {
	if r := recover(); r != nil {
		log.WithFields(log.Fields{
			"panic": r,
			"stack": string(debug.Stack()),
		}).Error("unrecovered panic")
		panic(r)
	}
}

// Must panics if |err| is non-nil, supplying |msg| and |extra| as
// formatter and fields of the generated panic.
func Must(err error, msg string, extra ...interface{}) {
	if err == nil {
		return
	}
	var f = log.Fields{"err": err}
	for i := 0; i+1 < len(extra); i += 2 {
		f[extra[i].(string)] = extra[i+1]
	}
	log.WithFields(f).Panic(msg)
}

var registerDiagnostics sync.Once
