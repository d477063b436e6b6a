package main

import (
	"net/http"
	"sync/atomic"

	"github.com/rendis/canopy/internal/panel"
)

// handlerSwitch serves the current root handler and lets a config reload
// replace it without restarting the listener.
type handlerSwitch struct {
	current atomic.Pointer[http.Handler]
}

func newHandlerSwitch(h http.Handler) *handlerSwitch {
	s := &handlerSwitch{}
	s.Swap(h)
	return s
}

func (s *handlerSwitch) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	(*s.current.Load()).ServeHTTP(w, r)
}

// Swap replaces the root handler for subsequent requests.
func (s *handlerSwitch) Swap(h http.Handler) {
	s.current.Store(&h)
}

// rootHandler returns the panel API when enabled, else only the health check.
func (a *app) rootHandler(panelEnabled bool) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok\n"))
	})
	if panelEnabled {
		mux.Handle("/", panel.NewPanelServer(panel.PanelDeps{
			Session:     a.session,
			Hub:         a.hub,
			Journal:     a.journal,
			Maintenance: a.maintenance,
			Logger:      a.logger,
		}).Handler())
	} else {
		mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "panel disabled", http.StatusNotFound)
		})
	}
	return mux
}
