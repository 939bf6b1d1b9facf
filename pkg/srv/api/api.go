/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"jinr.ru/greenlab/go-rda/pkg/config"
	"jinr.ru/greenlab/go-rda/pkg/log"
	"jinr.ru/greenlab/go-rda/pkg/rda"
	"jinr.ru/greenlab/go-rda/pkg/srv/session"
	"jinr.ru/greenlab/go-rda/pkg/srv/state"
)

type Persist struct {
	Dir        string `json:"dir"`
	FilePrefix string `json:"file_prefix"`
}

type PersistResult struct {
	Filename string `json:"filename"`
}

// Session is the part of a session the API reports on
type Session interface {
	Status() session.Status
	Table() *rda.ChannelTable
}

// Persister rotates and closes save files
type Persister interface {
	Persist(dir, prefix string) (string, error)
	Flush() error
}

type GapStore interface {
	GetGaps(limit int) ([]*state.GapRecord, error)
}

// TableStore keeps the channel table of the last acquisition across restarts
type TableStore interface {
	GetChannelTable() (*rda.ChannelTable, time.Time, error)
}

// StoredTableHeader carries the time a stored channel table was received
const StoredTableHeader = "X-Channel-Table-Stored"

type ApiServer struct {
	context.Context
	*config.Config
	*mux.Router

	session   Session
	publisher *rda.Publisher
	persister Persister
	gaps      GapStore
	tables    TableStore
	hub       *Hub
	gatherer  prometheus.Gatherer
}

type Option func(*ApiServer)

func WithPersister(p Persister) Option {
	return func(s *ApiServer) { s.persister = p }
}

func WithGapStore(g GapStore) Option {
	return func(s *ApiServer) { s.gaps = g }
}

func WithTableStore(t TableStore) Option {
	return func(s *ApiServer) { s.tables = t }
}

func WithHub(h *Hub) Option {
	return func(s *ApiServer) { s.hub = h }
}

func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *ApiServer) { s.gatherer = g }
}

func NewApiServer(ctx context.Context, cfg *config.Config, sess Session, publisher *rda.Publisher, opts ...Option) *ApiServer {
	log.Info("Initializing API server with address: %s", cfg.Api.Endpoint())
	s := &ApiServer{
		Context:   ctx,
		Config:    cfg,
		session:   sess,
		publisher: publisher,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.configureRouter()
	return s
}

// Handler is the router wrapped with access logging and panic recovery
func (s *ApiServer) Handler() http.Handler {
	return handlers.LoggingHandler(log.Writer(),
		handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{}))(s.Router))
}

// Run serves until the context is done
func (s *ApiServer) Run() error {
	log.Debug("Starting API server: address: %s", s.Config.Api.Endpoint())
	httpServer := &http.Server{
		Handler:           s.Handler(),
		Addr:              s.Config.Api.Endpoint(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-s.Context.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(ctx)
	}()
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *ApiServer) configureRouter() {
	s.Router = mux.NewRouter()
	subRouter := s.Router.PathPrefix("/api").Subrouter()
	subRouter.HandleFunc("/status", s.handleStatus()).Methods("GET")
	subRouter.HandleFunc("/index", s.handleIndex()).Methods("GET")
	subRouter.HandleFunc("/channels", s.handleChannels()).Methods("GET")
	subRouter.HandleFunc("/gaps", s.handleGaps()).Methods("GET")
	subRouter.HandleFunc("/persist", s.handlePersist()).Methods("POST")
	subRouter.HandleFunc("/flush", s.handleFlush()).Methods("GET")
	if s.hub != nil {
		subRouter.Handle("/live", s.hub).Methods("GET")
	}
	if s.gatherer != nil {
		s.Router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods("GET")
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Error while encoding response: %s", err)
	}
}

func (s *ApiServer) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Handling status request")
		writeJSON(w, s.session.Status())
	}
}

func (s *ApiServer) handleIndex() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, s.publisher.Load())
	}
}

func (s *ApiServer) handleChannels() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Handling channels request")
		table := s.session.Table()
		if table == nil && s.tables != nil {
			stored, at, err := s.tables.GetChannelTable()
			if err == nil {
				w.Header().Set(StoredTableHeader, at.UTC().Format(time.RFC3339))
				writeJSON(w, stored)
				return
			}
			var notFound state.ErrNotFound
			if !errors.As(err, &notFound) {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
		}
		if table == nil {
			http.Error(w, "no start message received yet", http.StatusNotFound)
			return
		}
		writeJSON(w, table)
	}
}

func (s *ApiServer) handleGaps() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Handling gaps request")
		if s.gaps == nil {
			http.Error(w, "gap journal is disabled", http.StatusNotFound)
			return
		}
		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			var err error
			if limit, err = strconv.Atoi(v); err != nil || limit < 0 {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
		}
		gaps, err := s.gaps.GetGaps(limit)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if gaps == nil {
			gaps = []*state.GapRecord{}
		}
		writeJSON(w, gaps)
	}
}

func (s *ApiServer) handlePersist() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.persister == nil {
			http.Error(w, "save path is disabled", http.StatusNotFound)
			return
		}
		persist := &Persist{}
		err := json.NewDecoder(r.Body).Decode(persist)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		log.Debug("Handling persist request: dir: %s filePrefix: %s", persist.Dir, persist.FilePrefix)

		filename, err := s.persister.Persist(persist.Dir, persist.FilePrefix)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		writeJSON(w, &PersistResult{Filename: filename})
	}
}

func (s *ApiServer) handleFlush() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Handling flush request")
		if s.persister == nil {
			http.Error(w, "save path is disabled", http.StatusNotFound)
			return
		}
		if err := s.persister.Flush(); err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
		}
	}
}

type recoveryLogger struct{}

func (recoveryLogger) Println(v ...interface{}) {
	log.Error("API handler panic: %v", v)
}
