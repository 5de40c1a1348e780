package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/gostones/emotion-report/internal/download"
	"github.com/gostones/emotion-report/internal/form"
	"github.com/gostones/emotion-report/internal/gateway"
	"github.com/gostones/emotion-report/internal/reports"
	"github.com/gostones/emotion-report/internal/types"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Backend is the subset of the gateway the web UI needs.
type Backend interface {
	form.Submitter
	reports.Source
	download.Fetcher
	ReportResult(ctx context.Context, id int64) (types.ReportResult, error)
}

type Options struct {
	SessionTTL     time.Duration
	AllowedOrigins []string
	// Submitter overrides the backend for report requests, e.g. to add a preflight.
	Submitter form.Submitter
}

type Server struct {
	backend    Backend
	downloader *download.Downloader
	sessions   *Store
	tmpl       *template.Template
	handler    http.Handler
}

func NewServer(backend Backend, opts Options) (*Server, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	submitter := opts.Submitter
	if submitter == nil {
		submitter = backend
	}

	s := &Server{
		backend:    backend,
		downloader: download.New(backend),
		tmpl:       tmpl,
	}
	s.sessions = NewStore(opts.SessionTTL, func(id string) *Session {
		list := reports.NewList(backend)
		return &Session{Form: form.New(submitter, list), List: list}
	})

	r := mux.NewRouter()
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/report", s.handleSubmit).Methods(http.MethodPost)
	r.HandleFunc("/report/last", s.handleLastReport).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	// OPTIONS is routed so the cors middleware sees preflight requests.
	api := r.PathPrefix("/api").Subrouter()
	api.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	}))
	api.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/reports", s.handleReports).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/reports/{id:[0-9]+}", s.handleReport).Methods(http.MethodGet, http.MethodOptions)

	s.handler = withRequestID(withLogging(r))
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Sessions exposes the session store, mainly for tests.
func (s *Server) Sessions() *Store {
	return s.sessions
}

type fieldView struct {
	Name  string
	Label string
	Value string
}

type pageData struct {
	Fields    []fieldView
	Indicator Indicator
	Columns   []string
	Rows      []reports.Row
	Error     string
	Notice    string
}

func (s *Server) render(w http.ResponseWriter, status int, sess *Session, pageErr, notice string) {
	values := sess.Form.Values()
	fields := make([]fieldView, 0, len(types.Fields))
	for _, f := range types.Fields {
		fields = append(fields, fieldView{Name: string(f), Label: f.Label(), Value: values.Get(f)})
	}
	data := pageData{
		Fields:    fields,
		Indicator: NewIndicator(sess.Form.Loading()),
		Columns:   sess.List.Columns(),
		Rows:      sess.List.Rows(),
		Error:     pageErr,
		Notice:    notice,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.tmpl.ExecuteTemplate(w, "index.html.tmpl", data); err != nil {
		log.Error().Err(err).Msg("render page")
	}
}

// handleIndex mounts the page: one fetch of the report list, then render.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Attach(w, r)
	if err := sess.List.Load(r.Context()); err != nil {
		log.Error().Err(err).Msg("load report results")
		s.render(w, http.StatusBadGateway, sess, "Could not load report results: "+err.Error(), "")
		return
	}
	s.render(w, http.StatusOK, sess, "", "")
}

// handleSubmit applies the posted inputs and submits the form. The submit
// already refreshes the list, so the page is rendered directly.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Attach(w, r)
	if err := r.ParseForm(); err != nil {
		s.render(w, http.StatusBadRequest, sess, "Invalid form: "+err.Error(), "")
		return
	}
	updates := make(map[types.Field]string, len(types.Fields))
	for _, f := range types.Fields {
		if vs, ok := r.PostForm[string(f)]; ok && len(vs) > 0 {
			updates[f] = vs[0]
		}
	}

	id, err := sess.Form.SubmitWith(r.Context(), updates)
	switch {
	case errors.Is(err, form.ErrSubmitInFlight):
		s.render(w, http.StatusConflict, sess, "A report is already being generated.", "")
	case err != nil && id == "":
		log.Error().Err(err).Msg("request report")
		s.render(w, http.StatusBadGateway, sess, "Report request failed: "+err.Error(), "")
	case err != nil:
		log.Error().Err(err).Msg("refresh report results")
		s.render(w, http.StatusOK, sess, "Report generated but the list could not be refreshed: "+err.Error(), reportNotice(id))
	default:
		s.render(w, http.StatusOK, sess, "", reportNotice(id))
	}
}

func reportNotice(id string) string {
	if id == "" {
		return "Report generated."
	}
	return fmt.Sprintf("Report %s generated.", id)
}

func (s *Server) handleLastReport(w http.ResponseWriter, r *http.Request) {
	b, err := s.downloader.Fetch(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("download last report")
		http.Error(w, fmt.Sprintf("can't download last report: %v", err), http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", b.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", b.Name))
	w.Header().Set("Content-Length", strconv.Itoa(len(b.Data)))
	w.Write(b.Data)
}

type statusResponse struct {
	Loading bool `json:"loading"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var st statusResponse
	if sess, ok := s.sessions.Lookup(r); ok {
		st.Loading = sess.Form.Loading()
	}
	respondJSON(w, http.StatusOK, st)
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	results, err := s.backend.ReportResults(r.Context())
	if err != nil {
		httpError(w, http.StatusBadGateway, err.Error())
		return
	}
	if results == nil {
		results = []types.ReportResult{}
	}
	respondJSON(w, http.StatusOK, results)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		httpError(w, http.StatusBadRequest, "invalid report result id")
		return
	}
	result, err := s.backend.ReportResult(r.Context(), id)
	if err != nil {
		if gateway.IsNotFound(err) {
			httpError(w, http.StatusNotFound, "no such report result")
			return
		}
		httpError(w, http.StatusBadGateway, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintf(w, "ok")
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func httpError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
