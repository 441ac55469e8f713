// Package daisen serves a recorded simulation database over HTTP so that the
// traces and performance samples can be inspected in a browser.
package daisen

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sarchlab/hbmnoc/datarecording"
)

//go:embed static/index.html
var staticAssets embed.FS

// ExecInfo is a row of the exec_info table.
type ExecInfo struct {
	Property string `json:"property"`
	Value    string `json:"value"`
}

// PerfEntry is a row of the perf table.
type PerfEntry struct {
	Start     uint64  `json:"start"`
	End       uint64  `json:"end"`
	Where     string  `json:"where"`
	What      string  `json:"what"`
	EntryType string  `json:"entry_type"`
	Value     float64 `json:"value"`
	Unit      string  `json:"unit"`
}

// Server answers the viewer API from a DataReader.
type Server struct {
	reader datarecording.DataReader
	traces *traceReader
	router *mux.Router
}

// NewServer creates a server that reads from the given reader.
func NewServer(reader datarecording.DataReader) *Server {
	reader.MapTable("exec_info", ExecInfo{})
	reader.MapTable("perf", PerfEntry{})

	s := &Server{
		reader: reader,
		traces: newTraceReader(reader),
		router: mux.NewRouter(),
	}

	s.routes()

	return s
}

// Router returns the handler that serves the viewer.
func (s *Server) Router() *mux.Router {
	return s.router
}

// ListenAndServe blocks serving the viewer at addr.
func (s *Server) ListenAndServe(addr string) error {
	slog.Info("daisen listening", "addr", addr)

	return http.ListenAndServe(addr, s.router)
}

func (s *Server) routes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/compnames", s.httpComponentNames).Methods(http.MethodGet)
	api.HandleFunc("/trace", s.httpTrace).Methods(http.MethodGet)
	api.HandleFunc("/compinfo", s.httpComponentInfo).Methods(http.MethodGet)
	api.HandleFunc("/exec_info", s.httpExecInfo).Methods(http.MethodGet)
	api.HandleFunc("/perf", s.httpPerf).Methods(http.MethodGet)

	for _, page := range []string{"/", "/dashboard", "/component", "/task"} {
		s.router.HandleFunc(page, serveIndex).Methods(http.MethodGet)
	}
}

func serveIndex(w http.ResponseWriter, _ *http.Request) {
	p, err := staticAssets.ReadFile("static/index.html")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(p)
}

func (s *Server) httpComponentNames(w http.ResponseWriter, r *http.Request) {
	names, err := s.traces.ListComponents(r.Context())
	writeJSON(w, names, err)
}

func (s *Server) httpTrace(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := TaskQuery{
		ID:       q.Get("id"),
		ParentID: q.Get("parentid"),
		Kind:     q.Get("kind"),
		Where:    q.Get("where"),
	}

	if q.Get("starttime") != "" || q.Get("endtime") != "" {
		start, err := parseUint(q.Get("starttime"), 0)
		if err != nil {
			badRequest(w, err)
			return
		}

		end, err := parseUint(q.Get("endtime"), ^uint64(0)>>1)
		if err != nil {
			badRequest(w, err)
			return
		}

		query.EnableTimeRange = true
		query.StartTime = start
		query.EndTime = end
	}

	tasks, err := s.traces.ListTasks(r.Context(), query)
	writeJSON(w, tasks, err)
}

func (s *Server) httpComponentInfo(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	start, err := parseUint(q.Get("start_time"), 0)
	if err != nil {
		badRequest(w, err)
		return
	}

	end, err := parseUint(q.Get("end_time"), 0)
	if err != nil {
		badRequest(w, err)
		return
	}

	numDots, err := strconv.Atoi(q.Get("num_dots"))
	if err != nil {
		badRequest(w, err)
		return
	}

	info, err := s.traces.componentInfo(r.Context(),
		q.Get("where"), q.Get("info_type"), start, end, numDots)
	if err != nil {
		badRequest(w, err)
		return
	}

	writeJSON(w, info, nil)
}

func (s *Server) httpExecInfo(w http.ResponseWriter, r *http.Request) {
	rows, err := queryAll[ExecInfo](r.Context(), s.reader, "exec_info",
		datarecording.QueryParams{})
	writeJSON(w, rows, err)
}

func (s *Server) httpPerf(w http.ResponseWriter, r *http.Request) {
	params := datarecording.QueryParams{OrderBy: "Start"}
	if where := r.URL.Query().Get("where"); where != "" {
		params.Where = "\"Where\" = ?"
		params.Args = []any{where}
	}

	rows, err := queryAll[PerfEntry](r.Context(), s.reader, "perf", params)
	writeJSON(w, rows, err)
}

func queryAll[T any](
	ctx context.Context,
	reader datarecording.DataReader,
	table string,
	params datarecording.QueryParams,
) ([]T, error) {
	results, _, err := reader.Query(ctx, table, params)
	if err != nil {
		return nil, err
	}

	rows := make([]T, 0, len(results))
	for _, res := range results {
		rows = append(rows, *res.(*T))
	}

	return rows, nil
}

func parseUint(s string, def uint64) (uint64, error) {
	if s == "" {
		return def, nil
	}

	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", s, err)
	}

	return v, nil
}

func badRequest(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), http.StatusBadRequest)
}

func writeJSON(w http.ResponseWriter, v any, err error) {
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("daisen: encode response", "err", err)
	}
}
