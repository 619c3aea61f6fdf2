package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"studiodash/internal/calendar"
	"studiodash/internal/config"
	"studiodash/internal/dashboard"
	"studiodash/internal/ics"
	appLog "studiodash/internal/log"
	"studiodash/internal/model"
	"studiodash/internal/widget"
)

// Controller is the refresh/state side of the dashboard.
// *dashboard.Controller implements it.
type Controller interface {
	State() dashboard.State
	Refresh(ctx context.Context) (dashboard.Result, error)
	SetFilter(ctx context.Context, student string) (dashboard.Result, error)
}

// Widgets builds widget descriptors. *widget.Loader implements it.
type Widgets interface {
	Progress(ctx context.Context, f widget.Family) widget.Progress
	Finance(ctx context.Context, f widget.Family) widget.Finance
}

// Server serves the dashboard page and its JSON API.
type Server struct {
	cfg     *config.Config
	loc     *time.Location
	ctrl    Controller
	widgets Widgets
	mux     *http.ServeMux
	page    *template.Template
	now     func() time.Time
}

//go:embed templates/*.html
var templateFS embed.FS

//go:embed all:static
var embeddedStatic embed.FS

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, ctrl Controller, widgets Widgets) *Server {
	s := &Server{
		cfg:     cfg,
		loc:     cfg.Location(),
		ctrl:    ctrl,
		widgets: widgets,
		mux:     http.NewServeMux(),
		page:    template.Must(template.New("index.html").Funcs(templateFuncs).ParseFS(templateFS, "templates/index.html")),
		now:     time.Now,
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// StartServer serves on cfg.Listen until ctx is canceled, then shuts down
// gracefully.
func StartServer(ctx context.Context, cfg *config.Config, s *Server) error {
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		appLog.Info("stopping HTTP server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/view", s.handleView)
	s.mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	s.mux.HandleFunc("POST /api/filter", s.handleFilter)
	s.mux.HandleFunc("GET /api/widgets/progress", s.handleProgressWidget)
	s.mux.HandleFunc("GET /api/widgets/finance", s.handleFinanceWidget)
	s.mux.HandleFunc("GET /calendar.ics", s.handleICS)
	s.mux.HandleFunc("GET /preview.png", s.handlePreview)
	s.mux.Handle("GET /static/", s.staticFileServer())
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// view builds the dashboard view for the week offset in the request.
func (s *Server) view(r *http.Request) dashboard.View {
	st := s.ctrl.State()
	st.WeekOffset = parseIntDefault(r.URL.Query().Get("week"), 0)
	return dashboard.BuildView(st, s.today())
}

func (s *Server) today() model.Date {
	return model.DateOf(s.now().In(s.loc))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	v := s.view(r)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.page.Execute(w, pageData{View: v}); err != nil {
		appLog.Error("render index failed", err)
	}
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.view(r))
}

// refreshResponse is the JSON shape of /api/refresh and /api/filter.
type refreshResponse struct {
	ID       string       `json:"id"`
	Seq      uint64       `json:"seq"`
	Source   model.Source `json:"source"`
	Applied  bool         `json:"applied"`
	Fallback bool         `json:"fallback"`
}

func toRefreshResponse(res dashboard.Result) refreshResponse {
	return refreshResponse{
		ID:       res.ID,
		Seq:      res.Seq,
		Source:   res.Source,
		Applied:  res.Applied,
		Fallback: res.FetchErr != nil,
	}
}

// handleRefresh runs a guarded refresh. The refresh outlives the request
// so that a page going to the background does not abort it.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	res, err := s.ctrl.Refresh(context.WithoutCancel(r.Context()))
	if errors.Is(err, dashboard.ErrAlreadyLoading) {
		writeError(w, http.StatusConflict, "refresh already in progress")
		return
	}
	if err != nil {
		appLog.Error("refresh failed", err)
		writeError(w, http.StatusInternalServerError, "refresh failed")
		return
	}
	writeJSON(w, http.StatusOK, toRefreshResponse(res))
}

type filterRequest struct {
	Student string `json:"student"`
}

// handleFilter accepts {"student": "..."} as JSON or a "student" form value.
func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	var req filterRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	} else {
		req.Student = r.FormValue("student")
	}
	req.Student = strings.TrimSpace(req.Student)
	if req.Student == "" {
		req.Student = config.AllStudents
	}

	res, err := s.ctrl.SetFilter(context.WithoutCancel(r.Context()), req.Student)
	if err != nil {
		appLog.Error("filter refresh failed", err, "student", req.Student)
		writeError(w, http.StatusInternalServerError, "refresh failed")
		return
	}
	writeJSON(w, http.StatusOK, toRefreshResponse(res))
}

func (s *Server) handleProgressWidget(w http.ResponseWriter, r *http.Request) {
	f := widget.ParseFamily(r.URL.Query().Get("family"))
	writeJSON(w, http.StatusOK, s.widgets.Progress(r.Context(), f))
}

func (s *Server) handleFinanceWidget(w http.ResponseWriter, r *http.Request) {
	f := widget.ParseFamily(r.URL.Query().Get("family"))
	writeJSON(w, http.StatusOK, s.widgets.Finance(r.Context(), f))
}

// handleICS exports the requested week as text/calendar. Bounds and events
// come from one State snapshot.
func (s *Server) handleICS(w http.ResponseWriter, r *http.Request) {
	st := s.ctrl.State()
	reference := calendar.ShiftWeek(s.today(), parseIntDefault(r.URL.Query().Get("week"), 0))
	weekStart, _ := calendar.WeekBounds(reference)

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="studiodash-`+weekStart.String()+`.ics"`)
	if err := ics.WriteWeek(w, st.Dataset.Events, weekStart, s.loc, s.now()); err != nil {
		appLog.Error("ics export failed", err)
	}
}

// handlePreview serves the last captured PNG from capture.output_path.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	path := s.cfg.Capture.OutputPath
	if _, err := os.Stat(path); err != nil {
		writeError(w, http.StatusNotFound, "no preview captured yet")
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	http.ServeFile(w, r, path)
}

// staticFileServer serves the embedded page assets under /static/.
func (s *Server) staticFileServer() http.Handler {
	sub, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		appLog.Error("failed to initialize embedded static filesystem", err)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "static assets not available", http.StatusServiceUnavailable)
		})
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
