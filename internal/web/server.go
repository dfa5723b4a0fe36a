package web

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"smartjogger/internal/session"
	"smartjogger/internal/stats"
	"smartjogger/internal/storage"
)

const writeWait = 10 * time.Second

//go:embed templates/*.html
var templatesFS embed.FS

// Controller is the part of a session the control surface drives.
type Controller interface {
	Reset()
	Snapshot(ctx context.Context) (session.Snapshot, error)
}

// Canvas is the rendered track the server exposes.
type Canvas interface {
	Size() (width, height float64)
	WritePNG(w io.Writer) error
}

type Server struct {
	session   Controller
	board     *Board
	canvas    Canvas
	store     *storage.Store
	templates map[string]*template.Template
	mux       *http.ServeMux
	upgrader  websocket.Upgrader
}

type RunView struct {
	ID        string
	StartTime string
	Samples   int
	HasStats  bool
	Distance  string
	Duration  string
	AvgSpeed  string
	Stops     int
	StopTotal string
}

type PageData struct {
	Title   string
	Message string
}

type TrackerPageData struct {
	PageData
	Texts        Texts
	CanvasWidth  int
	CanvasHeight int
	Recording    bool
	Runs         []RunView
}

type RunSummary struct {
	Run   storage.Run     `json:"run"`
	Stats *stats.RunStats `json:"stats,omitempty"`
}

// NewServer builds the control surface. canvas and store may be nil.
func NewServer(ctrl Controller, board *Board, canvas Canvas, store *storage.Store) (*Server, error) {
	tracker, err := template.New("base").ParseFS(
		templatesFS,
		"templates/base.html",
		"templates/tracker.html",
	)
	if err != nil {
		return nil, err
	}
	s := &Server{
		session: ctrl,
		board:   board,
		canvas:  canvas,
		store:   store,
		templates: map[string]*template.Template{
			"tracker": tracker,
		},
		mux: http.NewServeMux(),
	}
	s.mux.HandleFunc("/", s.Tracker)
	s.mux.HandleFunc("POST /reset", s.Reset)
	s.mux.HandleFunc("GET /status", s.Status)
	s.mux.HandleFunc("GET /track.png", s.TrackPNG)
	s.mux.HandleFunc("GET /track.geojson", s.TrackGeoJSON)
	s.mux.HandleFunc("GET /ws", s.Live)
	s.mux.HandleFunc("GET /runs", s.Runs)
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	return s, nil
}

// Handle mounts an extra handler on the server's mux.
func (s *Server) Handle(pattern string, h http.Handler) {
	s.mux.Handle(pattern, h)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) Tracker(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	data := TrackerPageData{
		PageData: PageData{
			Title:   "Smart Jogger",
			Message: r.URL.Query().Get("msg"),
		},
		Texts:     s.board.Texts(),
		Recording: s.store != nil,
	}
	if s.canvas != nil {
		width, height := s.canvas.Size()
		data.CanvasWidth, data.CanvasHeight = int(width), int(height)
	}
	if s.store != nil {
		summaries, err := s.runSummaries(r.Context(), 20)
		if err != nil {
			slog.Warn("load runs", "error", err)
		}
		for _, summary := range summaries {
			data.Runs = append(data.Runs, runView(summary))
		}
	}
	if err := s.templates["tracker"].ExecuteTemplate(w, "base", data); err != nil {
		http.Error(w, "template render failed", http.StatusInternalServerError)
	}
}

func (s *Server) Reset(w http.ResponseWriter, r *http.Request) {
	s.session.Reset()
	if strings.Contains(r.Header.Get("Accept"), "text/html") {
		http.Redirect(w, r, "/?msg=tracking+reset", http.StatusSeeOther)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) Status(w http.ResponseWriter, r *http.Request) {
	snap, err := s.session.Snapshot(r.Context())
	if err != nil {
		http.Error(w, "session unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, snap)
}

func (s *Server) TrackPNG(w http.ResponseWriter, r *http.Request) {
	if s.canvas == nil {
		http.Error(w, "no canvas", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := s.canvas.WritePNG(w); err != nil {
		slog.Error("encode track png", "error", err)
	}
}

func (s *Server) TrackGeoJSON(w http.ResponseWriter, r *http.Request) {
	snap, err := s.session.Snapshot(r.Context())
	if err != nil {
		http.Error(w, "session unavailable", http.StatusServiceUnavailable)
		return
	}

	fc := geojson.NewFeatureCollection()
	if len(snap.Track) >= 2 {
		line := make(orb.LineString, 0, len(snap.Track))
		for _, sample := range snap.Track {
			line = append(line, orb.Point{sample.Lon, sample.Lat})
		}
		f := geojson.NewFeature(line)
		f.Properties["session"] = snap.ID
		f.Properties["distance_km"] = snap.Summary.DistanceKm
		f.Properties["elapsed_seconds"] = snap.Summary.ElapsedSeconds
		f.Properties["avg_speed_kmh"] = snap.Summary.AvgSpeedKmh
		f.Properties["current_speed_kmh"] = snap.Summary.CurrentSpeedKmh
		fc.Append(f)
	}
	if n := len(snap.Track); n > 0 {
		last := snap.Track[n-1]
		f := geojson.NewFeature(orb.Point{last.Lon, last.Lat})
		f.Properties["current"] = true
		f.Properties["time"] = last.Time.UTC().Format(time.RFC3339Nano)
		fc.Append(f)
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		http.Error(w, "encode failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	_, _ = w.Write(data)
}

// Live streams board updates as JSON text messages.
func (s *Server) Live(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	// Clear the deadlines inherited from the http.Server timeouts.
	_ = conn.SetReadDeadline(time.Time{})

	sub := s.board.subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range sub.Send {
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	s.board.unsubscribe(sub)
	<-done
}

func (s *Server) Runs(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "recording disabled", http.StatusNotFound)
		return
	}
	summaries, err := s.runSummaries(r.Context(), 50)
	if err != nil {
		http.Error(w, "failed to load runs", http.StatusInternalServerError)
		return
	}
	if summaries == nil {
		summaries = []RunSummary{}
	}
	writeJSON(w, summaries)
}

func (s *Server) runSummaries(ctx context.Context, limit int) ([]RunSummary, error) {
	runs, err := s.store.ListRuns(ctx, limit)
	if err != nil {
		return nil, err
	}
	all, err := s.store.ListRunStats(ctx)
	if err != nil {
		return nil, err
	}
	byRun := make(map[string]stats.RunStats, len(all))
	for _, rs := range all {
		byRun[rs.RunID] = rs
	}

	summaries := make([]RunSummary, 0, len(runs))
	for _, run := range runs {
		summary := RunSummary{Run: run}
		if rs, ok := byRun[run.ID]; ok {
			summary.Stats = &rs
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func runView(summary RunSummary) RunView {
	view := RunView{
		ID:        summary.Run.ID,
		StartTime: summary.Run.StartedAt.Format("Jan 2, 2006 15:04"),
		Samples:   summary.Run.Samples,
	}
	if rs := summary.Stats; rs != nil {
		view.HasStats = true
		view.Distance = fmt.Sprintf("%.2f km", rs.Summary.DistanceKm)
		view.Duration = formatDuration(int(rs.Summary.ElapsedSeconds))
		view.AvgSpeed = fmt.Sprintf("%.2f km/h", rs.Summary.AvgSpeedKmh)
		view.Stops = rs.GapCount
		view.StopTotal = formatDuration(rs.GapTotalSeconds)
	}
	return view
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func formatDuration(totalSeconds int) string {
	if totalSeconds <= 0 {
		return "0m"
	}
	duration := time.Duration(totalSeconds) * time.Second
	hours := int(duration.Hours())
	minutes := int(duration.Minutes()) % 60
	seconds := int(duration.Seconds()) % 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}
