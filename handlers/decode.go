// Package handlers implements the HTTP surface for ctcbeam's serve mode:
// POST /decode, GET /healthz, and GET /metrics.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ctcbeam/core"
	"ctcbeam/db"
	"ctcbeam/internal/ctc/decoder"
	"ctcbeam/internal/ctc/lm"
	"ctcbeam/internal/ctc/matrix"
	"ctcbeam/logging"
	"ctcbeam/metrics"
	"ctcbeam/shutdown"
)

// Server holds the dependencies every handler needs: a logger, the decode
// history repository, the metrics store serve-mode decodes feed into, and
// the configured decoder defaults used when a request does not override
// them.
type Server struct {
	logger       *logging.Logger
	repo         *db.Repository
	metricsStore *metrics.MetricsStore
	defaults     decoder.Options
	strictVocab  bool
	apiKeyHash   string
	startTime    time.Time
	version      string
	shutdownMgr  *shutdown.Manager
}

// NewServer returns a Server wired to the given dependencies. mgr may be
// nil (e.g. in tests): HandleDecode then runs the decode inline instead of
// tracking it as an in-flight operation.
func NewServer(logger *logging.Logger, repo *db.Repository, metricsStore *metrics.MetricsStore, cfg *core.Config, startTime time.Time, version string, mgr *shutdown.Manager) *Server {
	return &Server{
		logger:       logger,
		repo:         repo,
		metricsStore: metricsStore,
		defaults: decoder.Options{
			BeamSize:      cfg.DefaultBeamSize,
			BeamSizeToken: cfg.DefaultBeamSizeToken,
			BeamThreshold: cfg.DefaultBeamThreshold,
			LMWeight:      cfg.DefaultLMWeight,
		},
		strictVocab: cfg.LMStrictVocab,
		apiKeyHash:  cfg.APIKeyHash,
		startTime:   startTime,
		version:     version,
		shutdownMgr: mgr,
	}
}

// RegisterRoutes attaches every handler to mux. /decode is gated behind
// apiKeyAuth; /healthz and /metrics stay open for monitoring probes that
// can't carry a key.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/decode", apiKeyAuth(s.apiKeyHash, s.HandleDecode))
	mux.HandleFunc("/healthz", s.HandleHealthz)
	mux.HandleFunc("/metrics", s.HandleMetrics)
}

// decodeRequest is the POST /decode JSON body.
type decodeRequest struct {
	Matrix        [][]float64 `json:"matrix"`
	Blank         *int        `json:"blank"`
	Greedy        bool        `json:"greedy"`
	LMKind        string      `json:"lm_kind"` // "none" (default), "ngram"
	ARPAPath      string      `json:"arpa_path"`
	Vocab         []string    `json:"vocab"`
	BeamSize      *int        `json:"beam_size"`
	BeamSizeToken *int        `json:"beam_size_token"`
	BeamThreshold *float64    `json:"beam_threshold"`
	LMWeight      *float64    `json:"lm_weight"`
}

type decodeResultJSON struct {
	Tokens  []int32 `json:"tokens"`
	Score   float64 `json:"score"`
	LMScore float64 `json:"lm_score"`
}

type decodeResponse struct {
	CorrelationID string              `json:"correlation_id"`
	Results       []decodeResultJSON  `json:"results"`
	DurationMS    int64               `json:"duration_ms"`
}

// HandleDecode decodes a single frame matrix supplied in the request body
// and records the outcome in decode history.
func (s *Server) HandleDecode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), core.RequestTimeout)
	defer cancel()

	var req decodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	correlationID := newCorrelationID()
	start := time.Now()

	decode := func(ctx context.Context) error {
		m, blank, err := buildMatrix(req)
		if err != nil {
			s.recordFailure(ctx, correlationID, req, err, start)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return nil
		}

		if req.Greedy {
			results, err := decoder.Greedy(m)
			s.finish(ctx, w, correlationID, "none", req, results, err, start)
			return nil
		}

		model, lmKind, err := buildModel(req, s.strictVocab)
		if err != nil {
			s.recordFailure(ctx, correlationID, req, err, start)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return nil
		}

		opts := s.resolveOptions(req)
		results, err := decoder.BeamSearch(m, blank, model, opts)
		s.finish(ctx, w, correlationID, lmKind, req, results, err, start)
		return nil
	}

	if s.shutdownMgr == nil {
		_ = decode(ctx)
		return
	}

	if err := s.shutdownMgr.WrapOperation(ctx, "decode:"+correlationID, decode); err != nil {
		if err == shutdown.ErrTrackerClosed {
			http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
			return
		}
		http.Error(w, err.Error(), http.StatusRequestTimeout)
	}
}

func (s *Server) resolveOptions(req decodeRequest) decoder.Options {
	opts := s.defaults
	if req.BeamSize != nil {
		opts.BeamSize = *req.BeamSize
	}
	if req.BeamSizeToken != nil {
		opts.BeamSizeToken = *req.BeamSizeToken
	}
	if req.BeamThreshold != nil {
		opts.BeamThreshold = *req.BeamThreshold
	}
	if req.LMWeight != nil {
		opts.LMWeight = *req.LMWeight
	}
	return opts
}

func (s *Server) finish(ctx context.Context, w http.ResponseWriter, correlationID, lmKind string, req decodeRequest, results decoder.Results, decodeErr error, start time.Time) {
	duration := time.Since(start)

	record := metrics.DecodeRecord{
		ID:        correlationID,
		LMKind:    lmKind,
		StartTime: start,
		EndTime:   time.Now(),
		Duration:  duration,
		BeamSize:  s.defaults.BeamSize,
	}

	if decodeErr != nil {
		record.Status = "error"
		record.ErrorMsg = decodeErr.Error()
		s.metricsStore.RecordDecode(record)
		s.persistHistory(ctx, correlationID, req, lmKind, nil, decodeErr, duration)
		s.logger.Error("decode failed", zap.String("correlation_id", correlationID), zap.Error(decodeErr))
		http.Error(w, decodeErr.Error(), http.StatusUnprocessableEntity)
		return
	}

	record.Status = "success"
	record.FramesProcessed = len(req.Matrix)
	record.SurvivingBeams = len(results)
	s.metricsStore.RecordDecode(record)
	s.persistHistory(ctx, correlationID, req, lmKind, results, nil, duration)

	resp := decodeResponse{
		CorrelationID: correlationID,
		DurationMS:    duration.Milliseconds(),
	}
	for _, r := range results {
		resp.Results = append(resp.Results, decodeResultJSON{Tokens: r.Tokens, Score: r.Score, LMScore: r.LMScore})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) recordFailure(ctx context.Context, correlationID string, req decodeRequest, err error, start time.Time) {
	s.metricsStore.RecordDecode(metrics.DecodeRecord{
		ID:        correlationID,
		Status:    "error",
		ErrorMsg:  err.Error(),
		StartTime: start,
		EndTime:   time.Now(),
		Duration:  time.Since(start),
	})
	s.persistHistory(ctx, correlationID, req, "none", nil, err, time.Since(start))
}

func (s *Server) persistHistory(ctx context.Context, correlationID string, req decodeRequest, lmKind string, results decoder.Results, decodeErr error, duration time.Duration) {
	if s.repo == nil {
		return
	}

	record := db.DecodeHistoryRecord{
		CorrelationID:   correlationID,
		LMKind:          lmKind,
		BeamSize:        s.defaults.BeamSize,
		BeamSizeToken:   s.defaults.BeamSizeToken,
		LMWeight:        s.defaults.LMWeight,
		FramesProcessed: len(req.Matrix),
		DurationMS:      int(duration.Milliseconds()),
	}
	if decodeErr != nil {
		record.Status = "error"
		record.ErrorMessage = decodeErr.Error()
	} else {
		record.Status = "success"
		record.SurvivingBeams = len(results)
		if len(results) > 0 {
			record.Score = results[0].Score
		}
	}

	if _, err := s.repo.InsertDecodeHistory(ctx, record); err != nil {
		s.logger.Warn("failed to persist decode history", zap.String("correlation_id", correlationID), zap.Error(err))
	}
}

// HandleHealthz reports process liveness and uptime.
func (s *Server) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	status := metrics.SystemStatus{
		Health:    "running",
		Version:   s.version,
		Uptime:    time.Since(s.startTime),
		LastCheck: time.Now(),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(status)
}

// HandleMetrics reports the aggregated decode metrics collected so far.
func (s *Server) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.metricsStore.GetDecodeMetrics())
}

func buildMatrix(req decodeRequest) (*matrix.Matrix, int, error) {
	t := len(req.Matrix)
	if t == 0 {
		m, err := matrix.New(nil, 0, 0)
		return m, 0, err
	}
	v := len(req.Matrix[0])
	flat := make([]float64, 0, t*v)
	for _, row := range req.Matrix {
		if len(row) != v {
			return nil, 0, fmt.Errorf("matrix rows have inconsistent width")
		}
		flat = append(flat, row...)
	}
	m, err := matrix.New(flat, t, v)
	if err != nil {
		return nil, 0, err
	}
	blank := v - 1
	if req.Blank != nil {
		blank = *req.Blank
	}
	return m, blank, nil
}

func buildModel(req decodeRequest, strict bool) (lm.Model, string, error) {
	switch req.LMKind {
	case "", "none":
		return lm.NewNullModel(), "none", nil
	case "ngram":
		if req.ARPAPath == "" {
			return nil, "", fmt.Errorf("lm_kind ngram requires arpa_path")
		}
		model, err := lm.NewNGramModel(req.ARPAPath, lm.NGramModelOptions{
			Vocab:       req.Vocab,
			StrictVocab: strict,
		})
		if err != nil {
			return nil, "", err
		}
		return model, "ngram", nil
	default:
		return nil, "", fmt.Errorf("unsupported lm_kind %q", req.LMKind)
	}
}

func newCorrelationID() string {
	return uuid.NewString()
}
