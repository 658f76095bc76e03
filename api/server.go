// Package api exposes the retrieval engine over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/lecturecompanion/rag-engine/rag"
	"github.com/lecturecompanion/rag-engine/transcripts"
)

// Engine is the retrieval orchestrator surface the HTTP layer depends on.
type Engine interface {
	Index(ctx context.Context, input rag.Input) (rag.IndexResult, error)
	Query(ctx context.Context, question string, opts rag.QueryOptions) (rag.QueryResult, error)
	Stats(ctx context.Context) (rag.StatsResult, error)
	Clear(ctx context.Context) (rag.ClearResult, error)
}

// Server serves the JSON API for indexing and querying transcripts.
type Server struct {
	engine         Engine
	logger         *log.Logger
	allowedOrigins []string
	handler        http.Handler
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type indexRequest struct {
	TranscriptText string        `json:"transcript_text"`
	Segments       []rag.Segment `json:"segments"`
	SummaryEN      string        `json:"summary_en"`
	SummaryMM      string        `json:"summary_mm"`
}

type queryRequest struct {
	Question         string  `json:"question"`
	TopK             int     `json:"top_k"`
	KeywordThreshold float64 `json:"keyword_threshold"`
}

func New(engine Engine, allowedOrigins []string, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}

	s := &Server{engine: engine, logger: logger, allowedOrigins: allowedOrigins}
	s.handler = s.cors(s.routes())
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/v1/index", s.handleIndex)
	mux.HandleFunc("/v1/query", s.handleQuery)
	mux.HandleFunc("/v1/stats", s.handleStats)
	mux.HandleFunc("/v1/clear", s.handleClear)
	mux.HandleFunc("/v1/upload", s.handleUpload)
	return mux
}

// cors mirrors the request origin when it is on the allow list. Preflight
// requests are answered without reaching the handlers.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) originAllowed(origin string) bool {
	for _, allowed := range s.allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, http.MethodGet)
		return
	}

	s.writeJSON(w, http.StatusOK, messageResponse{Message: "ok"})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, http.MethodPost)
		return
	}

	var req indexRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	result, err := s.engine.Index(r.Context(), rag.Input{
		TranscriptText: req.TranscriptText,
		Segments:       req.Segments,
		SummaryEN:      req.SummaryEN,
		SummaryMM:      req.SummaryMM,
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, rag.ErrNoChunks) {
			status = http.StatusBadRequest
		}
		s.writeError(w, status, fmt.Errorf("indexing failed: %w", err))
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, http.MethodPost)
		return
	}

	var req queryRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("question is required"))
		return
	}

	result, err := s.engine.Query(r.Context(), req.Question, rag.QueryOptions{
		TopK:             req.TopK,
		KeywordThreshold: req.KeywordThreshold,
	})
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("query failed: %w", err))
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, http.MethodGet)
		return
	}

	result, err := s.engine.Stats(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("stats failed: %w", err))
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, http.MethodPost)
		return
	}

	result, err := s.engine.Clear(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("clear failed: %w", err))
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

// handleUpload parses an uploaded transcript file (txt, pdf, srt, vtt) and
// indexes it in one step.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, http.MethodPost)
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("parse multipart form: %w", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("read uploaded file: %w", err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("read file body: %w", err))
		return
	}

	transcript, err := transcripts.Parse(header.Filename, data)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("parse transcript: %w", err))
		return
	}
	s.logger.Printf("parsed %s upload %s (%d segments)", transcript.FileType, header.Filename, len(transcript.Segments))

	result, err := s.engine.Index(r.Context(), rag.Input{
		TranscriptText: transcript.Text,
		Segments:       transcript.Segments,
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, rag.ErrNoChunks) {
			status = http.StatusBadRequest
		}
		s.writeError(w, status, fmt.Errorf("indexing failed: %w", err))
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	s.writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.logger.Printf("http error %d: %v", status, err)
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Printf("encode response: %v", err)
	}
}

func decodeJSON(r *http.Request, dst any) error {
	defer io.Copy(io.Discard, r.Body)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
