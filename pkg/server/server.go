package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rwa-tokenizer/pkg/agents"
	"github.com/rwa-tokenizer/pkg/db"
	"github.com/rwa-tokenizer/pkg/models"
)

const Version = "1.0.0"

var FollowUpQuestions = []string{
	"Can you upload supporting documents?",
	"What is the date of acquisition?",
	"Is there a title deed or registration?",
}

var intakeNextSteps = []string{"Review asset", "Proceed to verification"}

// Server exposes the asset lifecycle over HTTP backed by a SQLite store.
type Server struct {
	store     *db.Store
	extractor *agents.Extractor
	verifier  *agents.Verifier
	tokenizer *agents.Tokenizer
	clock     clock.Clock
	logger    zerolog.Logger
	port      int
}

type Option func(*Server)

func WithClock(c clock.Clock) Option {
	return func(s *Server) { s.clock = c }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

func New(store *db.Store, llm *agents.LLM, port int, opts ...Option) *Server {
	s := &Server{
		store:     store,
		extractor: agents.NewExtractor(llm),
		verifier:  agents.NewVerifier(),
		clock:     clock.New(),
		logger:    log.Logger,
		port:      port,
	}
	for _, o := range opts {
		o(s)
	}
	s.tokenizer = agents.NewTokenizer(s.clock)
	return s
}

func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.HandleFunc("/api/health", cors(s.handleHealth)).Methods("GET", "OPTIONS")
	r.HandleFunc("/api/intake", cors(s.handleIntake)).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/assets/{wallet}", cors(s.handleAssets)).Methods("GET", "OPTIONS")
	r.HandleFunc("/api/asset/{id}", cors(s.handleAsset)).Methods("GET", "OPTIONS")
	r.HandleFunc("/api/verify/{id}", cors(s.handleVerify)).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/tokenize/{id}", cors(s.handleTokenize)).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/stats", cors(s.handleStats)).Methods("GET", "OPTIONS")

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found", r.URL.Path)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed", r.Method)
	})
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", srv.Addr).Msg("🌐 RWA service started")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func cors(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		if r.Method == "OPTIONS" {
			w.WriteHeader(200)
			return
		}
		h(w, r)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := s.clock.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", r.Header.Get("X-Request-ID")).
			Int("status", rec.status).
			Dur("took", s.clock.Since(start)).
			Msg("request")
	})
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	writeJSONStatus(w, http.StatusOK, data)
}

func writeJSONStatus(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg, details string) {
	body := map[string]interface{}{"success": false, "error": msg}
	if details != "" {
		body["details"] = details
	}
	writeJSONStatus(w, status, body)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{
		"status":    "healthy",
		"timestamp": s.clock.Now().UTC().Format(time.RFC3339),
		"version":   Version,
	})
}

func (s *Server) handleIntake(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	var req struct {
		WalletAddress string `json:"wallet_address"`
		UserInput     string `json:"user_input"`
		Email         string `json:"email"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	req.WalletAddress = strings.TrimSpace(req.WalletAddress)
	req.UserInput = strings.TrimSpace(req.UserInput)
	if req.WalletAddress == "" || req.UserInput == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields: user_input, wallet_address", "")
		return
	}

	user, err := s.store.UpsertUser(req.WalletAddress, strings.TrimSpace(req.Email))
	if err != nil {
		s.internalError(w, "Internal server error", err)
		return
	}

	ex := s.extractor.Extract(r.Context(), req.UserInput)
	asset, err := s.store.InsertAsset(db.NewAsset{
		UserID:         user.ID,
		AssetType:      ex.AssetType,
		Description:    ex.Description,
		EstimatedValue: ex.EstimatedValue,
		Location:       ex.Location,
	})
	if err != nil {
		s.internalError(w, "Internal server error", err)
		return
	}

	s.logger.Info().
		Str("wallet", req.WalletAddress).
		Str("asset_id", asset.ID.String()).
		Str("type", string(asset.AssetType)).
		Str("source", ex.Source).
		Msg("📥 asset submitted")

	writeJSON(w, map[string]interface{}{
		"success":             true,
		"message":             "Asset submitted successfully",
		"asset":               asset,
		"parsed_data":         ex,
		"follow_up_questions": FollowUpQuestions,
		"next_steps":          intakeNextSteps,
	})
}

func (s *Server) handleAssets(w http.ResponseWriter, r *http.Request) {
	wallet := mux.Vars(r)["wallet"]
	assets, err := s.store.GetAssetsForWallet(wallet)
	if err != nil {
		s.internalError(w, "Failed to retrieve assets", err)
		return
	}
	writeJSON(w, map[string]interface{}{"assets": assets})
}

func (s *Server) handleAsset(w http.ResponseWriter, r *http.Request) {
	asset, ok := s.lookupAsset(w, r)
	if !ok {
		return
	}
	id, _ := asset.ID.Int64()
	txs, err := s.store.GetTransactions(id)
	if err != nil {
		s.internalError(w, "Failed to retrieve asset", err)
		return
	}
	writeJSON(w, map[string]interface{}{
		"asset":        asset,
		"transactions": txs,
	})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	asset, ok := s.lookupAsset(w, r)
	if !ok {
		return
	}
	id, _ := asset.ID.Int64()

	result := s.verifier.Verify(*asset)
	status := models.VerificationStatus(result.Status)
	if err := s.store.UpdateVerification(id, status); err != nil {
		s.internalError(w, "Verification failed", err)
		return
	}
	if _, err := s.store.InsertTransaction(id, models.TxVerification, result.Status, "", result); err != nil {
		s.internalError(w, "Verification failed", err)
		return
	}
	updated, err := s.store.GetAsset(id)
	if err != nil {
		s.internalError(w, "Verification failed", err)
		return
	}

	s.logger.Info().
		Int64("asset_id", id).
		Float64("score", result.OverallScore).
		Str("status", result.Status).
		Msg("🔍 asset verified")

	writeJSON(w, map[string]interface{}{
		"success":             true,
		"verification_result": result,
		"asset":               updated,
	})
}

func (s *Server) handleTokenize(w http.ResponseWriter, r *http.Request) {
	asset, ok := s.lookupAsset(w, r)
	if !ok {
		return
	}
	id, _ := asset.ID.Int64()

	if asset.IsTokenized() {
		writeError(w, http.StatusConflict, "Asset already tokenized", *asset.TokenID)
		return
	}
	mint, err := s.tokenizer.Tokenize(*asset)
	if errors.Is(err, agents.ErrNotVerified) {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	if err != nil {
		s.internalError(w, "Tokenization failed", err)
		return
	}

	err = s.store.SetTokenID(id, mint.TokenID)
	if errors.Is(err, db.ErrAlreadyTokenized) {
		writeError(w, http.StatusConflict, "Asset already tokenized", "")
		return
	}
	if err != nil {
		s.internalError(w, "Tokenization failed", err)
		return
	}
	if _, err := s.store.InsertTransaction(id, models.TxTokenization, string(models.TxCompleted), mint.TransactionHash, mint); err != nil {
		s.internalError(w, "Tokenization failed", err)
		return
	}
	updated, err := s.store.GetAsset(id)
	if err != nil {
		s.internalError(w, "Tokenization failed", err)
		return
	}

	ev := s.logger.Info().
		Int64("asset_id", id).
		Str("token_id", mint.TokenID).
		Str("tx", mint.TransactionHash)
	if vr, err := s.store.LatestVerification(id); err == nil {
		ev = ev.Float64("verification_score", vr.OverallScore)
	}
	ev.Msg("🎉 asset tokenized")

	writeJSON(w, map[string]interface{}{
		"success":             true,
		"tokenization_result": mint,
		"asset":               updated,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.GetStats()
	if err != nil {
		s.internalError(w, "Failed to retrieve statistics", err)
		return
	}
	writeJSON(w, stats)
}

// lookupAsset resolves the {id} path variable, writing a 404 when the asset
// does not exist.
func (s *Server) lookupAsset(w http.ResponseWriter, r *http.Request) (*models.Asset, bool) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, "Asset not found", fmt.Sprintf("invalid asset id %q", raw))
		return nil, false
	}
	asset, err := s.store.GetAsset(id)
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Asset not found", fmt.Sprintf("no asset with id %d", id))
		return nil, false
	}
	if err != nil {
		s.internalError(w, "Asset not found", err)
		return nil, false
	}
	return asset, true
}

func (s *Server) internalError(w http.ResponseWriter, msg string, err error) {
	s.logger.Error().Err(err).Msg("❌ " + strings.ToLower(msg))
	writeError(w, http.StatusInternalServerError, msg, err.Error())
}
