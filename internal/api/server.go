package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"durance/internal/config"
	"durance/internal/game"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Server struct {
	cfg  config.APIConfig
	log  *slog.Logger
	game *game.Service
	mux  *chi.Mux
}

func New(cfg config.APIConfig, logger *slog.Logger, gameSvc *game.Service) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:  cfg,
		log:  logger,
		game: gameSvc,
		mux:  chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/accounts", s.handleCreateAccount)
		r.Get("/accounts/{id}", s.handleGetAccount)
		r.Get("/accounts/{id}/owned", s.handleListOwned)
		r.Get("/accounts/{id}/history", s.handleOwnershipHistory)
		r.Get("/accounts/{id}/work", s.handleWorkStatus)
		r.Get("/accounts/{id}/profit", s.handleProfitStats)
		r.Get("/accounts/{id}/upgrade", s.handleUpgradeInfo)
		r.Get("/referral/{token}", s.handleGetByReferralToken)

		r.Post("/purchase", s.handlePurchase)
		r.Post("/liberate", s.handleLiberate)
		r.Post("/shield", s.handleShield)
		r.Post("/upgrade", s.handleUpgrade)
		r.Post("/transfer", s.handleTransfer)
		r.Post("/work/send", s.handleSendToWork)
		r.Post("/work/collect", s.handleCollectRewards)

		r.Get("/market", s.handleBrowse)
		r.Get("/market/stats", s.handleMarketStats)
		r.Get("/leaderboard/{category}", s.handleLeaderboard)
		r.Get("/search", s.handleSearch)

		r.Route("/admin", func(r chi.Router) {
			r.Post("/income", s.handleAdminIncome)
			r.Post("/reprice", s.handleAdminReprice)
			r.Post("/fluctuate", s.handleAdminFluctuate)
			r.Post("/cleanup", s.handleAdminCleanup)
			r.Post("/stats", s.handleAdminStats)
		})
	})
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var in game.CreateAccountInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if in.ID == 0 {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	account, err := s.game.CreateAccount(r.Context(), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	account, err := s.game.GetAccount(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (s *Server) handleGetByReferralToken(w http.ResponseWriter, r *http.Request) {
	account, err := s.game.GetAccountByReferralToken(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (s *Server) handleListOwned(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	owned, err := s.game.ListOwned(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"owned": owned})
}

func (s *Server) handleOwnershipHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	history, err := s.game.OwnershipHistory(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": history})
}

func (s *Server) handleWorkStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	status, err := s.game.WorkStatus(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleProfitStats(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	stats, err := s.game.AccountProfit(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleUpgradeInfo(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	track, err := s.game.UpgradeInfo(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, track)
}

func (s *Server) handlePurchase(w http.ResponseWriter, r *http.Request) {
	var in struct {
		BuyerID int64 `json:"buyer_id"`
		AssetID int64 `json:"asset_id"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := s.game.Purchase(r.Context(), in.BuyerID, in.AssetID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleLiberate(w http.ResponseWriter, r *http.Request) {
	var in struct {
		AssetID int64 `json:"asset_id"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.game.SelfLiberate(r.Context(), in.AssetID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"liberated": true})
}

func (s *Server) handleShield(w http.ResponseWriter, r *http.Request) {
	var in struct {
		OwnerID int64 `json:"owner_id"`
		AssetID int64 `json:"asset_id"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	until, err := s.game.ActivateShield(r.Context(), in.OwnerID, in.AssetID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"shield_until": until})
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	var in struct {
		OwnerID int64 `json:"owner_id"`
		AssetID int64 `json:"asset_id"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := s.game.Upgrade(r.Context(), in.OwnerID, in.AssetID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var in struct {
		FromID int64 `json:"from_id"`
		ToID   int64 `json:"to_id"`
		Amount int64 `json:"amount"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.game.Transfer(r.Context(), in.FromID, in.ToID, in.Amount); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transferred": in.Amount})
}

func (s *Server) handleSendToWork(w http.ResponseWriter, r *http.Request) {
	var in struct {
		OwnerID int64 `json:"owner_id"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	batch, err := s.game.SendToWork(r.Context(), in.OwnerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, batch)
}

func (s *Server) handleCollectRewards(w http.ResponseWriter, r *http.Request) {
	var in struct {
		OwnerID int64 `json:"owner_id"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	collected, err := s.game.CollectRewards(r.Context(), in.OwnerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"collected": collected})
}

func (s *Server) handleBrowse(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	excludeID, _ := strconv.ParseInt(q.Get("exclude_id"), 10, 64)
	limit, _ := strconv.Atoi(q.Get("limit"))
	rows, err := s.game.BrowseAccounts(r.Context(), q.Get("sort"), excludeID, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"accounts": rows})
}

func (s *Server) handleMarketStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.game.MarketStats(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	rows, err := s.game.Leaderboard(r.Context(), chi.URLParam(r, "category"), limit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"leaderboard": rows})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	excludeID, _ := strconv.ParseInt(q.Get("exclude_id"), 10, 64)
	rows, err := s.game.SearchAccounts(r.Context(), q.Get("q"), excludeID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"accounts": rows})
}

func (s *Server) handleAdminIncome(w http.ResponseWriter, r *http.Request) {
	paid, err := s.game.GenerateHourlyIncome(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"owners_paid": paid})
}

func (s *Server) handleAdminReprice(w http.ResponseWriter, r *http.Request) {
	updated, err := s.game.RecomputeDynamicPrices(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"updated": updated})
}

func (s *Server) handleAdminFluctuate(w http.ResponseWriter, r *http.Request) {
	nudged, err := s.game.SimulateMarketFluctuation(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"nudged": nudged})
}

func (s *Server) handleAdminCleanup(w http.ResponseWriter, r *http.Request) {
	removed, err := s.game.CleanupRetention(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rows_removed": removed})
}

func (s *Server) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	if err := s.game.SnapshotDailyStats(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"snapshotted": true})
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return 0, false
	}
	return id, true
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, game.ErrConflict),
		errors.Is(err, game.ErrAlreadyOwned),
		errors.Is(err, game.ErrAlreadyShielded),
		errors.Is(err, game.ErrAlreadyWorking):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, game.ErrNotOwner):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, game.ErrShielded):
		writeError(w, http.StatusLocked, err.Error())
	case errors.Is(err, game.ErrInsufficientFunds),
		errors.Is(err, game.ErrInvalidAmount),
		errors.Is(err, game.ErrSelfTrade),
		errors.Is(err, game.ErrNotOwned),
		errors.Is(err, game.ErrNoAssets),
		errors.Is(err, game.ErrNothingReady):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}
