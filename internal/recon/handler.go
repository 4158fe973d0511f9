package recon

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-books/meridian/internal/ledger/shared"
	"github.com/meridian-books/meridian/internal/platform/httpx"
)

type CreateRequest struct {
	BankAccountID    int64  `json:"bank_account_id" validate:"required,gt=0"`
	StatementDate    string `json:"statement_date" validate:"required,datetime=2006-01-02"`
	StatementBalance string `json:"statement_balance" validate:"required"`
}

type MatchRequest struct {
	Matches []MatchPairRequest `json:"matches" validate:"required,min=1,dive"`
}

type MatchPairRequest struct {
	TransactionID int64  `json:"transaction_id" validate:"required,gt=0"`
	JournalLineID *int64 `json:"journal_line_id,omitempty"`
}

type UnmatchRequest struct {
	TransactionIDs []int64 `json:"transaction_ids" validate:"required,min=1,dive,gt=0"`
}

type AdjustmentRequest struct {
	Kind        string `json:"kind" validate:"required,oneof=OUTSTANDING_CHECK DEPOSIT_IN_TRANSIT OTHER"`
	Description string `json:"description" validate:"max=255"`
	Amount      string `json:"amount" validate:"required"`
}

type ReconciliationResponse struct {
	ID               int64        `json:"id"`
	BankAccountID    int64        `json:"bank_account_id"`
	StatementDate    string       `json:"statement_date"`
	StatementBalance shared.Money `json:"statement_balance"`
	BookBalance      shared.Money `json:"book_balance"`
	Status           Status       `json:"status"`
	CompletedAt      *time.Time   `json:"completed_at,omitempty"`
}

type AdjustmentResponse struct {
	ID          int64          `json:"id"`
	Kind        AdjustmentKind `json:"kind"`
	Description string         `json:"description,omitempty"`
	Amount      shared.Money   `json:"amount"`
}

func toReconciliationResponse(r Reconciliation) ReconciliationResponse {
	return ReconciliationResponse{
		ID:               r.ID,
		BankAccountID:    r.BankAccountID,
		StatementDate:    r.StatementDate.Format("2006-01-02"),
		StatementBalance: r.StatementBalance,
		BookBalance:      r.BookBalance,
		Status:           r.Status,
		CompletedAt:      r.CompletedAt,
	}
}

type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Get("/{id}/suggestions", h.Suggestions)
	r.Get("/{id}/adjustments", h.Adjustments)
	r.Post("/{id}/adjustments", h.AddAdjustment)
	r.Post("/{id}/match-transactions", h.Match)
	r.Post("/{id}/unmatch-transactions", h.Unmatch)
	r.Post("/{id}/complete", h.Complete)
	r.Post("/{id}/abandon", h.Abandon)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	date, _ := time.Parse("2006-01-02", req.StatementDate)
	balance, err := shared.ParseMoney(req.StatementBalance)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	rec, err := h.service.Create(r.Context(), req.BankAccountID, date, balance)
	if err != nil {
		h.logger.Error("create reconciliation", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toReconciliationResponse(rec))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := reconID(w, r)
	if !ok {
		return
	}
	rec, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toReconciliationResponse(rec))
}

func (h *Handler) Suggestions(w http.ResponseWriter, r *http.Request) {
	id, ok := reconID(w, r)
	if !ok {
		return
	}
	suggestions, err := h.service.Suggest(r.Context(), id)
	if err != nil {
		h.logger.Error("suggest matches", slog.Any("error", err), slog.Int64("reconciliation_id", id))
		httpx.RespondError(w, err)
		return
	}
	if suggestions == nil {
		suggestions = []Suggestion{}
	}
	httpx.JSON(w, http.StatusOK, suggestions)
}

func (h *Handler) Adjustments(w http.ResponseWriter, r *http.Request) {
	id, ok := reconID(w, r)
	if !ok {
		return
	}
	adjustments, err := h.service.Adjustments(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]AdjustmentResponse, 0, len(adjustments))
	for _, a := range adjustments {
		out = append(out, AdjustmentResponse{ID: a.ID, Kind: a.Kind, Description: a.Description, Amount: a.Amount})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) AddAdjustment(w http.ResponseWriter, r *http.Request) {
	id, ok := reconID(w, r)
	if !ok {
		return
	}
	var req AdjustmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	amount, err := shared.ParseMoney(req.Amount)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	adjustment, err := h.service.AddAdjustment(r.Context(), id, AdjustmentKind(req.Kind), req.Description, amount)
	if err != nil {
		h.logger.Error("add adjustment", slog.Any("error", err), slog.Int64("reconciliation_id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, AdjustmentResponse{
		ID: adjustment.ID, Kind: adjustment.Kind, Description: adjustment.Description, Amount: adjustment.Amount,
	})
}

func (h *Handler) Match(w http.ResponseWriter, r *http.Request) {
	id, ok := reconID(w, r)
	if !ok {
		return
	}
	var req MatchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	pairs := make([]MatchPair, 0, len(req.Matches))
	for _, m := range req.Matches {
		pairs = append(pairs, MatchPair{TransactionID: m.TransactionID, JournalLineID: m.JournalLineID})
	}
	if err := h.service.Match(r.Context(), id, pairs); err != nil {
		h.logger.Error("match transactions", slog.Any("error", err), slog.Int64("reconciliation_id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int{"matched": len(pairs)})
}

func (h *Handler) Unmatch(w http.ResponseWriter, r *http.Request) {
	id, ok := reconID(w, r)
	if !ok {
		return
	}
	var req UnmatchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.Unmatch(r.Context(), id, req.TransactionIDs); err != nil {
		h.logger.Error("unmatch transactions", slog.Any("error", err), slog.Int64("reconciliation_id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int{"unmatched": len(req.TransactionIDs)})
}

func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	id, ok := reconID(w, r)
	if !ok {
		return
	}
	rec, err := h.service.Complete(r.Context(), id)
	if err != nil {
		h.logger.Error("complete reconciliation", slog.Any("error", err), slog.Int64("reconciliation_id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toReconciliationResponse(rec))
}

func (h *Handler) Abandon(w http.ResponseWriter, r *http.Request) {
	id, ok := reconID(w, r)
	if !ok {
		return
	}
	rec, err := h.service.Abandon(r.Context(), id)
	if err != nil {
		h.logger.Error("abandon reconciliation", slog.Any("error", err), slog.Int64("reconciliation_id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toReconciliationResponse(rec))
}

func reconID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid reconciliation id")
		return 0, false
	}
	return id, true
}
