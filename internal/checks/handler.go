package checks

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

type IssueRequest struct {
	BankAccountID  int64  `json:"bank_account_id" validate:"required,gt=0"`
	CheckNumber    string `json:"check_number" validate:"required,max=20"`
	Payee          string `json:"payee" validate:"required,max=100"`
	Amount         string `json:"amount" validate:"required"`
	IssuedDate     string `json:"issued_date" validate:"omitempty,datetime=2006-01-02"`
	JournalEntryID *int64 `json:"journal_entry_id,omitempty"`
}

type TransitionRequest struct {
	Status string `json:"status" validate:"required,oneof=CLEARED VOIDED STOPPED"`
}

type CheckResponse struct {
	ID             int64        `json:"id"`
	BankAccountID  int64        `json:"bank_account_id"`
	CheckNumber    string       `json:"check_number"`
	Payee          string       `json:"payee"`
	Amount         shared.Money `json:"amount"`
	Status         CheckStatus  `json:"status"`
	IssuedDate     string       `json:"issued_date"`
	ClearedDate    *string      `json:"cleared_date,omitempty"`
	JournalEntryID *int64       `json:"journal_entry_id,omitempty"`
}

func toCheckResponse(c Check) CheckResponse {
	out := CheckResponse{
		ID:             c.ID,
		BankAccountID:  c.BankAccountID,
		CheckNumber:    c.CheckNumber,
		Payee:          c.Payee,
		Amount:         c.Amount,
		Status:         c.Status,
		IssuedDate:     c.IssuedDate.Format("2006-01-02"),
		JournalEntryID: c.JournalEntryID,
	}
	if c.ClearedDate != nil {
		cleared := c.ClearedDate.Format("2006-01-02")
		out.ClearedDate = &cleared
	}
	return out
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
	r.Get("/", h.List)
	r.Post("/", h.Issue)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Transition)
}

func (h *Handler) Issue(w http.ResponseWriter, r *http.Request) {
	var req IssueRequest
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
	in := IssueInput{
		BankAccountID:  req.BankAccountID,
		CheckNumber:    req.CheckNumber,
		Payee:          req.Payee,
		Amount:         amount,
		JournalEntryID: req.JournalEntryID,
	}
	if req.IssuedDate != "" {
		in.IssuedDate, _ = time.Parse("2006-01-02", req.IssuedDate)
	}
	check, err := h.service.Issue(r.Context(), in)
	if err != nil {
		h.logger.Error("issue check", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toCheckResponse(check))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := checkID(w, r)
	if !ok {
		return
	}
	check, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toCheckResponse(check))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	bankAccountID, err := strconv.ParseInt(r.URL.Query().Get("bank_account_id"), 10, 64)
	if err != nil || bankAccountID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "bank_account_id query parameter required")
		return
	}
	out, err := h.service.ListByBankAccount(r.Context(), bankAccountID)
	if err != nil {
		h.logger.Error("list checks", slog.Any("error", err), slog.Int64("bank_account_id", bankAccountID))
		httpx.RespondError(w, err)
		return
	}
	resp := make([]CheckResponse, 0, len(out))
	for _, c := range out {
		resp = append(resp, toCheckResponse(c))
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) Transition(w http.ResponseWriter, r *http.Request) {
	id, ok := checkID(w, r)
	if !ok {
		return
	}
	var req TransitionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	check, err := h.service.Transition(r.Context(), id, CheckStatus(req.Status))
	if err != nil {
		h.logger.Error("transition check", slog.Any("error", err), slog.Int64("check_id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toCheckResponse(check))
}

func checkID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid check id")
		return 0, false
	}
	return id, true
}
