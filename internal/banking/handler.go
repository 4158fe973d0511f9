package banking

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

type CreateAccountRequest struct {
	Name          string `json:"name" validate:"required,max=100"`
	BankName      string `json:"bank_name" validate:"max=100"`
	AccountNumber string `json:"account_number" validate:"required,max=34"`
	Currency      string `json:"currency" validate:"required,len=3"`
	GLAccountID   int64  `json:"gl_account_id" validate:"required,gt=0"`
}

type ImportTransactionRequest struct {
	Date        string `json:"date" validate:"required,datetime=2006-01-02"`
	Description string `json:"description" validate:"max=255"`
	Amount      string `json:"amount" validate:"required"`
	Direction   string `json:"direction" validate:"required,oneof=DEBIT CREDIT"`
}

type ImportRequest struct {
	Transactions []ImportTransactionRequest `json:"transactions" validate:"required,min=1,max=1000,dive"`
}

type AccountResponse struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	BankName     string `json:"bank_name,omitempty"`
	MaskedNumber string `json:"masked_number"`
	Currency     string `json:"currency"`
	GLAccountID  int64  `json:"gl_account_id"`
}

type TransactionResponse struct {
	ID                   int64        `json:"id"`
	Date                 string       `json:"date"`
	Description          string       `json:"description,omitempty"`
	Amount               shared.Money `json:"amount"`
	Direction            Direction    `json:"direction"`
	Reconciled           bool         `json:"reconciled"`
	MatchedJournalLineID *int64       `json:"matched_journal_line_id,omitempty"`
}

func toAccountResponse(a BankAccount) AccountResponse {
	return AccountResponse{
		ID:           a.ID,
		Name:         a.Name,
		BankName:     a.BankName,
		MaskedNumber: a.MaskedNumber,
		Currency:     a.Currency,
		GLAccountID:  a.GLAccountID,
	}
}

func toTransactionResponse(t BankTransaction) TransactionResponse {
	return TransactionResponse{
		ID:                   t.ID,
		Date:                 t.Date.Format("2006-01-02"),
		Description:          t.Description,
		Amount:               t.Amount,
		Direction:            t.Direction,
		Reconciled:           t.Reconciled,
		MatchedJournalLineID: t.MatchedJournalLineID,
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
	r.Get("/", h.ListAccounts)
	r.Post("/", h.CreateAccount)
	r.Get("/{id}", h.GetAccount)
	r.Get("/{id}/transactions", h.ListTransactions)
	r.Post("/{id}/transactions", h.ImportTransactions)
}

func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	account, err := h.service.CreateAccount(r.Context(), CreateAccountInput{
		Name:          req.Name,
		BankName:      req.BankName,
		AccountNumber: req.AccountNumber,
		Currency:      req.Currency,
		GLAccountID:   req.GLAccountID,
	})
	if err != nil {
		h.logger.Error("create bank account", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toAccountResponse(account))
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}
	account, err := h.service.GetAccount(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toAccountResponse(account))
}

func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.ListAccounts(r.Context())
	if err != nil {
		h.logger.Error("list bank accounts", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]AccountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountResponse(a))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}
	onlyUnreconciled := r.URL.Query().Get("unreconciled") == "true"
	txs, err := h.service.ListTransactions(r.Context(), id, onlyUnreconciled)
	if err != nil {
		h.logger.Error("list bank transactions", slog.Any("error", err), slog.Int64("bank_account_id", id))
		httpx.RespondError(w, err)
		return
	}
	out := make([]TransactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, toTransactionResponse(t))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) ImportTransactions(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}
	var req ImportRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	inputs := make([]TransactionInput, 0, len(req.Transactions))
	for _, t := range req.Transactions {
		date, _ := time.Parse("2006-01-02", t.Date)
		amount, err := shared.ParseMoney(t.Amount)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		inputs = append(inputs, TransactionInput{
			Date:        date,
			Description: t.Description,
			Amount:      amount,
			Direction:   Direction(t.Direction),
		})
	}
	txs, err := h.service.ImportTransactions(r.Context(), id, inputs)
	if err != nil {
		h.logger.Error("import bank transactions", slog.Any("error", err), slog.Int64("bank_account_id", id))
		httpx.RespondError(w, err)
		return
	}
	out := make([]TransactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, toTransactionResponse(t))
	}
	httpx.JSON(w, http.StatusCreated, out)
}

func accountID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid bank account id")
		return 0, false
	}
	return id, true
}
