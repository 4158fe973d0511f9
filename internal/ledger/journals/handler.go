package journals

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/meridian-books/meridian/internal/ledger/shared"
	"github.com/meridian-books/meridian/internal/platform/httpx"
	internalShared "github.com/meridian-books/meridian/internal/shared"
)

type CreateEntryRequest struct {
	EntryDate      string             `json:"entry_date" validate:"required,datetime=2006-01-02"`
	Memo           string             `json:"memo" validate:"max=500"`
	IdempotencyKey string             `json:"idempotency_key,omitempty" validate:"omitempty,uuid4"`
	Lines          []CreateLineRequest `json:"lines" validate:"required,min=2,dive"`
}

type CreateLineRequest struct {
	AccountID   int64   `json:"account_id" validate:"required,gt=0"`
	Debit       string  `json:"debit,omitempty"`
	Credit      string  `json:"credit,omitempty"`
	Description string  `json:"description" validate:"max=255"`
	Reference   *string `json:"reference,omitempty"`
}

type ReverseRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type BulkPostRequest struct {
	EntryIDs []int64 `json:"entry_ids" validate:"required,min=1,max=500,dive,gt=0"`
}

type LineResponse struct {
	ID          int64        `json:"id"`
	AccountID   int64        `json:"account_id"`
	Debit       shared.Money `json:"debit"`
	Credit      shared.Money `json:"credit"`
	Description string       `json:"description,omitempty"`
	Reference   *string      `json:"reference,omitempty"`
}

type EntryResponse struct {
	ID         int64          `json:"id"`
	PeriodID   int64          `json:"period_id"`
	EntryDate  string         `json:"entry_date"`
	Memo       string         `json:"memo,omitempty"`
	Status     string         `json:"status"`
	PostedAt   *time.Time     `json:"posted_at,omitempty"`
	ReversalOf *int64         `json:"reversal_of,omitempty"`
	ReversedBy *int64         `json:"reversed_by,omitempty"`
	Lines      []LineResponse `json:"lines,omitempty"`
}

func toEntryResponse(e JournalEntry) EntryResponse {
	out := EntryResponse{
		ID:         e.ID,
		PeriodID:   e.PeriodID,
		EntryDate:  e.EntryDate.Format("2006-01-02"),
		Memo:       e.Memo,
		Status:     string(e.Status),
		PostedAt:   e.PostedAt,
		ReversalOf: e.ReversalOf,
		ReversedBy: e.ReversedBy,
	}
	for _, line := range e.Lines {
		out.Lines = append(out.Lines, LineResponse{
			ID:          line.ID,
			AccountID:   line.AccountID,
			Debit:       line.Debit,
			Credit:      line.Credit,
			Description: line.Description,
			Reference:   line.Reference,
		})
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

type ListEntriesResponse struct {
	Data       []EntryResponse           `json:"data"`
	Pagination internalShared.Pagination `json:"pagination"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	entries, pagination, err := h.service.List(r.Context(), page, perPage)
	if err != nil {
		h.logger.Error("list journals", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := ListEntriesResponse{Data: make([]EntryResponse, 0, len(entries)), Pagination: pagination}
	for _, e := range entries {
		out.Data = append(out.Data, toEntryResponse(e))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := entryID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid entry id")
		return
	}
	entry, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toEntryResponse(entry))
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateEntryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	in, err := h.toCreateInput(r, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	entry, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.logger.Error("create journal", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toEntryResponse(entry))
}

func (h *Handler) toCreateInput(r *http.Request, req CreateEntryRequest) (CreateInput, error) {
	entryDate, _ := time.Parse("2006-01-02", req.EntryDate)
	actor := internalShared.ActorFromContext(r.Context())
	in := CreateInput{
		EntryDate: entryDate,
		Memo:      req.Memo,
		ActorID:   actor.ID,
	}
	if req.IdempotencyKey != "" {
		key, err := uuid.Parse(req.IdempotencyKey)
		if err != nil {
			return CreateInput{}, shared.ErrValidation
		}
		in.IdempotencyKey = &key
	}
	for _, lineReq := range req.Lines {
		line := LineInput{
			AccountID:   lineReq.AccountID,
			Description: lineReq.Description,
			Reference:   lineReq.Reference,
		}
		var err error
		if lineReq.Debit != "" {
			if line.Debit, err = shared.ParseMoney(lineReq.Debit); err != nil {
				return CreateInput{}, err
			}
		}
		if lineReq.Credit != "" {
			if line.Credit, err = shared.ParseMoney(lineReq.Credit); err != nil {
				return CreateInput{}, err
			}
		}
		in.Lines = append(in.Lines, line)
	}
	return in, nil
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(id int64, actor internalShared.Actor) (JournalEntry, error) {
		return h.service.Submit(r.Context(), id, actor.ID)
	})
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(id int64, actor internalShared.Actor) (JournalEntry, error) {
		return h.service.Approve(r.Context(), id, actor.Role, actor.ID)
	})
}

func (h *Handler) Post(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(id int64, actor internalShared.Actor) (JournalEntry, error) {
		return h.service.Post(r.Context(), id, actor.ID)
	})
}

func (h *Handler) Reverse(w http.ResponseWriter, r *http.Request) {
	id, err := entryID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid entry id")
		return
	}
	var req ReverseRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
			return
		}
	}
	actor := internalShared.ActorFromContext(r.Context())
	reversal, err := h.service.Reverse(r.Context(), ReverseInput{EntryID: id, ActorID: actor.ID, Reason: req.Reason})
	if err != nil {
		h.logger.Error("reverse journal", slog.Any("error", err), slog.Int64("entry_id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toEntryResponse(reversal))
}

func (h *Handler) BulkPost(w http.ResponseWriter, r *http.Request) {
	var req BulkPostRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actor := internalShared.ActorFromContext(r.Context())
	result := h.service.BulkPost(r.Context(), req.EntryIDs, actor.ID)
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn func(int64, internalShared.Actor) (JournalEntry, error)) {
	id, err := entryID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid entry id")
		return
	}
	entry, err := fn(id, internalShared.ActorFromContext(r.Context()))
	if err != nil {
		h.logger.Error("journal transition", slog.Any("error", err), slog.Int64("entry_id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toEntryResponse(entry))
}

func entryID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.ErrValidation
	}
	return id, nil
}
