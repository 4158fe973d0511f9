package journals

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(svc *Service) *Handler {
	return NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)
}

func TestCreateEntryWithoutLineReferences(t *testing.T) {
	store := seedStore()
	h := newTestHandler(newTestService(store, nil))

	body := `{"entry_date":"2025-01-15","memo":"Cash sale","lines":[
		{"account_id":10,"debit":"500.00","description":"cash in"},
		{"account_id":40,"credit":"500.00","description":"sale"}]}`
	req := httptest.NewRequest(http.MethodPost, "/journal-entries", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Create(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp EntryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Lines, 2)
	for _, line := range resp.Lines {
		assert.Nil(t, line.Reference)
	}

	stored, err := store.Get(context.Background(), resp.ID)
	require.NoError(t, err)
	for _, line := range stored.Lines {
		assert.Nil(t, line.Reference)
	}
}

func TestCreateEntryKeepsLineReference(t *testing.T) {
	store := seedStore()
	h := newTestHandler(newTestService(store, nil))

	body := `{"entry_date":"2025-01-15","lines":[
		{"account_id":10,"debit":"12.50","reference":"INV-42"},
		{"account_id":40,"credit":"12.50"}]}`
	req := httptest.NewRequest(http.MethodPost, "/journal-entries", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Create(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp EntryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Lines, 2)
	require.NotNil(t, resp.Lines[0].Reference)
	assert.Equal(t, "INV-42", *resp.Lines[0].Reference)
	assert.Nil(t, resp.Lines[1].Reference)
}

func TestListReturnsPaginationEnvelope(t *testing.T) {
	store := seedStore()
	svc := newTestService(store, nil)
	h := newTestHandler(svc)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, salesInput(1000))
		require.NoError(t, err)
	}

	req := httptest.NewRequest(http.MethodGet, "/journal-entries?page=2&per_page=2", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp ListEntriesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Pagination.Page)
	assert.Equal(t, 2, resp.Pagination.PerPage)
	assert.Equal(t, 3, resp.Pagination.Total)
	assert.Equal(t, 2, resp.Pagination.TotalPages)
	assert.Len(t, resp.Data, 1)
}

func TestListDefaultsPagination(t *testing.T) {
	store := seedStore()
	svc := newTestService(store, nil)
	h := newTestHandler(svc)

	_, err := svc.Create(context.Background(), salesInput(1000))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/journal-entries", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ListEntriesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Pagination.Page)
	assert.Equal(t, 20, resp.Pagination.PerPage)
	assert.Equal(t, 1, resp.Pagination.Total)
	assert.Len(t, resp.Data, 1)
}
