package accounts

import (
	"time"

	"github.com/meridian-books/meridian/internal/ledger/shared"
)

type CreateAccountRequest struct {
	Code     string `json:"code" validate:"required,max=20"`
	Name     string `json:"name" validate:"required,max=120"`
	Type     string `json:"type" validate:"required,oneof=ASSET LIABILITY EQUITY REVENUE EXPENSE"`
	ParentID *int64 `json:"parent_id,omitempty"`
}

type AccountResponse struct {
	ID         int64  `json:"id"`
	Code       string `json:"code"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	ParentID   *int64 `json:"parent_id,omitempty"`
	NormalSide string `json:"normal_side"`
	IsActive   bool   `json:"is_active"`
}

type BalanceResponse struct {
	AccountID  int64        `json:"account_id"`
	Code       string       `json:"code"`
	AsOfDate   time.Time    `json:"as_of_date"`
	NormalSide string       `json:"normal_side"`
	Balance    shared.Money `json:"balance"`
}

func toAccountResponse(a Account) AccountResponse {
	return AccountResponse{
		ID:         a.ID,
		Code:       a.Code,
		Name:       a.Name,
		Type:       string(a.Type),
		ParentID:   a.ParentID,
		NormalSide: string(a.NormalSide()),
		IsActive:   a.IsActive,
	}
}
