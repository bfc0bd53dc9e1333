// Package web provides HTTP request and response types for the contribution API.
package web

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/sudao/sudao/pkg/models"
	"github.com/sudao/sudao/pkg/services"
)

// ContributionRequest is the body of POST /contributions and of the reset endpoint.
// Amount is a decimal integer in the smallest unit of the deposit asset; a zero or
// negative amount is accepted here and rejected by the workflow with a failed state.
type ContributionRequest struct {
	Amount     string `json:"amount"               validate:"required,max=80"`
	Owner      string `json:"owner"                validate:"required,max=64"`
	Subaccount string `json:"subaccount,omitempty" validate:"omitempty,hexadecimal,max=64"`
	Memo       string `json:"memo,omitempty"       validate:"omitempty,max=32"`
}

func (r ContributionRequest) toStart() (services.StartRequest, error) {
	amount, ok := new(big.Int).SetString(strings.ReplaceAll(strings.TrimSpace(r.Amount), "_", ""), 10)
	if !ok {
		return services.StartRequest{}, fmt.Errorf("%w: %q", models.ErrInvalidAmount, r.Amount)
	}

	account, err := models.NewAccount(r.Owner, r.Subaccount)
	if err != nil {
		return services.StartRequest{}, err
	}

	var memo []byte
	if r.Memo != "" {
		memo = []byte(r.Memo)
	}

	return services.StartRequest{Amount: amount, Account: account, Memo: memo}, nil
}

// ToggleRequest is the body of POST /plugins/:id/toggle.
type ToggleRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// AdvanceResponse pairs the run with the result of the step just executed.
type AdvanceResponse struct {
	Run    *models.RunRecord `json:"run"`
	Result json.RawMessage   `json:"result,omitempty"`
}

// ReconcileResponse pairs the run with the balances read for it.
type ReconcileResponse struct {
	Run      *models.RunRecord `json:"run"`
	Balances models.Balances   `json:"balances"`
}

// ContributionListResponse is the history of one owner, newest first.
type ContributionListResponse struct {
	Owner         string              `json:"owner"`
	Contributions []*models.RunRecord `json:"contributions"`
}
