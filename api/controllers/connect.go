package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/api/responses"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/api/validators"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/internal/accounts"
	pkgerrors "github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/errors"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/logger"
)

// ConnectAccounts manages the artist's connected payout account.
type ConnectAccounts interface {
	CreateAccount(ctx context.Context, input accounts.CreateAccountInput) (*accounts.Account, error)
	CreateAccountLink(ctx context.Context, input accounts.LinkInput) (*accounts.Link, error)
	GetAccount(ctx context.Context, id string) (*accounts.Account, error)
	UpdateAccount(ctx context.Context, id string, input accounts.UpdateInput) (*accounts.Account, error)
	DeleteAccount(ctx context.Context, id string) error
	CreateLoginLink(ctx context.Context, id string) (*accounts.Link, error)
	GetBalance(ctx context.Context, id string) (*accounts.Balance, error)
	ListTransfers(ctx context.Context, id string, limit int) ([]accounts.Transfer, error)
	ListPayouts(ctx context.Context, id string, limit int) ([]accounts.Payout, error)
}

func connectUnavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "connect service unavailable"))
}

type createAccountRequest struct {
	Email        string `json:"email" validate:"required,email"`
	Country      string `json:"country,omitempty" validate:"omitempty,len=2"`
	BusinessName string `json:"businessName,omitempty"`
}

func CreateConnectAccount(svc ConnectAccounts, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			connectUnavailable(w, r, logg)
			return
		}
		var payload createAccountRequest
		if err := validators.DecodeJSONBodyLoose(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		acct, err := svc.CreateAccount(r.Context(), accounts.CreateAccountInput{
			Email:        strings.TrimSpace(payload.Email),
			Country:      strings.ToUpper(strings.TrimSpace(payload.Country)),
			BusinessName: strings.TrimSpace(payload.BusinessName),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, acct)
	}
}

type accountLinkRequest struct {
	AccountID  string `json:"accountId" validate:"required"`
	RefreshURL string `json:"refreshUrl,omitempty" validate:"omitempty,url"`
	ReturnURL  string `json:"returnUrl,omitempty" validate:"omitempty,url"`
}

func CreateConnectAccountLink(svc ConnectAccounts, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			connectUnavailable(w, r, logg)
			return
		}
		var payload accountLinkRequest
		if err := validators.DecodeJSONBodyLoose(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		link, err := svc.CreateAccountLink(r.Context(), accounts.LinkInput{
			AccountID:  strings.TrimSpace(payload.AccountID),
			RefreshURL: payload.RefreshURL,
			ReturnURL:  payload.ReturnURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, link)
	}
}

func GetConnectAccount(svc ConnectAccounts, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			connectUnavailable(w, r, logg)
			return
		}
		id, err := stringParam(r, "accountId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		acct, err := svc.GetAccount(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, acct)
	}
}

type updateAccountRequest struct {
	BusinessProfile     *accounts.BusinessProfile `json:"business_profile,omitempty"`
	Metadata            map[string]string         `json:"metadata,omitempty"`
	PayoutInterval      string                    `json:"payout_interval,omitempty"`
	StatementDescriptor string                    `json:"statement_descriptor,omitempty" validate:"omitempty,max=22"`
}

func UpdateConnectAccount(svc ConnectAccounts, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			connectUnavailable(w, r, logg)
			return
		}
		id, err := stringParam(r, "accountId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload updateAccountRequest
		if err := validators.DecodeJSONBodyLoose(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		acct, err := svc.UpdateAccount(r.Context(), id, accounts.UpdateInput{
			BusinessProfile:     payload.BusinessProfile,
			Metadata:            payload.Metadata,
			PayoutInterval:      strings.TrimSpace(payload.PayoutInterval),
			StatementDescriptor: strings.TrimSpace(payload.StatementDescriptor),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, acct)
	}
}

func DeleteConnectAccount(svc ConnectAccounts, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			connectUnavailable(w, r, logg)
			return
		}
		id, err := stringParam(r, "accountId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteAccount(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"id": id, "deleted": true})
	}
}

type loginLinkRequest struct {
	AccountID string `json:"accountId" validate:"required"`
}

func CreateConnectLoginLink(svc ConnectAccounts, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			connectUnavailable(w, r, logg)
			return
		}
		var payload loginLinkRequest
		if err := validators.DecodeJSONBodyLoose(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		link, err := svc.CreateLoginLink(r.Context(), strings.TrimSpace(payload.AccountID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, link)
	}
}

func GetConnectBalance(svc ConnectAccounts, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			connectUnavailable(w, r, logg)
			return
		}
		id, err := stringParam(r, "accountId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		balance, err := svc.GetBalance(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, balance)
	}
}

func ListConnectTransfers(svc ConnectAccounts, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			connectUnavailable(w, r, logg)
			return
		}
		id, err := stringParam(r, "accountId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 10, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		transfers, err := svc.ListTransfers(r.Context(), id, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, transfers)
	}
}

func ListConnectPayouts(svc ConnectAccounts, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			connectUnavailable(w, r, logg)
			return
		}
		id, err := stringParam(r, "accountId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 10, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payouts, err := svc.ListPayouts(r.Context(), id, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payouts)
	}
}
