package controllers

import (
	"net/http"
	"strings"

	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/api/middleware"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/api/responses"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/api/validators"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/internal/notifications"
	pkgerrors "github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/errors"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/logger"
)

const audienceSeller = "seller"

// recipientFor resolves whose inbox is addressed. Admins may read the
// seller inbox with ?audience=seller.
func recipientFor(r *http.Request, sellerRecipient string) (string, error) {
	userID, err := requireUser(r)
	if err != nil {
		return "", err
	}
	if !strings.EqualFold(strings.TrimSpace(r.URL.Query().Get("audience")), audienceSeller) {
		return userID, nil
	}
	if !middleware.IsAdminFromContext(r.Context()) {
		return "", pkgerrors.New(pkgerrors.CodeForbidden, "seller notifications require admin")
	}
	if sellerRecipient == "" {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "seller inbox not configured")
	}
	return sellerRecipient, nil
}

// ListNotifications returns paginated notifications for the caller.
func ListNotifications(svc notifications.Service, sellerRecipient string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}
		recipient, err := recipientFor(r, sellerRecipient)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		unreadOnly, err := validators.ParseQueryBool(r, "unreadOnly", false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp, err := svc.List(r.Context(), notifications.ListParams{
			Recipient:  recipient,
			Limit:      limit,
			Cursor:     strings.TrimSpace(r.URL.Query().Get("cursor")),
			UnreadOnly: unreadOnly,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

func MarkNotificationRead(svc notifications.Service, sellerRecipient string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}
		recipient, err := recipientFor(r, sellerRecipient)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := uuidParam(r, "notificationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.MarkRead(r.Context(), recipient, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"id": id, "read": true})
	}
}

func MarkAllNotificationsRead(svc notifications.Service, sellerRecipient string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}
		recipient, err := recipientFor(r, sellerRecipient)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		updated, err := svc.MarkAllRead(r.Context(), recipient)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int64{"updated": updated})
	}
}
