package notifications

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/db/models"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/enums"
	pkgerrors "github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/errors"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/pagination"
)

// SellerRecipient is the inbox shared by the artist and shop admins.
const SellerRecipient = "seller"

// Service defines notification create/list/read operations.
type Service interface {
	Notify(ctx context.Context, notice Notice) (*models.Notification, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	MarkRead(ctx context.Context, recipient string, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, recipient string) (int64, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

// Notice is a notification about to be delivered.
type Notice struct {
	Recipient string
	Type      enums.NotificationType
	Title     string
	Message   string
	Link      string
}

// ListParams configures pagination for notifications.
type ListParams struct {
	Recipient  string
	Limit      int
	Cursor     string
	UnreadOnly bool
}

// ListResult wraps returned notifications and the cursor for the next page.
type ListResult struct {
	Items  []models.Notification `json:"items"`
	Cursor string                `json:"cursor"`
}

// NewService wires notifications dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) Notify(ctx context.Context, notice Notice) (*models.Notification, error) {
	recipient := strings.TrimSpace(notice.Recipient)
	if recipient == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "notification recipient required")
	}
	if !notice.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid notification type")
	}

	row := &models.Notification{
		Recipient: recipient,
		Type:      notice.Type,
		Title:     notice.Title,
		Message:   notice.Message,
		CreatedAt: s.now().UTC(),
	}
	if link := strings.TrimSpace(notice.Link); link != "" {
		row.Link = &link
	}
	if err := s.repo.Create(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create notification")
	}
	return row, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if strings.TrimSpace(params.Recipient) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipient required")
	}

	query := listNotificationsParams{
		Recipient:  params.Recipient,
		Limit:      pagination.LimitWithBuffer(params.Limit),
		UnreadOnly: params.UnreadOnly,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}

	page := pagination.Trim(rows, params.Limit, func(n models.Notification) pagination.Cursor {
		return pagination.Cursor{CreatedAt: n.CreatedAt, ID: n.ID}
	})
	return &ListResult{Items: page.Items, Cursor: page.NextCursor}, nil
}

func (s *service) MarkRead(ctx context.Context, recipient string, notificationID uuid.UUID) error {
	if strings.TrimSpace(recipient) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "recipient required")
	}
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}

	result, err := s.repo.MarkRead(ctx, recipient, notificationID, s.now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if !result.Found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, recipient string) (int64, error) {
	if strings.TrimSpace(recipient) == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "recipient required")
	}

	count, err := s.repo.MarkAllRead(ctx, recipient, s.now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return count, nil
}
