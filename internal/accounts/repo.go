package accounts

import (
	"context"

	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ArtistRepository caches connected-account status per artist.
type ArtistRepository interface {
	FindByAccountID(ctx context.Context, accountID string) (*models.Artist, error)
	Upsert(ctx context.Context, artist *models.Artist) (*models.Artist, error)
	DeleteByAccountID(ctx context.Context, accountID string) error
}

type artistRepository struct {
	db *gorm.DB
}

func NewArtistRepository(db *gorm.DB) ArtistRepository {
	return &artistRepository{db: db}
}

func (r *artistRepository) FindByAccountID(ctx context.Context, accountID string) (*models.Artist, error) {
	var artist models.Artist
	if err := r.db.WithContext(ctx).Where("stripe_account_id = ?", accountID).First(&artist).Error; err != nil {
		return nil, err
	}
	return &artist, nil
}

// Upsert writes the account snapshot keyed by stripe_account_id and returns
// the stored row.
func (r *artistRepository) Upsert(ctx context.Context, artist *models.Artist) (*models.Artist, error) {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "stripe_account_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"email", "country", "business_name",
				"charges_enabled", "payouts_enabled", "details_submitted",
				"currently_due", "disabled_reason", "onboarded",
				"synced_at", "updated_at",
			}),
		}).
		Create(artist).Error
	if err != nil {
		return nil, err
	}
	return r.FindByAccountID(ctx, artist.StripeAccountID)
}

func (r *artistRepository) DeleteByAccountID(ctx context.Context, accountID string) error {
	return r.db.WithContext(ctx).Where("stripe_account_id = ?", accountID).Delete(&models.Artist{}).Error
}
