package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/goliatone/go-entrada"
	"github.com/goliatone/go-entrada/resolve"
	"github.com/goliatone/go-repository-bun"
	"github.com/rs/xid"
	"github.com/uptrace/bun"
)

// SocialAccountModel is the Bun model for social account links. Unlike the
// user and profile entities the link table is owned by this package, so its
// layout is fixed.
type SocialAccountModel struct {
	bun.BaseModel `bun:"table:social_accounts,alias:sa"`

	UUID        string         `bun:"uuid,pk"`
	UserUUID    string         `bun:"user_uuid,notnull"`
	Provider    string         `bun:"provider,notnull"`
	SocialID    string         `bun:"social_id,notnull"`
	ProfileData map[string]any `bun:"profile_data,type:jsonb"`
	CreatedAt   time.Time      `bun:"created_at,nullzero,default:current_timestamp"`
	UpdatedAt   *time.Time     `bun:"updated_at,nullzero"`
}

// SocialAccounts implements resolve.LinkStore using Bun.
type SocialAccounts struct {
	db *bun.DB
}

// NewSocialAccounts creates the link store.
func NewSocialAccounts(db *bun.DB) *SocialAccounts {
	return &SocialAccounts{db: db}
}

// FindByProviderID implements resolve.LinkStore.
func (s *SocialAccounts) FindByProviderID(ctx context.Context, provider, socialID string) (*resolve.SocialAccount, error) {
	var model SocialAccountModel
	err := s.db.NewSelect().
		Model(&model).
		Where("provider = ? AND social_id = ?", provider, socialID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"provider":  provider,
					"social_id": socialID,
				})
		}
		return nil, err
	}
	return toSocialAccount(&model), nil
}

// FindByUser implements resolve.LinkStore.
func (s *SocialAccounts) FindByUser(ctx context.Context, userUUID string) ([]*resolve.SocialAccount, error) {
	var models []SocialAccountModel
	err := s.db.NewSelect().
		Model(&models).
		Where("user_uuid = ?", userUUID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []*resolve.SocialAccount{}, nil
		}
		return nil, err
	}

	accounts := make([]*resolve.SocialAccount, len(models))
	for i := range models {
		accounts[i] = toSocialAccount(&models[i])
	}
	return accounts, nil
}

// Upsert implements resolve.LinkStore.
func (s *SocialAccounts) Upsert(ctx context.Context, userUUID, provider, socialID string, snapshot entrada.Payload) error {
	return s.UpsertTx(ctx, s.db, userUUID, provider, socialID, snapshot)
}

// UpsertTx implements resolve.LinkStore. The triple is matched exactly:
// an existing row gets its snapshot and timestamp refreshed in place, a
// missing row is inserted with a fresh identifier.
func (s *SocialAccounts) UpsertTx(ctx context.Context, tx bun.IDB, userUUID, provider, socialID string, snapshot entrada.Payload) error {
	existing := new(SocialAccountModel)
	err := tx.NewSelect().
		Model(existing).
		Where("user_uuid = ? AND provider = ? AND social_id = ?", userUUID, provider, socialID).
		Limit(1).
		Scan(ctx)

	if err == nil {
		now := time.Now()
		existing.ProfileData = snapshot
		existing.UpdatedAt = &now
		_, err = tx.NewUpdate().
			Model(existing).
			Column("profile_data", "updated_at").
			WherePK().
			Exec(ctx)
		return err
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	model := &SocialAccountModel{
		UUID:        xid.New().String(),
		UserUUID:    userUUID,
		Provider:    provider,
		SocialID:    socialID,
		ProfileData: snapshot,
		CreatedAt:   time.Now(),
	}
	if model.ProfileData == nil {
		model.ProfileData = map[string]any{}
	}

	_, err = tx.NewInsert().Model(model).Exec(ctx)
	return err
}

// Delete implements resolve.LinkStore.
func (s *SocialAccounts) Delete(ctx context.Context, uuid string) error {
	_, err := s.db.NewDelete().
		Model((*SocialAccountModel)(nil)).
		Where("uuid = ?", uuid).
		Exec(ctx)
	return err
}

func toSocialAccount(m *SocialAccountModel) *resolve.SocialAccount {
	return &resolve.SocialAccount{
		UUID:        m.UUID,
		UserUUID:    m.UserUUID,
		Provider:    m.Provider,
		SocialID:    m.SocialID,
		ProfileData: entrada.Payload(m.ProfileData),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
