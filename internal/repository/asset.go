package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/cliprelay/relay-server-go/internal/model"
)

type AssetRepository interface {
	FindByID(ctx context.Context, id string) (*model.Asset, error)
	FindByOwnerID(ctx context.Context, ownerID string, limit, offset int) ([]model.Asset, error)
	Create(ctx context.Context, params model.CreateAssetParams) (*model.Asset, error)
}

type assetRepo struct {
	db sqlxDB
}

func NewAssetRepository(db *sqlx.DB) AssetRepository {
	return &assetRepo{db: db}
}

func (r *assetRepo) FindByID(ctx context.Context, id string) (*model.Asset, error) {
	var asset model.Asset
	err := r.db.GetContext(ctx, &asset, `
		SELECT * FROM assets WHERE id = $1
	`, id)
	return HandleNotFound(&asset, err)
}

func (r *assetRepo) FindByOwnerID(ctx context.Context, ownerID string, limit, offset int) ([]model.Asset, error) {
	assets := []model.Asset{}
	err := r.db.SelectContext(ctx, &assets, `
		SELECT * FROM assets
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	return assets, nil
}

func (r *assetRepo) Create(ctx context.Context, params model.CreateAssetParams) (*model.Asset, error) {
	var asset model.Asset
	err := r.db.GetContext(ctx, &asset, `
		INSERT INTO assets (filename, owner_id, location)
		VALUES ($1, $2, $3)
		RETURNING *
	`, params.Filename, params.OwnerID, params.Location)
	if err != nil {
		return nil, err
	}
	return &asset, nil
}
