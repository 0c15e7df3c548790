package model

import (
	"time"
)

type Asset struct {
	ID        string    `db:"id" json:"id"`
	Filename  string    `db:"filename" json:"filename"`
	OwnerID   string    `db:"owner_id" json:"ownerId"`
	Location  string    `db:"location" json:"location"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type CreateAssetParams struct {
	Filename string
	OwnerID  string
	Location string
}

// AssetScope narrows an asset listing to one side of a pairing.
type AssetScope string

const (
	AssetScopeAll         AssetScope = ""
	AssetScopeSelf        AssetScope = "self"
	AssetScopeCounterpart AssetScope = "counterpart"
)

func (s AssetScope) Valid() bool {
	switch s {
	case AssetScopeAll, AssetScopeSelf, AssetScopeCounterpart:
		return true
	}
	return false
}
