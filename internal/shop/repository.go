package shop

import (
	"context"

	"github.com/fekuna/shopsync-service/internal/model"
)

type Repository interface {
	// Upsert installs the shop or refreshes its access token.
	Upsert(ctx context.Context, shop *model.Shop) error
	FindByDomain(ctx context.Context, domain string) (*model.Shop, error)
	FindByID(ctx context.Context, id int64) (*model.Shop, error)
}
