package settings

import (
	"context"

	"github.com/fekuna/shopsync-service/internal/model"
)

type Repository interface {
	Put(ctx context.Context, setting *model.Setting) error
	FindNamespace(ctx context.Context, shopID int64, namespace string) ([]model.Setting, error)
	Delete(ctx context.Context, shopID int64, namespace, key string) error
}
