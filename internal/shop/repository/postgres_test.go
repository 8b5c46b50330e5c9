package repository_test

import (
	"context"
	"testing"

	"github.com/fekuna/shopsync-service/internal/database/dbtest"
	"github.com/fekuna/shopsync-service/internal/model"
	"github.com/fekuna/shopsync-service/internal/shop/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertAndFind(t *testing.T) {
	repo := repository.NewPGRepository(dbtest.New(t))
	ctx := context.Background()

	s := &model.Shop{Domain: " Demo.myshopify.com", AccessToken: "shpat_1"}
	require.NoError(t, repo.Upsert(ctx, s))
	require.NotZero(t, s.ID)
	assert.Equal(t, "demo.myshopify.com", s.Domain)

	again := &model.Shop{Domain: "demo.myshopify.com", AccessToken: "shpat_2"}
	require.NoError(t, repo.Upsert(ctx, again))
	assert.Equal(t, s.ID, again.ID)

	got, err := repo.FindByDomain(ctx, "DEMO.myshopify.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "shpat_2", got.AccessToken)

	byID, err := repo.FindByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, got.Domain, byID.Domain)

	missing, err := repo.FindByDomain(ctx, "nope.myshopify.com")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
