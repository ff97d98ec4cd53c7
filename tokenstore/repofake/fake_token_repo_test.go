package repofake_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flairlondon/freeagent-bridge/internal/errors"
	"github.com/flairlondon/freeagent-bridge/tokenstore"
	"github.com/flairlondon/freeagent-bridge/tokenstore/repofake"
)

func TestFakeTokenRepo_RoundTrip(t *testing.T) {
	repo := repofake.NewFakeTokenRepo()
	ctx := context.Background()

	record := &tokenstore.TokenRecord{
		UserID:       "u1",
		AccessToken:  "A1",
		RefreshToken: "R1",
		ExpiresIn:    3600,
		Timestamp:    time.Now(),
	}
	require.NoError(t, repo.Upsert(ctx, record))

	got, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, record, got)

	// Overwrite replaces the whole record
	record.AccessToken = "A2"
	require.NoError(t, repo.Upsert(ctx, record))
	got, err = repo.Get(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "A2", got.AccessToken)
}

func TestFakeTokenRepo_GetUnknownUser(t *testing.T) {
	repo := repofake.NewFakeTokenRepo()

	_, err := repo.Get(context.Background(), "missing")
	require.ErrorIs(t, err, errors.ErrUserNotFound)
}

func TestFakeTokenRepo_ReturnsCopies(t *testing.T) {
	repo := repofake.NewFakeTokenRepo()
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &tokenstore.TokenRecord{UserID: "u1", AccessToken: "A1"}))

	got, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	got.AccessToken = "mutated"

	again, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "A1", again.AccessToken)
}

func TestFakeTokenRepo_ListSortedByUserID(t *testing.T) {
	repo := repofake.NewFakeTokenRepo()
	ctx := context.Background()

	for _, userID := range []string{"u3", "u1", "u2"} {
		require.NoError(t, repo.Upsert(ctx, &tokenstore.TokenRecord{UserID: userID}))
	}

	records, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, "u1", records[0].UserID)
	require.Equal(t, "u2", records[1].UserID)
	require.Equal(t, "u3", records[2].UserID)
}
