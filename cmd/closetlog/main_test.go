package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/closetlog/internal/db"
	"github.com/closetlog/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		userIfAbsent = false
		userPassword = ""
	})
	return rootCmd.Execute()
}

func TestUserAddAndRecount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "closet.db")

	require.NoError(t, runCLI(t, "--db", path, "user", "add", "erin", "--password", "hunter22"))
	assert.Error(t, runCLI(t, "--db", path, "user", "add", "erin", "--password", "hunter22"))
	assert.NoError(t, runCLI(t, "--db", path, "user", "add", "erin", "--password", "hunter22", "--if-absent"))

	gdb, err := db.Open(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})

	user, err := db.Authenticate(gdb, "erin", "hunter22")
	require.NoError(t, err)

	ctx := context.Background()
	store := db.NewWardrobeStore(gdb)
	garment := &db.Garment{UserID: user.ID, Name: "Grey Hoodie", PhotoURL: "garments/hoodie.jpg", Quantity: 1, Category: db.CategoryTops, Season: db.SeasonAll}
	require.NoError(t, store.InsertGarment(ctx, garment))

	_, err = service.NewOutfitService(store).CreateOutfit(ctx, user.ID, service.OutfitInput{
		PhotoURL:   "outfits/look.jpg",
		WornDate:   time.Date(2024, 2, 1, 0, 0, 0, 0, time.Local),
		GarmentIDs: []uint{garment.ID},
	})
	require.NoError(t, err)
	require.NoError(t, store.SetGarmentUseCount(ctx, garment.ID, user.ID, 7))

	require.NoError(t, runCLI(t, "--db", path, "recount"))

	count, err := store.GetGarmentUseCount(ctx, garment.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestUserAddRejectsShortPassword(t *testing.T) {
	path := filepath.Join(t.TempDir(), "closet.db")
	assert.Error(t, runCLI(t, "--db", path, "user", "add", "frank", "--password", "abc"))
}
