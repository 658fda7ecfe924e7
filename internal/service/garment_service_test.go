package service

import (
	"context"
	"testing"

	"github.com/closetlog/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGarmentServiceCreateAndValidate(t *testing.T) {
	_, store := setupWardrobeTestDB(t)
	svc := NewGarmentService(store, nil)
	ctx := context.Background()

	garment, err := svc.Create(ctx, 1, GarmentInput{
		Name:     "  <i>Wool</i>   sweater ",
		PhotoURL: "garments/sweater.jpg",
		Category: "Tops",
		Season:   "winter",
	})
	require.NoError(t, err)
	assert.NotZero(t, garment.ID)
	assert.Equal(t, "Wool sweater", garment.Name)
	assert.Equal(t, 1, garment.Quantity)
	assert.Equal(t, 0, garment.UseCount)

	cases := []struct {
		input GarmentInput
		want  error
	}{
		{GarmentInput{PhotoURL: "p", Category: "tops", Season: "summer"}, ErrGarmentNameMissing},
		{GarmentInput{Name: "n", Category: "tops", Season: "summer"}, ErrGarmentPhotoMissing},
		{GarmentInput{Name: "n", PhotoURL: "p", Category: "hats", Season: "summer"}, ErrGarmentCategoryInvalid},
		{GarmentInput{Name: "n", PhotoURL: "p", Category: "tops", Season: "spring"}, ErrGarmentSeasonInvalid},
		{GarmentInput{Name: "n", PhotoURL: "p", Category: "tops", Season: "summer", Quantity: -1}, ErrGarmentQuantityInvalid},
	}
	for _, tc := range cases {
		_, err := svc.Create(ctx, 1, tc.input)
		assert.ErrorIs(t, err, tc.want, "%+v", tc.input)
	}
}

func TestGarmentServiceUpdateKeepsOwner(t *testing.T) {
	_, store := setupWardrobeTestDB(t)
	svc := NewGarmentService(store, nil)
	ctx := context.Background()

	garment := seedGarment(t, store, 1, "tee", 2)

	name := "Linen tee"
	quantity := 3
	updated, err := svc.Update(ctx, 1, garment.ID, GarmentPatch{Name: &name, Quantity: &quantity})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)
	assert.Equal(t, 3, updated.Quantity)
	assert.Equal(t, 2, updated.UseCount)
	assert.Equal(t, uint(1), updated.UserID)

	negative := -1
	_, err = svc.Update(ctx, 1, garment.ID, GarmentPatch{UseCount: &negative})
	assert.ErrorIs(t, err, ErrGarmentUseCountInvalid)
	_, err = svc.Update(ctx, 2, garment.ID, GarmentPatch{Name: &name})
	assert.ErrorIs(t, err, ErrGarmentNotFound)
}

func TestGarmentServiceListFilters(t *testing.T) {
	_, store := setupWardrobeTestDB(t)
	svc := NewGarmentService(store, nil)
	ctx := context.Background()

	seedGarment(t, store, 1, "b-tee", 1)
	seedGarment(t, store, 1, "a-tee", 5)
	shoes := &db.Garment{UserID: 1, Name: "boots", PhotoURL: "garments/boots.jpg", Category: db.CategoryShoes, Season: db.SeasonWinter, Quantity: 1}
	require.NoError(t, store.InsertGarment(ctx, shoes))
	seedGarment(t, store, 2, "foreign", 9)

	all, err := svc.List(ctx, 1, GarmentFilter{SortBy: "use_count", Order: "desc"})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a-tee", all[0].Name)

	byName, err := svc.List(ctx, 1, GarmentFilter{Category: "tops", SortBy: "name", Order: "asc"})
	require.NoError(t, err)
	require.Len(t, byName, 2)
	assert.Equal(t, "a-tee", byName[0].Name)
	assert.Equal(t, "b-tee", byName[1].Name)

	winter, err := svc.List(ctx, 1, GarmentFilter{Season: "winter", Category: "all"})
	require.NoError(t, err)
	require.Len(t, winter, 1)
	assert.Equal(t, shoes.ID, winter[0].ID)

	_, err = svc.List(ctx, 1, GarmentFilter{Category: "hats"})
	assert.ErrorIs(t, err, ErrGarmentCategoryInvalid)
}

func TestGarmentServiceDeleteRemovesLinksAndPhoto(t *testing.T) {
	_, store := setupWardrobeTestDB(t)
	images := newMemoryImageStore()
	svc := NewGarmentService(store, images)
	outfits := NewOutfitService(store)
	ctx := context.Background()

	garment := seedGarment(t, store, 1, "parka", 0)
	creation, err := outfits.CreateOutfit(ctx, 1, OutfitInput{PhotoURL: "outfits/x.jpg", WornDate: testWornDate, GarmentIDs: []uint{garment.ID}})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, 2, garment.ID), ErrGarmentNotFound)
	require.NoError(t, svc.Delete(ctx, 1, garment.ID))

	links, err := store.FindOutfitGarmentLinks(ctx, creation.Outfit.ID)
	require.NoError(t, err)
	assert.Empty(t, links)
	assert.Equal(t, []string{garment.PhotoURL}, images.deleted)

	_, err = outfits.GetOutfit(ctx, 1, creation.Outfit.ID)
	assert.NoError(t, err, "outfit should survive garment deletion")
}
