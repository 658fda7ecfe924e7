package service

import (
	"fmt"
	"strings"
	"testing"

	"github.com/closetlog/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func closetGarment(id uint, name, category string) db.Garment {
	return db.Garment{ID: id, UserID: 1, Name: name, Category: category, Season: db.SeasonAll, Quantity: 1}
}

func TestMatchAcceptsOverlappingDescription(t *testing.T) {
	matcher := NewGarmentMatcher(nil)
	closet := []db.Garment{closetGarment(7, "Blue Cotton Shirt", db.CategoryTops)}

	result := matcher.Match(DetectedGarment{Name: "blue shirt", Description: "cotton", Category: "tops"}, closet)

	require.True(t, result.Matched())
	assert.Equal(t, uint(7), result.Garment.ID)
	assert.Equal(t, 100, result.Confidence)
}

func TestMatchThresholdIsStrict(t *testing.T) {
	matcher := NewGarmentMatcher(nil)

	// 10 个识别词命中 3 个：0.3，不通过
	atThreshold := matcher.Match(DetectedGarment{
		Name:     "aaa bbb ccc ddd eee fff ggg hhh iii jjj",
		Category: "tops",
	}, []db.Garment{closetGarment(1, "aaa bbb ccc", db.CategoryTops)})
	assert.False(t, atThreshold.Matched())
	assert.Equal(t, 0, atThreshold.Confidence)

	// 100 个识别词命中 31 个：0.31，通过
	detected := make([]string, 0, 100)
	for i := 0; i < 100; i++ {
		detected = append(detected, fmt.Sprintf("tok%03d", i))
	}
	candidate := strings.Join(detected[:31], " ")
	aboveThreshold := matcher.Match(DetectedGarment{
		Name:     strings.Join(detected, " "),
		Category: "tops",
	}, []db.Garment{closetGarment(2, candidate, db.CategoryTops)})
	require.True(t, aboveThreshold.Matched())
	assert.Equal(t, 31, aboveThreshold.Confidence)
}

func TestMatchRequiresSameCategory(t *testing.T) {
	matcher := NewGarmentMatcher(nil)
	closet := []db.Garment{closetGarment(3, "white leather sneakers", db.CategoryTops)}

	result := matcher.Match(DetectedGarment{Name: "white leather sneakers", Category: "shoes"}, closet)

	assert.False(t, result.Matched())
	assert.Equal(t, 0, result.Confidence)
}

func TestMatchCategoryIsCaseInsensitive(t *testing.T) {
	matcher := NewGarmentMatcher(nil)
	closet := []db.Garment{closetGarment(4, "black jeans", "Bottoms")}

	result := matcher.Match(DetectedGarment{Name: "Black Jeans", Category: "BOTTOMS"}, closet)

	require.True(t, result.Matched())
	assert.Equal(t, uint(4), result.Garment.ID)
}

func TestMatchCoercesUnknownDetectedCategory(t *testing.T) {
	matcher := NewGarmentMatcher(nil)
	closet := []db.Garment{closetGarment(6, "blue cotton shirt", db.CategoryTops)}

	result := matcher.Match(DetectedGarment{Name: "blue cotton shirt", Category: "Shirts"}, closet)

	require.True(t, result.Matched())
	assert.Equal(t, uint(6), result.Garment.ID)
}

func TestMatchEmptyClosetAndMissingDescription(t *testing.T) {
	matcher := NewGarmentMatcher(nil)

	empty := matcher.Match(DetectedGarment{Name: "red scarf", Category: "accessories"}, nil)
	assert.False(t, empty.Matched())

	result := matcher.Match(DetectedGarment{Name: "red wool scarf", Category: "accessories"},
		[]db.Garment{closetGarment(5, "red scarf", db.CategoryAccessories)})
	require.True(t, result.Matched())
	assert.Equal(t, 67, result.Confidence)
}

func TestMatchTieKeepsFirstCandidate(t *testing.T) {
	matcher := NewGarmentMatcher(nil)
	closet := []db.Garment{
		closetGarment(10, "grey hoodie", db.CategoryTops),
		closetGarment(11, "grey hoodie", db.CategoryTops),
	}

	first := matcher.Match(DetectedGarment{Name: "grey hoodie", Category: "tops"}, closet)
	second := matcher.Match(DetectedGarment{Name: "grey hoodie", Category: "tops"}, closet)

	require.True(t, first.Matched())
	assert.Equal(t, uint(10), first.Garment.ID)
	assert.Equal(t, first, second)
}

func TestMatchPrefersHigherScore(t *testing.T) {
	matcher := NewGarmentMatcher(nil)
	closet := []db.Garment{
		closetGarment(20, "navy coat", db.CategoryOuterwear),
		closetGarment(21, "navy wool coat", db.CategoryOuterwear),
	}

	result := matcher.Match(DetectedGarment{Name: "navy wool coat", Category: "outerwear"}, closet)

	require.True(t, result.Matched())
	assert.Equal(t, uint(21), result.Garment.ID)
}

func TestTokenOverlapIgnoresShortTokens(t *testing.T) {
	score := TokenOverlap{}.Score("a to red hat", "red hat")
	assert.InDelta(t, 1.0, score, 1e-9)

	assert.Equal(t, 0.0, TokenOverlap{}.Score("", ""))
}

func TestEditDistanceSimilarity(t *testing.T) {
	similarity := NewSimilarity("levenshtein")
	require.IsType(t, EditDistance{}, similarity)

	assert.InDelta(t, 1.0, similarity.Score("denim jacket", "denim jacket"), 1e-9)
	assert.InDelta(t, 0.75, similarity.Score("coat", "boat"), 1e-9)
	assert.Equal(t, 0.0, similarity.Score("", ""))

	assert.IsType(t, TokenOverlap{}, NewSimilarity("unknown"))
}

func TestNormalizeCategoryAndSeason(t *testing.T) {
	assert.Equal(t, db.CategoryShoes, NormalizeCategory(" SHOES "))
	assert.Equal(t, db.CategoryTops, NormalizeCategory("hats"))
	assert.Equal(t, db.CategoryTops, NormalizeCategory(""))

	assert.Equal(t, db.SeasonMid, NormalizeSeason("Mid Season"))
	assert.Equal(t, db.SeasonAll, NormalizeSeason("all season"))
	assert.Equal(t, db.SeasonWinter, NormalizeSeason("winter"))
	assert.Equal(t, db.SeasonAll, NormalizeSeason("spring"))
}
