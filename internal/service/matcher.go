package service

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/closetlog/internal/db"
)

// MatchThreshold 相似度必须严格大于该值才视为同一件衣物。
const MatchThreshold = 0.3

// 相似度算法名称，对应配置项 MATCHER_SIMILARITY。
const (
	SimilarityTokenOverlap = "token"
	SimilarityLevenshtein  = "levenshtein"
)

// DetectedGarment 是识图模型对照片中一件衣物的描述，不落库。
type DetectedGarment struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Season      string `json:"season"`
	Description string `json:"description"`
}

// MatchResult 记录一次匹配的结果；Garment 为空表示未匹配，此时 Confidence 为 0。
type MatchResult struct {
	Detection  DetectedGarment `json:"detection"`
	Garment    *db.Garment     `json:"matched_garment,omitempty"`
	Confidence int             `json:"confidence"`
}

// Matched 表示是否找到了衣橱中的对应衣物。
func (m MatchResult) Matched() bool {
	return m.Garment != nil
}

// Similarity 计算识别描述与候选衣物名称的相似度，取值 [0,1]。
type Similarity interface {
	Score(detected, candidate string) float64
}

// TokenOverlap 按空白切词，丢弃长度不超过 2 的词，
// 识别侧每个词只要与候选侧任一词互为子串即计一次命中。
type TokenOverlap struct{}

// Score 返回 命中数 / max(两侧词数, 1)。
func (TokenOverlap) Score(detected, candidate string) float64 {
	left := significantTokens(detected)
	right := significantTokens(candidate)

	matches := 0
	for _, word := range left {
		for _, other := range right {
			if strings.Contains(word, other) || strings.Contains(other, word) {
				matches++
				break
			}
		}
	}

	return float64(matches) / float64(max(len(left), len(right), 1))
}

func significantTokens(text string) []string {
	fields := strings.Fields(text)
	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		if utf8.RuneCountInString(field) > 2 {
			tokens = append(tokens, field)
		}
	}
	return tokens
}

// EditDistance 以归一化的 Levenshtein 距离衡量整体相似度：1 - d/maxlen。
type EditDistance struct{}

// Score 两侧均为空时返回 0。
func (EditDistance) Score(detected, candidate string) float64 {
	a := strings.TrimSpace(detected)
	b := strings.TrimSpace(candidate)
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 0
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

// NewSimilarity 根据名称返回相似度实现，未知名称回退到 TokenOverlap。
func NewSimilarity(name string) Similarity {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case SimilarityLevenshtein:
		return EditDistance{}
	default:
		return TokenOverlap{}
	}
}

// GarmentMatcher 在用户衣橱中寻找与识别结果相同的衣物，纯函数、无 I/O。
type GarmentMatcher struct {
	similarity Similarity
	threshold  float64
}

// NewGarmentMatcher 构造匹配器，similarity 为空时使用 TokenOverlap。
func NewGarmentMatcher(similarity Similarity) *GarmentMatcher {
	if similarity == nil {
		similarity = TokenOverlap{}
	}
	return &GarmentMatcher{similarity: similarity, threshold: MatchThreshold}
}

// Match 只在同分类的衣物中比较，得分最高且超过阈值者胜出；
// 同分时保留衣橱列表中先出现的一件。
func (m *GarmentMatcher) Match(detected DetectedGarment, closet []db.Garment) MatchResult {
	result := MatchResult{Detection: detected}
	if len(closet) == 0 {
		return result
	}

	category := NormalizeCategory(detected.Category)
	text := strings.ToLower(detected.Name + " " + detected.Description)

	var (
		best      *db.Garment
		bestScore float64
	)
	for i := range closet {
		if strings.ToLower(closet[i].Category) != category {
			continue
		}
		score := m.similarity.Score(text, strings.ToLower(closet[i].Name))
		if score > bestScore && score > m.threshold {
			best = &closet[i]
			bestScore = score
		}
	}

	if best == nil {
		return result
	}

	matched := *best
	result.Garment = &matched
	result.Confidence = int(math.Round(bestScore * 100))
	return result
}

// NormalizeCategory 将不受信任的分类文本归一化，无法识别时回退到 tops。
func NormalizeCategory(category string) string {
	normalized := strings.ToLower(strings.TrimSpace(category))
	if isValidCategory(normalized) {
		return normalized
	}
	return db.CategoryTops
}

// NormalizeSeason 将季节文本归一化（小写、空格转连字符），无法识别时回退到 all-season。
func NormalizeSeason(season string) string {
	normalized := strings.ToLower(strings.TrimSpace(season))
	normalized = strings.Join(strings.Fields(normalized), "-")
	if isValidSeason(normalized) {
		return normalized
	}
	return db.SeasonAll
}

func isValidCategory(category string) bool {
	for _, candidate := range db.Categories {
		if category == candidate {
			return true
		}
	}
	return false
}

func isValidSeason(season string) bool {
	for _, candidate := range db.Seasons {
		if season == candidate {
			return true
		}
	}
	return false
}
