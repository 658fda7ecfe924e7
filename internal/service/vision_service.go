package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/closetlog/internal/db"
	"golang.org/x/sync/errgroup"
)

var (
	ErrVisionImageMissing    = errors.New("image data or url is required")
	ErrVisionUnavailable     = errors.New("vision model request failed")
	ErrVisionResponseInvalid = errors.New("vision model returned unparseable content")
	ErrImageURLForbidden     = errors.New("image url is not allowed")
)

const visionSystemPrompt = `You are a fashion analysis assistant that identifies clothing items in outfit photos.
Look at the entire image, include partially visible items, shoes and accessories.

For each garment provide:
1. name: a descriptive name, e.g. "Navy blue cotton crew neck t-shirt"
2. category: exactly one of tops, bottoms, dresses, outerwear, shoes, accessories, pijama
3. season: exactly one of mid-season, summer, winter, all-season
4. description: color, material, style and pattern

Return a JSON object with a "garments" key holding an array:
{"garments": [{"name": "...", "category": "...", "season": "...", "description": "..."}]}`

const visionUserPrompt = `Identify every garment visible in this outfit photo and answer with the JSON object described above.`

const maxVisionOutputTokens = 1000

// detectionKeys 是模型返回对象时可能使用的数组字段名，按优先级排列。
var detectionKeys = []string{"garments", "items", "clothing", "clothes"}

// VisionImage 是待识别的照片，Data 与 URL 二选一，Data 优先。
type VisionImage struct {
	Data     []byte
	MIMEType string
	URL      string
}

// GarmentDetector 调用多模态模型识别照片中的衣物，返回模型原始文本。
type GarmentDetector interface {
	Detect(ctx context.Context, image VisionImage) (string, error)
}

// DetectorFactory 根据当前识图配置创建 GarmentDetector。
type DetectorFactory func(ctx context.Context, settings VisionSettings) (GarmentDetector, error)

// OutfitAnalysis 是一次识图的完整结果，Selection 即确认页的初始状态。
type OutfitAnalysis struct {
	Detections []DetectedGarment
	Closet     []db.Garment
	Selection  Selection
	Provider   string
}

type closetReader interface {
	FindGarmentsByUser(ctx context.Context, userID uint, query db.GarmentQuery) ([]db.Garment, error)
}

type visionSettingsReader interface {
	GetVisionSettings(ctx context.Context) (VisionSettings, error)
}

// OutfitAnalyzer 串起识图、读取衣橱与自动匹配；识图本身不产生任何持久化状态。
type OutfitAnalyzer struct {
	closet     closetReader
	settings   visionSettingsReader
	reconciler *OutfitReconciler
	factory    DetectorFactory
	httpClient *http.Client
}

// NewOutfitAnalyzer 构造 OutfitAnalyzer，factory 为空时按配置选择 Gemini 或 Anthropic。
func NewOutfitAnalyzer(closet closetReader, settings visionSettingsReader, reconciler *OutfitReconciler, factory DetectorFactory) *OutfitAnalyzer {
	if factory == nil {
		factory = NewDetector
	}
	return &OutfitAnalyzer{
		closet:     closet,
		settings:   settings,
		reconciler: reconciler,
		factory:    factory,
		httpClient: newImageHTTPClient(),
	}
}

// SetHTTPClient 替换下载远程照片所用的客户端，主要面向测试场景。
func (a *OutfitAnalyzer) SetHTTPClient(client *http.Client) {
	if client == nil {
		client = newImageHTTPClient()
	}
	a.httpClient = client
}

// NewDetector 是默认的 DetectorFactory。
func NewDetector(ctx context.Context, settings VisionSettings) (GarmentDetector, error) {
	key := strings.TrimSpace(settings.APIKey())
	if key == "" {
		return nil, ErrAIAPIKeyMissing
	}
	switch settings.Provider {
	case VisionProviderAnthropic:
		return NewAnthropicDetector(key, settings.Model), nil
	default:
		return NewGeminiDetector(ctx, key, settings.Model)
	}
}

// Analyze 并行读取衣橱（按使用次数倒序）与调用识图模型，随后执行自动匹配。
// 识别结果为空不是错误，调用方可以退回到手动挑选衣物。
func (a *OutfitAnalyzer) Analyze(ctx context.Context, userID uint, image VisionImage) (*OutfitAnalysis, error) {
	if len(image.Data) == 0 && strings.TrimSpace(image.URL) == "" {
		return nil, ErrVisionImageMissing
	}

	settings, err := a.settings.GetVisionSettings(ctx)
	if err != nil {
		return nil, err
	}
	detector, err := a.factory(ctx, settings)
	if err != nil {
		if errors.Is(err, ErrAIAPIKeyMissing) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrVisionUnavailable, err)
	}
	if closer, ok := detector.(io.Closer); ok {
		defer closer.Close()
	}

	var (
		closet     []db.Garment
		detections []DetectedGarment
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		garments, err := a.closet.FindGarmentsByUser(groupCtx, userID, db.GarmentQuery{SortBy: "use_count", Desc: true})
		if err != nil {
			return fmt.Errorf("load closet: %w", err)
		}
		closet = garments
		return nil
	})
	group.Go(func() error {
		prepared, err := a.prepareImage(groupCtx, image)
		if err != nil {
			return err
		}
		content, err := detector.Detect(groupCtx, prepared)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrVisionUnavailable, err)
		}
		parsed, err := ParseDetections(content)
		if err != nil {
			return err
		}
		detections = parsed
		return nil
	})
	if err := group.Wait(); err != nil {
		return nil, err
	}

	log.Printf("[vision] user=%d detected %d garments against %d in closet", userID, len(detections), len(closet))
	return &OutfitAnalysis{
		Detections: detections,
		Closet:     closet,
		Selection:  a.reconciler.AutoSelect(detections, closet),
		Provider:   settings.Provider,
	}, nil
}

// prepareImage 确保传给模型的是字节数据，远程地址会先下载。
func (a *OutfitAnalyzer) prepareImage(ctx context.Context, image VisionImage) (VisionImage, error) {
	if len(image.Data) == 0 {
		data, err := a.fetchImage(ctx, strings.TrimSpace(image.URL))
		if errors.Is(err, ErrImageURLForbidden) || errors.Is(err, ErrImageTooLarge) {
			return VisionImage{}, err
		}
		if err != nil {
			return VisionImage{}, fmt.Errorf("%w: %v", ErrVisionUnavailable, err)
		}
		image.Data = data
	}
	if strings.TrimSpace(image.MIMEType) == "" {
		mimeType, ok := DetectImageMIME(image.Data)
		if !ok {
			return VisionImage{}, ErrImageNotDecodable
		}
		image.MIMEType = mimeType
	}
	return image, nil
}

func (a *OutfitAnalyzer) fetchImage(ctx context.Context, rawURL string) ([]byte, error) {
	target, err := url.Parse(rawURL)
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") || target.Hostname() == "" {
		return nil, ErrImageURLForbidden
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build image request: %w", err)
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch image: status %s", resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if len(data) > maxImageBytes {
		return nil, ErrImageTooLarge
	}
	return data, nil
}

// newImageHTTPClient 返回下载用户照片的客户端。地址在建立连接时校验，
// 重定向与 DNS 重新解析到内网地址同样会被拒绝；不走代理。
func newImageHTTPClient() *http.Client {
	dialer := &net.Dialer{Timeout: 10 * time.Second, Control: rejectInternalAddress}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext
	return &http.Client{Timeout: 20 * time.Second, Transport: transport}
}

var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

// rejectInternalAddress 拒绝回环、私有、链路本地（含云主机元数据地址）等非公网地址。
func rejectInternalAddress(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrImageURLForbidden, err)
	}
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrImageURLForbidden, err)
	}
	ip = ip.Unmap()
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() || ip.IsMulticast() ||
		sharedAddressSpace.Contains(ip) {
		return fmt.Errorf("%w: %s %s", ErrImageURLForbidden, network, ip)
	}
	return nil
}

// ParseDetections 解析模型输出。既接受数组，也接受以 garments/items/clothing/clothes 为键的对象；
// 对象中没有这些键时视为没有识别到衣物。
func ParseDetections(content string) ([]DetectedGarment, error) {
	payload := stripCodeFence(content)
	if payload == "" {
		return nil, ErrVisionResponseInvalid
	}

	var raw []DetectedGarment
	switch payload[0] {
	case '[':
		if err := json.Unmarshal([]byte(payload), &raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrVisionResponseInvalid, err)
		}
	case '{':
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrVisionResponseInvalid, err)
		}
		for _, key := range detectionKeys {
			items, ok := envelope[key]
			if !ok || string(items) == "null" {
				continue
			}
			if err := json.Unmarshal(items, &raw); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrVisionResponseInvalid, err)
			}
			break
		}
	default:
		return nil, ErrVisionResponseInvalid
	}

	detections := make([]DetectedGarment, 0, len(raw))
	for _, item := range raw {
		detections = append(detections, NormalizeDetection(item))
	}
	return detections, nil
}

// NormalizeDetection 清洗一条不受信任的识别结果：分类与季节归一化，名称与描述去除标签。
func NormalizeDetection(item DetectedGarment) DetectedGarment {
	return DetectedGarment{
		Name:        sanitizeText(item.Name),
		Category:    NormalizeCategory(item.Category),
		Season:      NormalizeSeason(item.Season),
		Description: sanitizeText(item.Description),
	}
}

func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.IndexByte(trimmed, '\n'); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
