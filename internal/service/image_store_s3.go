package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const presignedURLTTL = time.Hour

// S3ImageStore 将照片存入 S3，访问地址为一小时有效的预签名链接。
type S3ImageStore struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	now     func() time.Time
}

// NewS3ImageStore 使用默认凭证链加载 AWS 配置。
func NewS3ImageStore(ctx context.Context, region, bucket string) (*S3ImageStore, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, errors.New("s3 bucket name is required")
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg)
	log.Printf("[images] s3 store initialized bucket=%s region=%s", bucket, region)
	return &S3ImageStore{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  bucket,
		now:     time.Now,
	}, nil
}

// Upload 上传对象并返回对象 key。
func (s *S3ImageStore) Upload(ctx context.Context, data []byte, folder, contentType string) (string, error) {
	key, err := newImageKey(folder, contentType, data, s.now())
	if err != nil {
		return "", err
	}

	mimeType := strings.TrimSpace(contentType)
	if mimeType == "" {
		mimeType, _ = DetectImageMIME(data)
	}

	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(mimeType),
		CacheControl: aws.String("max-age=3600"),
	}); err != nil {
		return "", fmt.Errorf("upload image to s3: %w", err)
	}
	return key, nil
}

// URL 生成预签名 GET 地址。
func (s *S3ImageStore) URL(ctx context.Context, key string) (string, error) {
	if isRemoteImage(key) {
		return key, nil
	}
	if err := validateImageKey(key); err != nil {
		return "", err
	}

	request, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(presignedURLTTL))
	if err != nil {
		return "", fmt.Errorf("presign image url: %w", err)
	}
	return request.URL, nil
}

// Delete 删除对象，外部 URL 直接忽略。
func (s *S3ImageStore) Delete(ctx context.Context, key string) error {
	if isRemoteImage(key) || strings.TrimSpace(key) == "" {
		return nil
	}
	if err := validateImageKey(key); err != nil {
		return err
	}

	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("delete image from s3: %w", err)
	}
	return nil
}
