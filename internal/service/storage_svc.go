package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"thailao_logistics/pkg/utils"
)

// ==================== 接口定义 ====================

// StorageProvider 存储提供者接口
type StorageProvider interface {
	// Upload 上传文件，返回访问 URL
	Upload(ctx context.Context, data []byte, filename string, contentType string) (string, error)

	// Delete 删除文件
	Delete(ctx context.Context, fileURL string) error
}

// ==================== 配置 ====================

type StorageConfig struct {
	Provider  string // "local" | "s3" | "cos"
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	Endpoint  string // 自定义端点 (腾讯云COS等)
	CDNDomain string // CDN域名 (可选)
	BasePath  string // 本地目录，或对象存储的 key 前缀
	PublicURL string // 本地文件的访问前缀
	MaxBytes  int64
}

const defaultUploadMaxBytes = 10 << 20

// NewStorageProvider 按配置创建存储
func NewStorageProvider(cfg *StorageConfig) (StorageProvider, error) {
	switch cfg.Provider {
	case "local", "":
		return NewLocalStorage(cfg.BasePath, cfg.PublicURL)
	case "s3":
		return NewS3Storage(cfg)
	case "cos":
		return NewCOSStorage(cfg)
	default:
		return nil, fmt.Errorf("不支持的存储提供者: %s", cfg.Provider)
	}
}

// ==================== StorageService ====================

// StorageService 照片与附件存储
type StorageService struct {
	provider StorageProvider
	client   *resty.Client
	maxBytes int64

	// allowPrivateHosts 为 true 时 Import 不检查目标地址
	allowPrivateHosts bool
}

// NewStorageService 创建存储服务
func NewStorageService(cfg *StorageConfig) (*StorageService, error) {
	provider, err := NewStorageProvider(cfg)
	if err != nil {
		return nil, err
	}
	return NewStorageServiceWithProvider(provider, cfg.MaxBytes, nil), nil
}

// NewStorageServiceWithProvider 使用指定 provider，client 为空时使用只连公网的 HTTP 客户端
func NewStorageServiceWithProvider(provider StorageProvider, maxBytes int64, client *resty.Client) *StorageService {
	if maxBytes <= 0 {
		maxBytes = defaultUploadMaxBytes
	}
	if client == nil {
		client = utils.NewPublicHTTPClient(30 * time.Second)
	}
	return &StorageService{provider: provider, client: client, maxBytes: maxBytes}
}

// Save 保存任意文件
func (s *StorageService) Save(ctx context.Context, data []byte, filename, contentType string) (string, error) {
	if len(data) == 0 {
		return "", InvalidArgument("File is empty")
	}
	if int64(len(data)) > s.maxBytes {
		return "", ErrFileTooLarge
	}
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}

	fileURL, err := s.provider.Upload(ctx, data, filename, contentType)
	if err != nil {
		return "", Internal("保存文件失败", err)
	}
	return fileURL, nil
}

// SaveImage 保存图片，按内容识别类型
func (s *StorageService) SaveImage(ctx context.Context, data []byte, filename string) (string, error) {
	if len(data) == 0 {
		return "", InvalidArgument("File is empty")
	}
	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return "", InvalidArgument("File is not an image")
	}
	return s.Save(ctx, data, filename, contentType)
}

// Import 下载远程图片后保存，只允许公网地址
func (s *StorageService) Import(ctx context.Context, sourceURL string) (string, error) {
	u, err := url.Parse(sourceURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return "", InvalidArgument("Invalid image URL")
	}
	if !s.allowPrivateHosts {
		if err := utils.LookupPublicHost(ctx, u.Hostname()); err != nil {
			return "", &AppError{Kind: KindInvalidArgument, Message: "Image URL host is not allowed", Err: err}
		}
	}

	data, _, err := utils.DownloadFile(ctx, s.client, sourceURL, s.maxBytes)
	if errors.Is(err, utils.ErrDownloadTooLarge) {
		return "", ErrFileTooLarge
	}
	if errors.Is(err, utils.ErrNonPublicAddress) {
		return "", &AppError{Kind: KindInvalidArgument, Message: "Image URL host is not allowed", Err: err}
	}
	if err != nil {
		return "", &AppError{Kind: KindInvalidArgument, Message: "Failed to download image", Err: err}
	}
	return s.SaveImage(ctx, data, path.Base(u.Path))
}

// MaxBytes 单个文件大小上限
func (s *StorageService) MaxBytes() int64 {
	return s.maxBytes
}

// Delete 删除文件
func (s *StorageService) Delete(ctx context.Context, fileURL string) error {
	return s.provider.Delete(ctx, fileURL)
}

// Local 本地存储，其他 provider 返回 nil
func (s *StorageService) Local() *LocalStorage {
	local, _ := s.provider.(*LocalStorage)
	return local
}

// ==================== 本地存储 ====================

// LocalStorage 文件平铺在一个目录下，通过 /uploads/{filename} 访问
type LocalStorage struct {
	dir       string
	publicURL string
}

func NewLocalStorage(dir, publicURL string) (*LocalStorage, error) {
	if dir == "" {
		dir = "./uploads"
	}
	if publicURL == "" {
		publicURL = "/uploads"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建上传目录失败: %w", err)
	}
	return &LocalStorage{dir: dir, publicURL: strings.TrimRight(publicURL, "/")}, nil
}

func (s *LocalStorage) Upload(_ context.Context, data []byte, filename string, _ string) (string, error) {
	name := newObjectName(filename)
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", err
	}
	return s.publicURL + "/" + name, nil
}

func (s *LocalStorage) Delete(_ context.Context, fileURL string) error {
	full, err := s.Resolve(strings.TrimPrefix(fileURL, s.publicURL+"/"))
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Resolve 文件名转本地路径，拒绝目录穿越
func (s *LocalStorage) Resolve(filename string) (string, error) {
	if filename == "" || filename == "." || filename == ".." ||
		strings.ContainsAny(filename, `/\`) || strings.Contains(filename, "..") {
		return "", ErrFileNotFound
	}
	return filepath.Join(s.dir, filename), nil
}

// Read 读取文件内容及展示用 Content-Type
func (s *LocalStorage) Read(filename string) ([]byte, string, error) {
	full, err := s.Resolve(filename)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", ErrFileNotFound
		}
		return nil, "", err
	}
	return data, ImageContentType(filename), nil
}

// ImageContentType 按扩展名判断，未知一律按 jpeg
func ImageContentType(filename string) string {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), ".")) {
	case "png":
		return "image/png"
	case "webp":
		return "image/webp"
	case "gif":
		return "image/gif"
	}
	return "image/jpeg"
}

// ==================== S3 / COS ====================

// ObjectStorage S3 协议对象存储，腾讯云 COS 走同一套客户端
type ObjectStorage struct {
	client    *s3.Client
	bucket    string
	basePath  string
	publicURL string // 不带结尾 /
}

func NewS3Storage(cfg *StorageConfig) (*ObjectStorage, error) {
	client, err := newS3Client(cfg, nil)
	if err != nil {
		return nil, fmt.Errorf("加载AWS配置失败: %w", err)
	}
	publicURL := fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	return newObjectStorage(client, cfg, publicURL), nil
}

func NewCOSStorage(cfg *StorageConfig) (*ObjectStorage, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://cos.%s.myqcloud.com", cfg.Region)
	}
	client, err := newS3Client(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})
	if err != nil {
		return nil, fmt.Errorf("加载COS配置失败: %w", err)
	}
	publicURL := fmt.Sprintf("https://%s.cos.%s.myqcloud.com", cfg.Bucket, cfg.Region)
	return newObjectStorage(client, cfg, publicURL), nil
}

func newS3Client(cfg *StorageConfig, optFn func(o *s3.Options)) (*s3.Client, error) {
	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, err
	}
	if optFn == nil {
		return s3.NewFromConfig(awsCfg), nil
	}
	return s3.NewFromConfig(awsCfg, optFn), nil
}

func newObjectStorage(client *s3.Client, cfg *StorageConfig, publicURL string) *ObjectStorage {
	if cfg.CDNDomain != "" {
		publicURL = "https://" + strings.TrimSuffix(cfg.CDNDomain, "/")
	}
	return &ObjectStorage{
		client:    client,
		bucket:    cfg.Bucket,
		basePath:  strings.Trim(cfg.BasePath, "/"),
		publicURL: publicURL,
	}
}

func (s *ObjectStorage) Upload(ctx context.Context, data []byte, filename string, contentType string) (string, error) {
	key := s.objectKey(filename)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("上传对象存储失败: %w", err)
	}
	return s.publicURL + "/" + key, nil
}

func (s *ObjectStorage) Delete(ctx context.Context, fileURL string) error {
	key := strings.TrimPrefix(fileURL, s.publicURL+"/")
	if key == "" || key == fileURL {
		return fmt.Errorf("无法解析文件路径: %s", fileURL)
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

// objectKey [basePath/]photos/2006/01/02/<uuid>.<ext>
func (s *ObjectStorage) objectKey(filename string) string {
	key := path.Join("photos", time.Now().Format("2006/01/02"), newObjectName(filename))
	if s.basePath != "" {
		key = s.basePath + "/" + key
	}
	return key
}

// ==================== 工具函数 ====================

var safeExt = regexp.MustCompile(`^\.[a-z0-9]{1,8}$`)

// newObjectName uuid + 原扩展名，扩展名不合法时用 .jpg
func newObjectName(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if !safeExt.MatchString(ext) {
		ext = ".jpg"
	}
	return uuid.New().String() + ext
}
