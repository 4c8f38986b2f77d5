package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"pcq_backend/internal/config"
	"pcq_backend/internal/util"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var ErrStorageNotConfigured = errors.New("bulk scan storage is not configured")

// UploadToken 批量扫描渠道上传纸质问卷扫描件使用的预签名地址
type UploadToken struct {
	ObjectName string    `json:"objectName"`
	UploadURL  string    `json:"uploadUrl"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// StorageService 为批量扫描上传签发短期令牌
type StorageService struct {
	Config *config.StorageConfig
	Client *minio.Client
}

func NewStorageService(cfg *config.StorageConfig) (*StorageService, error) {
	if cfg.MinioEndpoint == "" {
		return &StorageService{Config: cfg}, nil
	}

	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, err
	}
	return &StorageService{Config: cfg, Client: client}, nil
}

func (s *StorageService) Enabled() bool {
	return s != nil && s.Client != nil
}

// IssueBulkScanUploadToken 对象名统一加上 bulkscan/ 前缀，禁止路径穿越
func (s *StorageService) IssueBulkScanUploadToken(ctx context.Context, objectName string) (*UploadToken, error) {
	if !s.Enabled() {
		return nil, ErrStorageNotConfigured
	}

	name, err := bulkScanObjectName(objectName)
	if err != nil {
		return nil, util.NewValidationError("IssueBulkScanUploadToken", "", []string{err.Error()}, err)
	}

	ttl := time.Duration(s.Config.UploadTokenMinute) * time.Minute
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}

	u, err := s.Client.PresignedPutObject(ctx, s.Config.MinioBucket, name, ttl)
	if err != nil {
		return nil, fmt.Errorf("presign %s: %w", name, err)
	}

	return &UploadToken{
		ObjectName: name,
		UploadURL:  u.String(),
		ExpiresAt:  time.Now().Add(ttl).UTC(),
	}, nil
}

func bulkScanObjectName(objectName string) (string, error) {
	objectName = strings.TrimSpace(objectName)
	if objectName == "" {
		return "", errors.New("object name is required")
	}
	cleaned := path.Clean("/" + objectName)
	if cleaned == "/" || strings.Contains(objectName, "..") {
		return "", fmt.Errorf("invalid object name %q", objectName)
	}
	return util.BulkScanObjectPrefix + strings.TrimPrefix(cleaned, "/"), nil
}
