package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"institute_backend/internal/config"
	"institute_backend/internal/model"
	"institute_backend/pkg/logger"
	"os"
	"path/filepath"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// ObjectStore 证书交接使用的对象存储
type ObjectStore interface {
	Put(ctx context.Context, name string, data []byte, contentType string) (string, error)
}

// LocalObjectStore 本地存储实现，返回磁盘路径，目录不对外提供访问
type LocalObjectStore struct {
	Root string
}

func (p *LocalObjectStore) Put(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	dst := filepath.Join(p.Root, name)
	if err := os.MkdirAll(filepath.Dir(dst), 0750); err != nil {
		return "", err
	}
	if err := os.WriteFile(dst, data, 0600); err != nil {
		return "", err
	}
	return dst, nil
}

// MinioObjectStore MinIO存储实现
type MinioObjectStore struct {
	Bucket string
	Client *minio.Client
}

func NewMinioObjectStore(cfg *config.StorageConfig) (*MinioObjectStore, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
		Secure: false,
	})
	if err != nil {
		return nil, err
	}
	return &MinioObjectStore{Bucket: cfg.MinioBucket, Client: client}, nil
}

func (p *MinioObjectStore) Put(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	_, err := p.Client.PutObject(ctx, p.Bucket, name, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}
	return "/" + p.Bucket + "/" + name, nil
}

// OSSObjectStore 阿里云OSS存储实现
type OSSObjectStore struct {
	Endpoint   string
	BucketName string
	Client     *oss.Client
}

func NewOSSObjectStore(cfg *config.StorageConfig) (*OSSObjectStore, error) {
	client, err := oss.New(cfg.OSSEndpoint, cfg.OSSAccessKey, cfg.OSSSecretKey)
	if err != nil {
		return nil, err
	}
	return &OSSObjectStore{Endpoint: cfg.OSSEndpoint, BucketName: cfg.OSSBucket, Client: client}, nil
}

func (p *OSSObjectStore) Put(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	bucket, err := p.Client.Bucket(p.BucketName)
	if err != nil {
		return "", err
	}
	if err := bucket.PutObject(name, bytes.NewReader(data), oss.ContentType(contentType)); err != nil {
		return "", err
	}
	return fmt.Sprintf("https://%s.%s/%s", p.BucketName, p.Endpoint, name), nil
}

// NewObjectStore 按配置选择存储，远程存储初始化失败时退回本地
func NewObjectStore(cfg *config.StorageConfig) ObjectStore {
	switch cfg.Type {
	case "minio":
		p, err := NewMinioObjectStore(cfg)
		if err == nil {
			return p
		}
		logger.Log.Warn("MinIO unavailable, falling back to local storage", zap.Error(err))
	case "oss":
		p, err := NewOSSObjectStore(cfg)
		if err == nil {
			return p
		}
		logger.Log.Warn("OSS unavailable, falling back to local storage", zap.Error(err))
	}
	return &LocalObjectStore{Root: cfg.LocalPath}
}

// CertificateService 把成绩交给证书签发方，文件名即 CertificateRefID
type CertificateService struct {
	Store ObjectStore
}

func NewCertificateService(store ObjectStore) *CertificateService {
	return &CertificateService{Store: store}
}

func CertificateObjectName(refID string) string {
	return "certificates/" + refID + ".json"
}

func (s *CertificateService) Publish(ctx context.Context, result *model.Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result %s: %w", result.ID, err)
	}
	location, err := s.Store.Put(ctx, CertificateObjectName(result.CertificateRefID), data, "application/json")
	if err != nil {
		return fmt.Errorf("upload certificate payload: %w", err)
	}
	logger.Log.Debug("Certificate payload published",
		zap.String("resultId", result.ID),
		zap.String("certificateRefId", result.CertificateRefID),
		zap.String("location", location))
	return nil
}
