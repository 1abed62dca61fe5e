package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
)

const (
	objectPrefix = "panels"

	defaultLocalDir  = "static/images"
	localURLPrefix   = "/static/images"
	saveTimeout      = 15 * time.Second
	maxPanelImageLen = 20 * 1024 * 1024
)

// PanelStore persists generated panel images and hands back retrievable URLs.
// With MINIO_* configured it writes to object storage; otherwise it falls back
// to a local directory that the router serves under /static/images.
type PanelStore struct {
	client    *minio.Client
	bucket    string
	publicURL string

	localDir string
	baseURL  string
}

// NewPanelStoreFromEnv initialises the store. MinIO is used when
// MINIO_ENDPOINT, MINIO_ACCESS_KEY, MINIO_SECRET_KEY and MINIO_BUCKET are all
// present; the local directory (STATIC_DIR, default static/images) otherwise.
func NewPanelStoreFromEnv() (*PanelStore, error) {
	endpoint := strings.TrimSpace(os.Getenv("MINIO_ENDPOINT"))
	accessKey := strings.TrimSpace(os.Getenv("MINIO_ACCESS_KEY"))
	secretKey := strings.TrimSpace(os.Getenv("MINIO_SECRET_KEY"))
	bucket := strings.TrimSpace(os.Getenv("MINIO_BUCKET"))

	if endpoint != "" && accessKey != "" && secretKey != "" && bucket != "" {
		return newMinioStore(endpoint, accessKey, secretKey, bucket)
	}

	localDir := strings.TrimSpace(os.Getenv("STATIC_DIR"))
	if localDir == "" {
		localDir = defaultLocalDir
	}
	if err := os.MkdirAll(localDir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create local image dir: %w", err)
	}

	baseURL := strings.TrimRight(strings.TrimSpace(os.Getenv("PUBLIC_BASE_URL")), "/")

	log.Info().Str("dir", localDir).Msg("storage: using local panel image store")
	return &PanelStore{localDir: localDir, baseURL: baseURL}, nil
}

func newMinioStore(endpoint, accessKey, secretKey, bucket string) (*PanelStore, error) {
	useSSL := strings.EqualFold(strings.TrimSpace(os.Getenv("MINIO_USE_SSL")), "true")
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: init minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("storage: check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("storage: create bucket: %w", err)
		}
	}

	publicURL := strings.TrimSpace(os.Getenv("MINIO_PUBLIC_URL"))
	if publicURL == "" {
		scheme := "http"
		if useSSL {
			scheme = "https"
		}
		publicURL = fmt.Sprintf("%s://%s", scheme, endpoint)
	}

	log.Info().Str("bucket", bucket).Msg("storage: using minio panel image store")
	return &PanelStore{
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimSuffix(publicURL, "/"),
	}, nil
}

// ServesLocal reports whether images land on the local disk and therefore need
// the /static/images route mounted.
func (s *PanelStore) ServesLocal() bool {
	return s != nil && s.client == nil
}

// LocalDir returns the directory backing the local store.
func (s *PanelStore) LocalDir() string {
	return s.localDir
}

// Save writes one image and returns its retrievable URL. The filename is
// caller-derived and deterministic; writing the same name twice overwrites,
// which keeps repeated identical requests idempotent at the store level.
func (s *PanelStore) Save(ctx context.Context, filename string, data []byte) (string, error) {
	if s == nil {
		return "", errors.New("storage: panel store not configured")
	}
	if len(data) == 0 {
		return "", errors.New("storage: refusing to store empty image")
	}
	if len(data) > maxPanelImageLen {
		return "", fmt.Errorf("storage: image exceeds %d bytes", maxPanelImageLen)
	}

	name := path.Base(strings.TrimSpace(filename))
	if name == "" || name == "." || name == "/" {
		return "", errors.New("storage: invalid filename")
	}

	if s.client != nil {
		return s.saveObject(ctx, name, data)
	}
	return s.saveLocal(name, data)
}

func (s *PanelStore) saveObject(ctx context.Context, name string, data []byte) (string, error) {
	objectName := path.Join(objectPrefix, name)
	contentType := http.DetectContentType(data)

	uploadCtx, cancel := context.WithTimeout(ctx, saveTimeout)
	defer cancel()

	_, err := s.client.PutObject(uploadCtx, s.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "public, max-age=604800",
	})
	if err != nil {
		return "", fmt.Errorf("storage: upload panel image: %w", err)
	}

	return fmt.Sprintf("%s/%s/%s", s.publicURL, s.bucket, objectName), nil
}

func (s *PanelStore) saveLocal(name string, data []byte) (string, error) {
	target := filepath.Join(s.localDir, name)

	file, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return "", fmt.Errorf("storage: open panel image file: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(data); err != nil {
		return "", fmt.Errorf("storage: write panel image file: %w", err)
	}

	return s.baseURL + localURLPrefix + "/" + name, nil
}
