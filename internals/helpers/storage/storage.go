package storage

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/JBFaner/DisasterTraining-sub003/internals/configs"
)

// MaxUploadSize guards every multipart upload.
var MaxUploadSize = int64(10 * 1024 * 1024)

// FileStorage is the upload backend shared by lesson materials and
// certificate template backgrounds.
type FileStorage interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

type Object struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

var defaultStorage FileStorage

// Default returns the process-wide backend, falling back to local disk.
func Default() FileStorage {
	if defaultStorage == nil {
		defaultStorage = NewLocalStorage(configs.Conf.StorageLocalDir, configs.Conf.StoragePublicBaseURL)
	}
	return defaultStorage
}

func SetDefault(s FileStorage) { defaultStorage = s }

// NewFromConfig picks local, oss or s3 from STORAGE_DRIVER.
func NewFromConfig(c configs.Config) (FileStorage, error) {
	switch c.StorageDriver {
	case "", "local":
		return NewLocalStorage(c.StorageLocalDir, c.StoragePublicBaseURL), nil
	case "oss":
		return NewOSSStorage(c.OSSEndpoint, c.OSSAccessKey, c.OSSSecretKey, c.OSSBucket, c.StoragePublicBaseURL)
	case "s3":
		return NewS3Storage(c.S3Region, c.S3Bucket, c.S3AccessKey, c.S3SecretKey, c.StoragePublicBaseURL)
	default:
		return nil, fmt.Errorf("unsupported STORAGE_DRIVER %q", c.StorageDriver)
	}
}

/* =======================================================================
   Upload helpers
======================================================================= */

// UploadFormFile stores the file as-is under dir.
func UploadFormFile(ctx context.Context, st FileStorage, dir string, fh *multipart.FileHeader) (*Object, error) {
	data, err := readFormFile(fh)
	if err != nil {
		return nil, err
	}
	ct := detectContentType(data, fh.Filename)
	key := BuildObjectKey(dir, fh.Filename)
	if err := st.Put(ctx, key, data, ct); err != nil {
		return nil, fmt.Errorf("put object: %w", err)
	}
	return &Object{Key: key, URL: st.PublicURL(key), ContentType: ct, Size: int64(len(data))}, nil
}

// UploadImageAsWebP re-encodes an image upload to webp before storing it.
func UploadImageAsWebP(ctx context.Context, st FileStorage, dir string, fh *multipart.FileHeader, opt WebPOptions) (*Object, error) {
	data, err := readFormFile(fh)
	if err != nil {
		return nil, err
	}
	webpData, err := ConvertToWebP(data, fh.Filename, opt)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusUnsupportedMediaType, err.Error())
	}
	base := strings.TrimSuffix(fh.Filename, filepath.Ext(fh.Filename))
	key := BuildObjectKey(dir, base+".webp")
	if err := st.Put(ctx, key, webpData, "image/webp"); err != nil {
		return nil, fmt.Errorf("put object: %w", err)
	}
	return &Object{Key: key, URL: st.PublicURL(key), ContentType: "image/webp", Size: int64(len(webpData))}, nil
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	if fh == nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "file is required")
	}
	if fh.Size > MaxUploadSize {
		return nil, fiber.NewError(fiber.StatusRequestEntityTooLarge,
			fmt.Sprintf("file too large (max %d bytes)", MaxUploadSize))
	}
	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer src.Close()
	data, err := io.ReadAll(io.LimitReader(src, MaxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if len(data) == 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "file is empty")
	}
	return data, nil
}

/* =======================================================================
   Keys & content types
======================================================================= */

var reUnsafe = regexp.MustCompile(`[^a-zA-Z0-9.\-_]+`)

func sanitizeFilename(name string) string {
	name = reUnsafe.ReplaceAllString(filepath.Base(name), "_")
	if name == "" || name == "." {
		name = "file"
	}
	return name
}

// BuildObjectKey gives dir/YYYYMMDD/<rand>-<name>.
func BuildObjectKey(dir, filename string) string {
	parts := []string{}
	if d := strings.Trim(dir, "/"); d != "" {
		parts = append(parts, d)
	}
	parts = append(parts, time.Now().UTC().Format("20060102"), randHex(6)+"-"+sanitizeFilename(filename))
	return strings.Join(parts, "/")
}

func randHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%x", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}

func detectContentType(data []byte, filename string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); ct != "" {
		return ct
	}
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	return http.DetectContentType(head)
}

/* =======================================================================
   Local disk
======================================================================= */

type LocalStorage struct {
	Dir     string
	BaseURL string
}

func NewLocalStorage(dir, baseURL string) *LocalStorage {
	if dir == "" {
		dir = "./uploads"
	}
	return &LocalStorage{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}
}

func (s *LocalStorage) Put(_ context.Context, key string, body []byte, _ string) error {
	path := filepath.Join(s.Dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, body, 0o644)
}

func (s *LocalStorage) Delete(_ context.Context, key string) error {
	err := os.Remove(filepath.Join(s.Dir, filepath.FromSlash(key)))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *LocalStorage) PublicURL(key string) string {
	return s.BaseURL + "/" + key
}

// MemoryStorage keeps objects in a map; used by tests.
type MemoryStorage struct {
	Objects map[string][]byte
	Types   map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{Objects: map[string][]byte{}, Types: map[string]string{}}
}

func (s *MemoryStorage) Put(_ context.Context, key string, body []byte, contentType string) error {
	s.Objects[key] = bytes.Clone(body)
	s.Types[key] = contentType
	return nil
}

func (s *MemoryStorage) Delete(_ context.Context, key string) error {
	delete(s.Objects, key)
	delete(s.Types, key)
	return nil
}

func (s *MemoryStorage) PublicURL(key string) string { return "memory://" + key }
