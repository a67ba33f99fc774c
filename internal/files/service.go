// Package files stores uploads in the object store and resolves the
// public URLs it hands out back to their bytes.
package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"study-backend/internal/gateway"
	"study-backend/internal/shared/storage/object"
)

const (
	uploadNamespace = "uploads"
	routePrefix     = "/api/v1/files/"
	maxFetchBytes   = 64 << 20
)

var ErrNotOwnURL = errors.New("url not served by this store")

// Service implements gateway.Uploader and gateway.Fetcher on an ObjectStore.
type Service struct {
	Store   object.ObjectStore
	BaseURL string
	HTTP    *http.Client
}

func NewService(store object.ObjectStore, baseURL string) *Service {
	return &Service{
		Store:   store,
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 60 * time.Second},
	}
}

// UploadFile saves the file and returns a URL served by the files handler.
func (s *Service) UploadFile(ctx context.Context, file gateway.File) (gateway.UploadResult, error) {
	if s.Store == nil {
		return gateway.UploadResult{}, errors.New("object store not configured")
	}
	if file.Body == nil {
		return gateway.UploadResult{}, errors.New("file body is required")
	}
	key, _, _, err := s.Store.Save(ctx, uploadNamespace, file.Name, file.Body)
	if err != nil {
		return gateway.UploadResult{}, fmt.Errorf("save upload: %w", err)
	}
	return gateway.UploadResult{FileURL: s.URLFor(key)}, nil
}

// URLFor builds the public URL of a storage key.
func (s *Service) URLFor(key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.BaseURL + routePrefix + strings.Join(segments, "/")
}

// KeyFromURL extracts the storage key from a URL produced by URLFor.
func (s *Service) KeyFromURL(fileURL string) (string, error) {
	prefix := s.BaseURL + routePrefix
	if !strings.HasPrefix(fileURL, prefix) {
		return "", ErrNotOwnURL
	}
	key, err := url.PathUnescape(strings.TrimPrefix(fileURL, prefix))
	if err != nil || key == "" {
		return "", object.ErrInvalidKey
	}
	return key, nil
}

// Open streams a stored object by key.
func (s *Service) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	return s.Store.Open(ctx, key)
}

// Fetch reads a file URL. Own URLs are served from the store; others are downloaded.
func (s *Service) Fetch(ctx context.Context, fileURL string) (gateway.Blob, error) {
	key, err := s.KeyFromURL(fileURL)
	switch {
	case err == nil:
		rc, err := s.Store.Open(ctx, key)
		if err != nil {
			return gateway.Blob{}, fmt.Errorf("open %s: %w", key, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(io.LimitReader(rc, maxFetchBytes))
		if err != nil {
			return gateway.Blob{}, fmt.Errorf("read %s: %w", key, err)
		}
		name := DisplayName(key)
		return gateway.Blob{Name: name, ContentType: ContentType(name, data), Data: data}, nil
	case errors.Is(err, ErrNotOwnURL):
		return s.download(ctx, fileURL)
	default:
		return gateway.Blob{}, err
	}
}

func (s *Service) download(ctx context.Context, fileURL string) (gateway.Blob, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return gateway.Blob{}, err
	}
	client := s.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return gateway.Blob{}, fmt.Errorf("download %s: %w", fileURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return gateway.Blob{}, fmt.Errorf("download %s: status %d", fileURL, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return gateway.Blob{}, fmt.Errorf("download %s: %w", fileURL, err)
	}
	name := path.Base(req.URL.Path)
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" || strings.HasPrefix(contentType, "application/octet-stream") {
		contentType = ContentType(name, data)
	}
	return gateway.Blob{Name: name, ContentType: contentType, Data: data}, nil
}

// DisplayName strips the namespace directory and random prefix from a storage key.
func DisplayName(key string) string {
	base := path.Base(key)
	if i := strings.IndexByte(base, '_'); i > 0 {
		return base[i+1:]
	}
	return base
}

// ContentType guesses a content type from the file extension, then the bytes.
func ContentType(name string, data []byte) string {
	if ext := strings.ToLower(path.Ext(name)); ext != "" {
		if t := mime.TypeByExtension(ext); t != "" {
			return t
		}
		switch ext {
		case ".docx":
			return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
		case ".doc":
			return "application/msword"
		}
	}
	return http.DetectContentType(data)
}

var (
	_ gateway.Uploader = (*Service)(nil)
	_ gateway.Fetcher  = (*Service)(nil)
)
