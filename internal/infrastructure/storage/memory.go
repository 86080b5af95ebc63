package storage

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"

	catalogapp "github.com/marketplace/backend/internal/application/catalog"
)

var (
	_ catalogapp.ImageStorage = (*S3Images)(nil)
	_ catalogapp.ImageStorage = (*MemoryImages)(nil)
)

// Image is an object held by MemoryImages
type Image struct {
	Data        []byte
	ContentType string
}

// MemoryImages keeps uploads in process memory. It is used when object
// storage is disabled; nothing survives a restart.
type MemoryImages struct {
	baseURL string

	mu     sync.RWMutex
	images map[string]Image
}

// NewMemoryImages returns a store whose public URLs start with baseURL
func NewMemoryImages(baseURL string) *MemoryImages {
	return &MemoryImages{
		baseURL: strings.TrimRight(baseURL, "/"),
		images:  make(map[string]Image),
	}
}

func (m *MemoryImages) Upload(_ context.Context, key string, data []byte, contentType string) error {
	if key == "" {
		return errEmptyKey
	}
	m.mu.Lock()
	m.images[key] = Image{Data: append([]byte(nil), data...), ContentType: contentType}
	m.mu.Unlock()
	return nil
}

func (m *MemoryImages) DeleteObject(_ context.Context, key string) error {
	if key == "" {
		return errEmptyKey
	}
	m.mu.Lock()
	delete(m.images, key)
	m.mu.Unlock()
	return nil
}

// Get returns a copy of the stored image
func (m *MemoryImages) Get(key string) (Image, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	img, ok := m.images[key]
	if !ok {
		return Image{}, false
	}
	img.Data = append([]byte(nil), img.Data...)
	return img, true
}

func (m *MemoryImages) PublicURL(key string) string {
	return m.baseURL + "/" + key
}

// ServeHTTP answers GET requests for a stored key. Mount it with the URL
// prefix stripped so the request path is the key.
func (m *MemoryImages) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	img, ok := m.Get(strings.TrimPrefix(r.URL.Path, "/"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", img.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
	w.Header().Set("Cache-Control", imageCacheControl)
	_, _ = w.Write(img.Data)
}
