package session

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

// DefaultPreviewMaxBytes caps a cached preview before encoding.
const DefaultPreviewMaxBytes = 512 * 1024

// PreviewCache caches uploaded file previews (homework attachments) in the
// session store, addressed by content hash.
type PreviewCache struct {
	store    Store
	maxBytes int
}

// NewPreviewCache creates a cache; maxBytes <= 0 uses DefaultPreviewMaxBytes.
func NewPreviewCache(store Store, maxBytes int) *PreviewCache {
	if maxBytes <= 0 {
		maxBytes = DefaultPreviewMaxBytes
	}
	return &PreviewCache{store: store, maxBytes: maxBytes}
}

// PreviewKey returns the cache key of data.
func PreviewKey(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Put stores data under its content hash. Files above the size cap are not
// cached; stored reports whether the preview was kept.
func (c *PreviewCache) Put(ctx context.Context, data []byte, mimeType string) (key string, stored bool, err error) {
	key = PreviewKey(data)
	if len(data) > c.maxBytes {
		return key, false, nil
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	value := mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
	if err := c.store.Set(ctx, previewKeyPrefix+key, value); err != nil {
		return key, false, fmt.Errorf("cache preview: %w", err)
	}
	return key, true, nil
}

// Get returns a cached preview and its MIME type.
func (c *PreviewCache) Get(ctx context.Context, key string) (data []byte, mimeType string, ok bool, err error) {
	value, found, err := c.store.Get(ctx, previewKeyPrefix+key)
	if err != nil || !found {
		return nil, "", false, err
	}
	mimeType, encoded, cut := strings.Cut(value, ";base64,")
	if !cut {
		return nil, "", false, fmt.Errorf("corrupt preview %s", key)
	}
	data, err = base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, "", false, fmt.Errorf("decode preview %s: %w", key, err)
	}
	return data, mimeType, true, nil
}

// Evict removes a cached preview.
func (c *PreviewCache) Evict(ctx context.Context, key string) error {
	return c.store.Delete(ctx, previewKeyPrefix+key)
}
