// Package storage keeps the bytes of claim documents. Metadata lives in the
// database; a store only hands back an opaque location string that is
// persisted on the ClaimDocument row.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/oklog/ulid/v2"

	"github.com/tbourn/go-policy-admin/internal/config"
)

// ErrNotFound is returned when a location names no stored object.
var ErrNotFound = errors.New("document not found")

// DocumentStore persists and retrieves document bytes.
type DocumentStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (location string, err error)
	Open(ctx context.Context, location string) (io.ReadCloser, error)
	Delete(ctx context.Context, location string) error
}

// New returns the store selected by cfg.Backend.
func New(ctx context.Context, cfg config.StorageConfig) (DocumentStore, error) {
	switch cfg.Backend {
	case "s3":
		return NewS3FromConfig(ctx, cfg)
	case "local", "":
		return NewLocal(cfg.Dir)
	default:
		return nil, fmt.Errorf("unsupported DOCUMENT_STORE %q", cfg.Backend)
	}
}

// DocumentKey builds a collision-free object key for a claim upload:
// claims/<claim id>/<ulid>/<sanitized file name>.
func DocumentKey(claimID uint64, fileName string) string {
	return fmt.Sprintf("claims/%d/%s/%s", claimID, ulid.Make().String(), sanitize(fileName))
}

func sanitize(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.TrimLeft(b.String(), ".")
	if out == "" {
		return "document"
	}
	return out
}

// Sniff returns the media type detected from the leading bytes of data,
// without parameters (e.g. "application/pdf").
func Sniff(data []byte) string {
	mt, _, _ := strings.Cut(mimetype.Detect(data).String(), ";")
	return strings.TrimSpace(mt)
}
