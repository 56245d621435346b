// Package store saves finished photos to a gocloud.dev blob bucket: a local
// directory by default, or any bucket URL the binary has a driver for
// (only fileblob is linked into the kiosk binary).
package store

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"strings"
	"time"

	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"

	"github.com/cjeanneret/photobooth/internal/debug"
)

// Store writes JPEG photos into a bucket.
type Store struct {
	bucket  *blob.Bucket
	target  string
	quality int
}

// Open opens target, which is either a bucket URL (file:///srv/fotos, or
// any scheme whose driver is linked in) or a plain directory that is
// created if needed.
func Open(ctx context.Context, target string, quality int) (*Store, error) {
	var (
		bucket *blob.Bucket
		err    error
	)
	if strings.Contains(target, "://") {
		bucket, err = blob.OpenBucket(ctx, target)
	} else {
		if err = os.MkdirAll(target, 0o755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
		bucket, err = fileblob.OpenBucket(target, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("open bucket %s: %w", target, err)
	}
	debug.Verbose("Store: bucket %s opened", target)
	return New(bucket, target, quality), nil
}

// New wraps an already opened bucket.
func New(bucket *blob.Bucket, target string, quality int) *Store {
	if quality <= 0 || quality > 100 {
		quality = 95
	}
	return &Store{bucket: bucket, target: target, quality: quality}
}

// PhotoKey returns the object name for a photo taken at t.
func PhotoKey(t time.Time) string {
	return "photo_" + t.Format("20060102_150405") + ".jpg"
}

// SavePhoto encodes img as JPEG under PhotoKey(t). When that key is taken
// (two photos in the same second) a _1, _2, ... suffix is added. It returns
// the key written.
func (s *Store) SavePhoto(ctx context.Context, t time.Time, img image.Image) (string, error) {
	key := PhotoKey(t)
	for i := 1; ; i++ {
		exists, err := s.bucket.Exists(ctx, key)
		if err != nil {
			return "", fmt.Errorf("check %s: %w", key, err)
		}
		if !exists {
			break
		}
		key = fmt.Sprintf("photo_%s_%d.jpg", t.Format("20060102_150405"), i)
	}
	if err := s.SaveJPEG(ctx, key, img); err != nil {
		return "", err
	}
	return key, nil
}

// SaveJPEG writes img under key.
func (s *Store) SaveJPEG(ctx context.Context, key string, img image.Image) error {
	w, err := s.bucket.NewWriter(ctx, key, &blob.WriterOptions{ContentType: "image/jpeg"})
	if err != nil {
		return fmt.Errorf("new writer for %s: %w", key, err)
	}
	if err := jpeg.Encode(w, img, &jpeg.Options{Quality: s.quality}); err != nil {
		w.Close()
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	debug.Info("Photo saved: %s/%s", s.target, key)
	return nil
}

// Location returns a human readable location for key.
func (s *Store) Location(key string) string {
	return strings.TrimSuffix(s.target, "/") + "/" + key
}

// Close closes the bucket.
func (s *Store) Close() error {
	return s.bucket.Close()
}
