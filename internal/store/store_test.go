package store

import (
	"context"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gocloud.dev/blob/memblob"
)

var shotAt = time.Date(2024, 6, 1, 14, 30, 5, 0, time.UTC)

func TestPhotoKey(t *testing.T) {
	if got := PhotoKey(shotAt); got != "photo_20240601_143005.jpg" {
		t.Errorf("PhotoKey = %s", got)
	}
}

func TestSavePhoto_MemBucket(t *testing.T) {
	ctx := context.Background()
	bucket := memblob.OpenBucket(nil)
	s := New(bucket, "mem://", 90)
	defer s.Close()

	key, err := s.SavePhoto(ctx, shotAt, image.NewRGBA(image.Rect(0, 0, 16, 9)))
	if err != nil {
		t.Fatalf("SavePhoto: %v", err)
	}
	if key != "photo_20240601_143005.jpg" {
		t.Errorf("key = %s", key)
	}

	attrs, err := bucket.Attributes(ctx, key)
	if err != nil {
		t.Fatalf("Attributes: %v", err)
	}
	if attrs.ContentType != "image/jpeg" {
		t.Errorf("content type = %s", attrs.ContentType)
	}

	r, err := bucket.NewReader(ctx, key, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	img, err := jpeg.Decode(r)
	if err != nil {
		t.Fatalf("decode saved photo: %v", err)
	}
	if img.Bounds().Size() != image.Pt(16, 9) {
		t.Errorf("size = %v", img.Bounds().Size())
	}
}

func TestSavePhoto_SameSecondGetsSuffix(t *testing.T) {
	ctx := context.Background()
	s := New(memblob.OpenBucket(nil), "mem://", 0)
	defer s.Close()

	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	first, err := s.SavePhoto(ctx, shotAt, img)
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.SavePhoto(ctx, shotAt, img)
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Fatalf("both photos saved as %s", first)
	}
	if second != "photo_20240601_143005_1.jpg" {
		t.Errorf("second key = %s", second)
	}
	third, err := s.SavePhoto(ctx, shotAt, img)
	if err != nil {
		t.Fatal(err)
	}
	if third != "photo_20240601_143005_2.jpg" {
		t.Errorf("third key = %s", third)
	}
}

func TestOpen_DirectoryIsCreated(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "fotos")
	s, err := Open(ctx, dir, 95)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	key, err := s.SavePhoto(ctx, shotAt, image.NewRGBA(image.Rect(0, 0, 4, 4)))
	if err != nil {
		t.Fatalf("SavePhoto: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, key)); err != nil {
		t.Errorf("saved file missing: %v", err)
	}
	if got := s.Location(key); got != dir+"/"+key {
		t.Errorf("Location = %s", got)
	}
}

func TestOpen_URL(t *testing.T) {
	s, err := Open(context.Background(), "mem://", 95)
	if err != nil {
		t.Fatalf("Open(mem://): %v", err)
	}
	s.Close()

	if _, err := Open(context.Background(), "nosuch://bucket", 95); err == nil {
		t.Error("expected error for unknown scheme")
	}
}
