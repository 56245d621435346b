package camera

import (
	"errors"
	"image"
	"testing"
)

func TestOpen_Mock(t *testing.T) {
	cam, err := Open(Config{Type: "mock", Width: 64, Height: 36})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer cam.Close()

	img, err := cam.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, 64, 36) {
		t.Errorf("bounds = %v", img.Bounds())
	}
}

func TestOpen_UnknownType(t *testing.T) {
	if _, err := Open(Config{Type: "gphoto2"}); err == nil {
		t.Fatal("expected error for unknown camera type")
	}
}

func TestMock_FramesMove(t *testing.T) {
	m := NewMock(70, 10)
	a, _ := m.Read()
	b, _ := m.Read()
	differs := false
	for x := 0; x < 70; x++ {
		if a.At(x, 0) != b.At(x, 0) {
			differs = true
			break
		}
	}
	if !differs {
		t.Error("consecutive mock frames are identical")
	}
	if m.Frames() != 2 {
		t.Errorf("Frames = %d, want 2", m.Frames())
	}
}

func TestMock_ReadAfterClose(t *testing.T) {
	m := NewMock(8, 8)
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Read(); !errors.Is(err, ErrClosed) {
		t.Errorf("Read after Close err = %v, want ErrClosed", err)
	}
}

func TestMock_DefaultSize(t *testing.T) {
	img, _ := NewMock(0, 0).Read()
	if img.Bounds().Size() != image.Pt(1280, 720) {
		t.Errorf("size = %v, want 1280x720", img.Bounds().Size())
	}
}

func TestYUYVToImage(t *testing.T) {
	// 4x1: two pixel pairs.
	buf := []byte{
		10, 100, 20, 200,
		30, 110, 40, 210,
	}
	img, err := yuyvToImage(buf, 4, 1)
	if err != nil {
		t.Fatalf("yuyvToImage: %v", err)
	}
	wantY := []uint8{10, 20, 30, 40}
	for x, want := range wantY {
		if got := img.Y[img.YOffset(x, 0)]; got != want {
			t.Errorf("Y(%d) = %d, want %d", x, got, want)
		}
	}
	if img.Cb[img.COffset(1, 0)] != 100 || img.Cr[img.COffset(1, 0)] != 200 {
		t.Errorf("pair 0 chroma = %d/%d", img.Cb[img.COffset(1, 0)], img.Cr[img.COffset(1, 0)])
	}
	if img.Cb[img.COffset(2, 0)] != 110 || img.Cr[img.COffset(3, 0)] != 210 {
		t.Errorf("pair 1 chroma = %d/%d", img.Cb[img.COffset(2, 0)], img.Cr[img.COffset(3, 0)])
	}
}

func TestYUYVToImage_Errors(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
		w, h int
	}{
		{"short", make([]byte, 7), 2, 2},
		{"odd_width", make([]byte, 6), 3, 1},
		{"zero", nil, 0, 0},
	}
	for _, tc := range tests {
		if _, err := yuyvToImage(tc.buf, tc.w, tc.h); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}
