package camera

import (
	"fmt"
	"image"
)

// yuyvToImage wraps a packed YUYV 4:2:2 buffer (Y0 U Y1 V per pixel pair)
// as a planar YCbCr image. The buffer is copied.
func yuyvToImage(buf []byte, w, h int) (*image.YCbCr, error) {
	if w <= 0 || h <= 0 || w%2 != 0 {
		return nil, fmt.Errorf("yuyv: bad size %dx%d", w, h)
	}
	if len(buf) < w*h*2 {
		return nil, fmt.Errorf("yuyv: short buffer %d bytes for %dx%d", len(buf), w, h)
	}

	img := image.NewYCbCr(image.Rect(0, 0, w, h), image.YCbCrSubsampleRatio422)
	for y := 0; y < h; y++ {
		row := buf[y*w*2 : (y+1)*w*2]
		for x := 0; x < w; x += 2 {
			p := row[x*2 : x*2+4]
			img.Y[y*img.YStride+x] = p[0]
			img.Y[y*img.YStride+x+1] = p[2]
			ci := y*img.CStride + x/2
			img.Cb[ci] = p[1]
			img.Cr[ci] = p[3]
		}
	}
	return img, nil
}
