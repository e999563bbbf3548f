// Package imaging normalizes listing photos before they are stored: the
// format is checked from the bytes, large photos are scaled down, and the
// result is always a JPEG on an opaque white background.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"

	"golang.org/x/image/draw"
	"golang.org/x/image/webp"

	"github.com/erazemk/rewear/internal/model"
)

// MaxDimension is the maximum width or height for stored photos.
const MaxDimension = 1024

// MaxUploadBytes caps the size of an uploaded photo.
const MaxUploadBytes = 10 << 20

// JPEGQuality is the compression quality for stored photos.
const JPEGQuality = 85

var decoders = map[string]func(io.Reader) (image.Image, error){
	"image/jpeg": jpeg.Decode,
	"image/png":  png.Decode,
	"image/webp": webp.Decode,
}

// Photo is a normalized listing photo.
type Photo struct {
	Data   []byte
	MIME   string
	Width  int
	Height int
}

// Normalize reads a JPEG, PNG or WebP photo and returns it re-encoded as a
// JPEG no larger than MaxDimension on either side. Bad input is reported as
// an invalid-input error.
func Normalize(r io.Reader) (*Photo, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading photo: %w", err)
	}
	if len(data) > MaxUploadBytes {
		return nil, model.Errorf(model.KindInvalidInput, "photo exceeds %d MiB", MaxUploadBytes>>20)
	}

	// The client's Content-Type is not trusted.
	detected := http.DetectContentType(data)
	decode, ok := decoders[detected]
	if !ok {
		return nil, model.Errorf(model.KindInvalidInput,
			"unsupported photo format %s (JPEG, PNG or WebP accepted)", detected)
	}

	img, err := decode(bytes.NewReader(data))
	if err != nil {
		return nil, &model.Error{Kind: model.KindInvalidInput, Detail: "photo could not be decoded", Err: err}
	}

	out := flatten(img, MaxDimension)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}

	b := out.Bounds()
	return &Photo{Data: buf.Bytes(), MIME: "image/jpeg", Width: b.Dx(), Height: b.Dy()}, nil
}

// fit returns the size of a w x h image scaled to fit in maxDim, keeping the
// aspect ratio. Images already within bounds keep their size.
func fit(w, h, maxDim int) (int, int) {
	if w <= maxDim && h <= maxDim {
		return w, h
	}
	if w > h {
		return maxDim, max(1, h*maxDim/w)
	}
	return max(1, w*maxDim/h), maxDim
}

// flatten draws img onto a white canvas, scaling it down with Catmull-Rom
// if it exceeds maxDim. JPEG has no alpha, so transparent areas become white.
func flatten(img image.Image, maxDim int) image.Image {
	src := img.Bounds()
	w, h := fit(src.Dx(), src.Dy(), maxDim)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	if w == src.Dx() && h == src.Dy() {
		draw.Draw(dst, dst.Bounds(), img, src.Min, draw.Over)
		return dst
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, src, draw.Over, nil)
	return dst
}
