// File: internal/upload/image.go
package upload

import (
	"bytes"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/disintegration/imaging"
)

const (
	DefaultMaxDimension = 2560
	DefaultJPEGQuality  = 92
)

// ErrImageProcessing wraps decode and encode failures of the listing image.
var ErrImageProcessing = errors.New("image could not be processed")

// ImageOptions controls CompressImage.
type ImageOptions struct {
	MaxDimension int
	Quality      int
}

// DefaultImageOptions returns the 2560px / quality 92 settings.
func DefaultImageOptions() ImageOptions {
	return ImageOptions{MaxDimension: DefaultMaxDimension, Quality: DefaultJPEGQuality}
}

// CompressImage decodes f, scales it down so neither side exceeds
// MaxDimension (aspect ratio kept, never upscaled) and re-encodes it as JPEG.
func CompressImage(f File, opts ImageOptions) (File, error) {
	if opts.MaxDimension <= 0 {
		opts.MaxDimension = DefaultMaxDimension
	}
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = DefaultJPEGQuality
	}

	img, err := imaging.Decode(bytes.NewReader(f.Content), imaging.AutoOrientation(true))
	if err != nil {
		return File{}, fmt.Errorf("%w: decoding %q: %v", ErrImageProcessing, f.Name, err)
	}

	b := img.Bounds()
	if b.Dx() > opts.MaxDimension || b.Dy() > opts.MaxDimension {
		img = imaging.Fit(img, opts.MaxDimension, opts.MaxDimension, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(opts.Quality)); err != nil {
		return File{}, fmt.Errorf("%w: encoding %q: %v", ErrImageProcessing, f.Name, err)
	}

	return File{
		Name:        jpegName(f.Name),
		ContentType: "image/jpeg",
		Size:        int64(buf.Len()),
		Content:     buf.Bytes(),
	}, nil
}

func jpegName(name string) string {
	stem := strings.TrimSuffix(name, path.Ext(name))
	if stem == "" {
		stem = "image"
	}
	return stem + ".jpg"
}
