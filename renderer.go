package socialshare

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

var _ Renderer = &ImagingRenderer{}

var gravityAnchors = map[string]imaging.Anchor{
	GravityAuto:      imaging.Center,
	GravityCenter:    imaging.Center,
	GravityNorth:     imaging.Top,
	GravitySouth:     imaging.Bottom,
	GravityEast:      imaging.Right,
	GravityWest:      imaging.Left,
	GravityNorthEast: imaging.TopRight,
	GravityNorthWest: imaging.TopLeft,
	GravitySouthEast: imaging.BottomRight,
	GravitySouthWest: imaging.BottomLeft,
}

var formatMimes = map[imaging.Format]string{
	imaging.JPEG: "image/jpeg",
	imaging.PNG:  "image/png",
	imaging.GIF:  "image/gif",
	imaging.TIFF: "image/tiff",
	imaging.BMP:  "image/bmp",
}

// ImagingRenderer crops and resizes renditions locally. Automatic gravity
// is approximated with a centered crop. WebP sources are decoded but
// rendered as PNG, imaging has no WebP encoder.
type ImagingRenderer struct {
	filter     imaging.ResampleFilter
	quality    int
	background color.Color
}

func NewImagingRenderer() *ImagingRenderer {
	return &ImagingRenderer{
		filter:     imaging.Lanczos,
		quality:    DefaultJPEGQuality,
		background: color.NRGBA{A: 0},
	}
}

func (r *ImagingRenderer) WithQuality(q int) *ImagingRenderer {
	if q > 0 && q <= 100 {
		r.quality = q
	}
	return r
}

// WithBackground sets the canvas color pad renditions are placed on.
func (r *ImagingRenderer) WithBackground(c color.Color) *ImagingRenderer {
	r.background = c
	return r
}

func (r *ImagingRenderer) Render(ctx context.Context, source []byte, t Transformation) ([]byte, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	if len(source) == 0 {
		return nil, "", fmt.Errorf("renderer: source is empty")
	}

	if err := t.Validate(); err != nil {
		return nil, "", err
	}

	img, format, err := image.Decode(bytes.NewReader(source))
	if err != nil {
		return nil, "", fmt.Errorf("renderer: decode image: %w", err)
	}

	width, height, err := t.Dimensions()
	if err != nil {
		return nil, "", err
	}

	out := r.transform(img, t, width, height)

	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	target, err := imaging.FormatFromExtension(strings.ToLower(format))
	if err != nil {
		target = imaging.PNG
	}

	buf := &bytes.Buffer{}
	if err := imaging.Encode(buf, out, target, imaging.JPEGQuality(r.quality)); err != nil {
		return nil, "", fmt.Errorf("renderer: encode image: %w", err)
	}

	return buf.Bytes(), formatMimes[target], nil
}

func (r *ImagingRenderer) transform(img image.Image, t Transformation, width, height int) *image.NRGBA {
	// one side missing, keep the source proportions
	if width == 0 || height == 0 {
		return imaging.Resize(img, width, height, r.filter)
	}

	anchor, ok := gravityAnchors[t.Gravity]
	if !ok {
		anchor = imaging.Center
	}

	switch t.Crop {
	case CropFit:
		return imaging.Fit(img, width, height, r.filter)
	case CropScale:
		return imaging.Resize(img, width, height, r.filter)
	case CropPad:
		fitted := imaging.Fit(img, width, height, r.filter)
		canvas := imaging.New(width, height, r.background)
		return imaging.PasteCenter(canvas, fitted)
	case CropFill, "":
		fallthrough
	default:
		return imaging.Fill(img, width, height, anchor, r.filter)
	}
}
