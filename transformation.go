package socialshare

import (
	"fmt"
	"strconv"
	"strings"

	gerrors "github.com/goliatone/go-errors"
)

// Crop modes understood by both media services.
const (
	CropFill  = "fill"
	CropFit   = "fit"
	CropScale = "scale"
	CropPad   = "pad"
)

// Gravity modes. GravityAuto asks the service to pick the subject.
const (
	GravityAuto      = "auto"
	GravityCenter    = "center"
	GravityNorth     = "north"
	GravitySouth     = "south"
	GravityEast      = "east"
	GravityWest      = "west"
	GravityNorthEast = "north_east"
	GravityNorthWest = "north_west"
	GravitySouthEast = "south_east"
	GravitySouthWest = "south_west"
)

var allowedCrops = map[string]bool{
	CropFill:  true,
	CropFit:   true,
	CropScale: true,
	CropPad:   true,
}

var allowedGravities = map[string]bool{
	GravityAuto:      true,
	GravityCenter:    true,
	GravityNorth:     true,
	GravitySouth:     true,
	GravityEast:      true,
	GravityWest:      true,
	GravityNorthEast: true,
	GravityNorthWest: true,
	GravitySouthEast: true,
	GravitySouthWest: true,
}

// Transformation is a rendition request, serialized with the URL syntax
// used by the managed service: c_fill,g_auto,w_1080,h_1350,ar_4:5
type Transformation struct {
	Crop        string `json:"crop"`
	Gravity     string `json:"gravity"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	AspectRatio string `json:"aspectRatio"`
}

// String renders the transformation as URL components. Zero fields are skipped.
func (t Transformation) String() string {
	parts := make([]string, 0, 5)
	if t.Crop != "" {
		parts = append(parts, "c_"+t.Crop)
	}
	if t.Gravity != "" {
		parts = append(parts, "g_"+t.Gravity)
	}
	if t.Width > 0 {
		parts = append(parts, "w_"+strconv.Itoa(t.Width))
	}
	if t.Height > 0 {
		parts = append(parts, "h_"+strconv.Itoa(t.Height))
	}
	if t.AspectRatio != "" {
		parts = append(parts, "ar_"+t.AspectRatio)
	}
	return strings.Join(parts, ",")
}

// Validate rejects transformations neither service can honor.
func (t Transformation) Validate() error {
	if t.Crop != "" && !allowedCrops[t.Crop] {
		return invalidTransformation("crop", "unsupported crop mode", t.Crop)
	}

	if t.Gravity != "" && !allowedGravities[t.Gravity] {
		return invalidTransformation("gravity", "unsupported gravity", t.Gravity)
	}

	if t.Width < 0 {
		return invalidTransformation("width", "width cannot be negative", t.Width)
	}

	if t.Height < 0 {
		return invalidTransformation("height", "height cannot be negative", t.Height)
	}

	if t.Width == 0 && t.Height == 0 {
		return invalidTransformation("width", "width or height is required", 0)
	}

	if t.AspectRatio != "" {
		if _, err := ParseAspectRatio(t.AspectRatio); err != nil {
			return err
		}
	}

	// a single side plus an extreme ratio can still resolve to a huge canvas
	w, h, err := t.Dimensions()
	if err != nil {
		return err
	}

	if w > MaxRenditionDimension {
		return invalidTransformation("width", fmt.Sprintf("width cannot exceed %d", MaxRenditionDimension), w)
	}

	if h > MaxRenditionDimension {
		return invalidTransformation("height", fmt.Sprintf("height cannot exceed %d", MaxRenditionDimension), h)
	}

	return nil
}

// Dimensions resolves the output size. When only one side is given the
// aspect ratio supplies the other.
func (t Transformation) Dimensions() (int, int, error) {
	w, h := t.Width, t.Height
	if w > 0 && h > 0 {
		return w, h, nil
	}

	if t.AspectRatio == "" {
		return w, h, nil
	}

	ratio, err := ParseAspectRatio(t.AspectRatio)
	if err != nil {
		return 0, 0, err
	}

	switch {
	case w > 0:
		h = int(float64(w)/ratio + 0.5)
	case h > 0:
		w = int(float64(h)*ratio + 0.5)
	}

	return w, h, nil
}

// ParseTransformation reads the URL form produced by String.
func ParseTransformation(raw string) (Transformation, error) {
	t := Transformation{}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return t, invalidTransformation("transformation", "transformation is empty", raw)
	}

	for _, part := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(part, "_")
		if !ok || value == "" {
			return t, invalidTransformation("transformation", "malformed component", part)
		}

		switch key {
		case "c":
			t.Crop = value
		case "g":
			t.Gravity = value
		case "w":
			n, err := strconv.Atoi(value)
			if err != nil {
				return t, invalidTransformation("width", "width must be an integer", value)
			}
			t.Width = n
		case "h":
			n, err := strconv.Atoi(value)
			if err != nil {
				return t, invalidTransformation("height", "height must be an integer", value)
			}
			t.Height = n
		case "ar":
			t.AspectRatio = value
		default:
			return t, invalidTransformation("transformation", "unsupported component", part)
		}
	}

	return t, t.Validate()
}

// ParseAspectRatio turns "W:H" into W/H.
func ParseAspectRatio(ar string) (float64, error) {
	ws, hs, ok := strings.Cut(ar, ":")
	if !ok {
		return 0, invalidTransformation("aspect_ratio", "aspect ratio must be W:H", ar)
	}

	w, err := strconv.ParseFloat(ws, 64)
	if err != nil || w <= 0 {
		return 0, invalidTransformation("aspect_ratio", "aspect ratio width must be positive", ar)
	}

	h, err := strconv.ParseFloat(hs, 64)
	if err != nil || h <= 0 {
		return 0, invalidTransformation("aspect_ratio", "aspect ratio height must be positive", ar)
	}

	return w / h, nil
}

func invalidTransformation(field, msg string, value any) error {
	return gerrors.NewValidation("transformation validation failed",
		gerrors.FieldError{
			Field:   field,
			Message: msg,
			Value:   value,
		},
	).WithCode(400).WithTextCode("INVALID_TRANSFORMATION").
		WithMetadata(map[string]any{
			"value": fmt.Sprint(value),
		})
}
