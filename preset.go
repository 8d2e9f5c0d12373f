package socialshare

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	gerrors "github.com/goliatone/go-errors"
	"gopkg.in/yaml.v3"
)

// Preset describes the target slot of a social platform.
type Preset struct {
	Name        string `json:"name" yaml:"name"`
	Width       int    `json:"width" yaml:"width"`
	Height      int    `json:"height" yaml:"height"`
	AspectRatio string `json:"aspectRatio" yaml:"aspect_ratio"`
}

// Transformation returns the rendition parameters for the preset, always
// filled with automatic gravity.
func (p Preset) Transformation() Transformation {
	return Transformation{
		Crop:        DefaultCrop,
		Gravity:     DefaultGravity,
		Width:       p.Width,
		Height:      p.Height,
		AspectRatio: p.AspectRatio,
	}
}

var (
	slugParens = regexp.MustCompile(`\(.*?\)`)
	slugClean  = regexp.MustCompile(`[^a-z0-9]+`)
)

// Slug is a file name friendly version of the preset name,
// "Instagram Portrait (4:5)" becomes "instagram-portrait".
func (p Preset) Slug() string {
	s := strings.ToLower(slugParens.ReplaceAllString(p.Name, ""))
	s = strings.Trim(slugClean.ReplaceAllString(s, "-"), "-")
	if s == "" {
		return "image"
	}
	return s
}

func extensionForMime(contentType string) string {
	mime, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(contentType)), ";")
	switch strings.TrimSpace(mime) {
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/png":
		return "png"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	case "image/avif":
		return "avif"
	case "image/bmp":
		return "bmp"
	case "image/tiff":
		return "tiff"
	default:
		return DefaultDownloadExtension
	}
}

// DefaultPresets returns the built-in social formats in display order.
func DefaultPresets() []Preset {
	return []Preset{
		{Name: "Instagram Square (1:1)", Width: 1080, Height: 1080, AspectRatio: "1:1"},
		{Name: "Instagram Portrait (4:5)", Width: 1080, Height: 1350, AspectRatio: "4:5"},
		{Name: "Twitter Post (16:9)", Width: 1200, Height: 675, AspectRatio: "16:9"},
		{Name: "Twitter Header (3:1)", Width: 1500, Height: 500, AspectRatio: "3:1"},
		{Name: "Facebook Cover (205:78)", Width: 820, Height: 312, AspectRatio: "205:78"},
	}
}

// PresetCatalog is an ordered, read only lookup table of presets. The first
// entry is the default selection.
type PresetCatalog struct {
	presets []Preset
	byName  map[string]Preset
}

// NewPresetCatalog validates presets and freezes them into a catalog.
func NewPresetCatalog(presets []Preset) (*PresetCatalog, error) {
	if err := ValidatePresets(presets); err != nil {
		return nil, err
	}

	c := &PresetCatalog{
		presets: make([]Preset, len(presets)),
		byName:  make(map[string]Preset, len(presets)),
	}
	copy(c.presets, presets)
	for _, p := range c.presets {
		c.byName[p.Name] = p
	}

	return c, nil
}

// MustDefaultCatalog returns the built-in catalog.
func MustDefaultCatalog() *PresetCatalog {
	c, err := NewPresetCatalog(DefaultPresets())
	if err != nil {
		panic(err)
	}
	return c
}

func (c *PresetCatalog) Lookup(name string) (Preset, bool) {
	p, ok := c.byName[name]
	return p, ok
}

// Match finds the preset whose rendition is t. Field order in the URL does
// not matter, the canonical string form is compared.
func (c *PresetCatalog) Match(t Transformation) (Preset, bool) {
	want := t.String()
	for _, p := range c.presets {
		if p.Transformation().String() == want {
			return p, true
		}
	}
	return Preset{}, false
}

func (c *PresetCatalog) Default() Preset {
	return c.presets[0]
}

// All returns a copy of the presets in display order.
func (c *PresetCatalog) All() []Preset {
	out := make([]Preset, len(c.presets))
	copy(out, c.presets)
	return out
}

func (c *PresetCatalog) Names() []string {
	out := make([]string, 0, len(c.presets))
	for _, p := range c.presets {
		out = append(out, p.Name)
	}
	return out
}

type presetFile struct {
	Presets []Preset `yaml:"presets"`
}

// LoadPresets reads a YAML catalog:
//
//	presets:
//	  - name: Instagram Square (1:1)
//	    width: 1080
//	    height: 1080
//	    aspect_ratio: "1:1"
func LoadPresets(r io.Reader) (*PresetCatalog, error) {
	var file presetFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("preset catalog: decode: %w", err)
	}
	return NewPresetCatalog(file.Presets)
}

// LoadPresetsFile is LoadPresets over a file on disk.
func LoadPresetsFile(path string) (*PresetCatalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("preset catalog: %w", err)
	}
	defer f.Close()

	return LoadPresets(f)
}

// ValidatePresets ensures the configured presets are usable.
func ValidatePresets(presets []Preset) error {
	if len(presets) == 0 {
		return gerrors.NewValidation("presets invalid",
			gerrors.FieldError{
				Field:   "presets",
				Message: "at least one preset is required",
				Value:   0,
			},
		)
	}

	seen := make(map[string]struct{}, len(presets))
	for idx, preset := range presets {
		fieldPrefix := fmt.Sprintf("presets[%d]", idx)
		name := strings.TrimSpace(preset.Name)
		if name == "" {
			return gerrors.NewValidation("presets invalid",
				gerrors.FieldError{
					Field:   fieldPrefix + ".name",
					Message: "name cannot be empty",
				},
			)
		}

		if _, exists := seen[name]; exists {
			return gerrors.NewValidation("presets invalid",
				gerrors.FieldError{
					Field:   fieldPrefix + ".name",
					Message: "duplicate preset name",
					Value:   name,
				},
			)
		}
		seen[name] = struct{}{}

		if preset.Width <= 0 {
			return gerrors.NewValidation("presets invalid",
				gerrors.FieldError{
					Field:   fieldPrefix + ".width",
					Message: "width must be greater than zero",
					Value:   preset.Width,
				},
			)
		}

		if preset.Height <= 0 {
			return gerrors.NewValidation("presets invalid",
				gerrors.FieldError{
					Field:   fieldPrefix + ".height",
					Message: "height must be greater than zero",
					Value:   preset.Height,
				},
			)
		}

		if preset.Width > MaxRenditionDimension || preset.Height > MaxRenditionDimension {
			return gerrors.NewValidation("presets invalid",
				gerrors.FieldError{
					Field:   fieldPrefix + ".width",
					Message: fmt.Sprintf("width and height cannot exceed %d", MaxRenditionDimension),
					Value:   fmt.Sprintf("%dx%d", preset.Width, preset.Height),
				},
			)
		}

		if _, err := ParseAspectRatio(preset.AspectRatio); err != nil {
			return gerrors.NewValidation("presets invalid",
				gerrors.FieldError{
					Field:   fieldPrefix + ".aspect_ratio",
					Message: "aspect ratio must be W:H with positive numbers",
					Value:   preset.AspectRatio,
				},
			)
		}
	}

	return nil
}
