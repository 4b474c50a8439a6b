// Package config loads merge settings from YAML files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lvillar/pdfjoiner/annotate"
	"github.com/lvillar/pdfjoiner/backend"
	"github.com/lvillar/pdfjoiner/internal/yamlutil"
	"github.com/lvillar/pdfjoiner/pageops"
)

var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidColor    = errors.New("invalid color")
)

const (
	MaxFormatLength        = 100
	MaxWatermarkTextLength = 100
	MaxAnnotationLength    = 500
	MaxColorLength         = 20
	MaxAnnotations         = 1000
)

// Config is the content of a configuration file.
type Config struct {
	Output      string             `yaml:"output"` // default output path
	Verify      bool               `yaml:"verify"`
	PageNumbers PageNumberConfig   `yaml:"pageNumbers"`
	Watermark   WatermarkConfig    `yaml:"watermark"`
	Annotations []AnnotationConfig `yaml:"annotations"`
}

type PageNumberConfig struct {
	Enabled  bool    `yaml:"enabled"`
	Position string  `yaml:"position"` // e.g. "bottom-center", "top-right"
	Format   string  `yaml:"format"`
	Start    int     `yaml:"start"`
	FontSize float64 `yaml:"fontSize"`
	Margin   float64 `yaml:"margin"`
	Color    string  `yaml:"color"` // "#rrggbb", "#rgb" or a color name
}

type WatermarkConfig struct {
	Enabled  bool    `yaml:"enabled"`
	Text     string  `yaml:"text"`
	FontSize float64 `yaml:"fontSize"`
	Angle    float64 `yaml:"angle"`
	Opacity  float64 `yaml:"opacity"`
	Color    string  `yaml:"color"`
}

// AnnotationConfig places a text note. X and Y are fractions of the page
// width and height measured from the top-left corner.
type AnnotationConfig struct {
	Page     int     `yaml:"page"` // 1-based
	X        float64 `yaml:"x"`
	Y        float64 `yaml:"y"`
	Text     string  `yaml:"text"`
	FontSize float64 `yaml:"fontSize"`
	Color    string  `yaml:"color"`
}

// DefaultConfig returns a configuration with every stamp disabled and the
// stamp defaults filled in.
func DefaultConfig() *Config {
	pn := pageops.DefaultPageNumberOptions()
	wm := pageops.DefaultWatermarkOptions()
	return &Config{
		PageNumbers: PageNumberConfig{
			Position: pn.Position.String(),
			Format:   pn.Format,
			Start:    pn.Start,
			FontSize: pn.FontSize,
			Margin:   pn.Margin,
			Color:    "black",
		},
		Watermark: WatermarkConfig{
			FontSize: wm.FontSize,
			Angle:    wm.Angle,
			Opacity:  wm.Opacity,
			Color:    "lightgray",
		},
	}
}

// Validate checks every field. It is run by Load and Parse.
func (c *Config) Validate() error {
	if err := validateFieldLength("pageNumbers.format", c.PageNumbers.Format, MaxFormatLength); err != nil {
		return err
	}
	if err := validateFieldLength("watermark.text", c.Watermark.Text, MaxWatermarkTextLength); err != nil {
		return err
	}
	if c.Watermark.Enabled && strings.TrimSpace(c.Watermark.Text) == "" {
		return errors.New("watermark.text: required when watermark is enabled")
	}
	if len(c.Annotations) > MaxAnnotations {
		return fmt.Errorf("annotations: %d entries, max %d", len(c.Annotations), MaxAnnotations)
	}
	for i, a := range c.Annotations {
		field := fmt.Sprintf("annotations[%d]", i)
		if err := validateFieldLength(field+".text", a.Text, MaxAnnotationLength); err != nil {
			return err
		}
		if a.Page < 1 {
			return fmt.Errorf("%s.page: must be at least 1, got %d", field, a.Page)
		}
		if a.X < 0 || a.X > 1 || a.Y < 0 || a.Y > 1 {
			return fmt.Errorf("%s: position (%g, %g) outside [0, 1]", field, a.X, a.Y)
		}
		if a.FontSize < 0 {
			return fmt.Errorf("%s.fontSize: must not be negative, got %g", field, a.FontSize)
		}
	}
	_, err := c.StampOptions()
	return err
}

// StampOptions converts the configuration to stamping options. Annotations
// are loaded into a fresh overlay.
func (c *Config) StampOptions() (pageops.StampOptions, error) {
	opts := pageops.DefaultStampOptions()

	pn := &opts.PageNumbers
	pn.Enabled = c.PageNumbers.Enabled
	if c.PageNumbers.Position != "" {
		pos, err := pageops.ParsePosition(c.PageNumbers.Position)
		if err != nil {
			return opts, fmt.Errorf("pageNumbers.position: %w", err)
		}
		pn.Position = pos
	}
	pn.Format = c.PageNumbers.Format
	pn.Start = c.PageNumbers.Start
	pn.FontSize = c.PageNumbers.FontSize
	pn.Margin = c.PageNumbers.Margin
	color, err := colorField("pageNumbers.color", c.PageNumbers.Color, pn.Color)
	if err != nil {
		return opts, err
	}
	pn.Color = color

	wm := &opts.Watermark
	wm.Enabled = c.Watermark.Enabled
	wm.Text = c.Watermark.Text
	wm.FontSize = c.Watermark.FontSize
	wm.Angle = c.Watermark.Angle
	wm.Opacity = c.Watermark.Opacity
	if wm.Color, err = colorField("watermark.color", c.Watermark.Color, wm.Color); err != nil {
		return opts, err
	}

	if err := opts.Validate(); err != nil {
		return opts, err
	}

	overlay := &annotate.Overlay{}
	for i, a := range c.Annotations {
		color, err := colorField(fmt.Sprintf("annotations[%d].color", i), a.Color, backend.Black)
		if err != nil {
			return opts, err
		}
		err = overlay.Add(&annotate.Annotation{
			Page:     a.Page - 1,
			XRatio:   a.X,
			YRatio:   a.Y,
			Text:     a.Text,
			FontSize: a.FontSize,
			Color:    color,
		})
		if err != nil {
			return opts, fmt.Errorf("annotations[%d]: %w", i, err)
		}
	}
	opts.Annotations = overlay
	return opts, nil
}

func colorField(field, value string, fallback backend.Color) (backend.Color, error) {
	if value == "" {
		return fallback, nil
	}
	if err := validateFieldLength(field, value, MaxColorLength); err != nil {
		return fallback, err
	}
	c, err := ParseColor(value)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", field, err)
	}
	return c, nil
}

var namedColors = map[string]backend.Color{
	"black":     backend.Black,
	"white":     {R: 1, G: 1, B: 1},
	"gray":      {R: 0.5, G: 0.5, B: 0.5},
	"grey":      {R: 0.5, G: 0.5, B: 0.5},
	"lightgray": backend.LightGray,
	"lightgrey": backend.LightGray,
	"red":       {R: 1},
	"green":     {G: 0.5},
	"blue":      {B: 1},
}

// ParseColor parses "#rrggbb", "#rgb" or one of a few color names.
func ParseColor(s string) (backend.Color, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := namedColors[s]; ok {
		return c, nil
	}
	hex, ok := strings.CutPrefix(s, "#")
	if !ok {
		return backend.Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return backend.Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return backend.Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	return backend.Color{
		R: float64(v>>16&0xff) / 255,
		G: float64(v>>8&0xff) / 255,
		B: float64(v&0xff) / 255,
	}, nil
}

func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// Parse decodes and validates a configuration. Keys missing from data keep
// their defaults; unknown keys are an error.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yamlutil.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads a configuration by path or by name. A name without a path
// separator is looked up as <name>.yaml or <name>.yml in the current
// directory and then in the user configuration directory.
func Load(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}
	path := nameOrPath
	if !strings.ContainsAny(nameOrPath, `/\`) && filepath.Ext(nameOrPath) == "" {
		var err error
		if path, err = resolveConfigPath(nameOrPath); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path) // #nosec G304 -- path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

func resolveConfigPath(name string) (string, error) {
	extensions := []string{".yaml", ".yml"}
	var tried []string
	for _, ext := range extensions {
		p := name + ext
		if fileExists(p) {
			return p, nil
		}
		tried = append(tried, p)
	}
	if dir, err := os.UserConfigDir(); err == nil {
		for _, ext := range extensions {
			p := filepath.Join(dir, "pdfjoiner", name+ext)
			if fileExists(p) {
				return p, nil
			}
			tried = append(tried, p)
		}
	}
	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(tried, ", "))
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
