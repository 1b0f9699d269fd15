package config

import (
	"fmt"
	"image/color"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	serr "detectview/internal/errors"
	"detectview/internal/media"
)

// EndpointEnvVar overrides the detection endpoint of every screen.
const EndpointEnvVar = "DETECTVIEW_ENDPOINT"

// MaxSelectionLimit is the largest batch any picker may yield.
const MaxSelectionLimit = 5

// Screen is one processing screen variant. The built-in native, web and
// pick screens differ only in these settings.
type Screen struct {
	Name            string `yaml:"name"`             // Identifier used by --screen
	Title           string `yaml:"title"`            // Label shown in the side menu
	EndpointBaseURL string `yaml:"endpoint"`         // Detection service base URL
	MaxSelection    int    `yaml:"max_selection"`    // Upper bound on picked images
	MultiSelect     bool   `yaml:"multi_select"`     // Picker allows several images
	ShowOverlays    bool   `yaml:"show_overlays"`    // Draw boxes over images
	CountSubModels  bool   `yaml:"count_sub_models"` // Summary includes sub-model boxes
	Enabled         bool   `yaml:"enabled"`          // Listed in the side menu
}

// Limit returns the effective selection bound for the screen.
func (s Screen) Limit() int {
	if !s.MultiSelect {
		return 1
	}
	return s.MaxSelection
}

// Config represents the application configuration structure.
type Config struct {
	DefaultScreen string   `yaml:"default_screen"` // Screen opened at startup
	Screens       []Screen `yaml:"screens"`
	Display       struct {
		Width          float64 `yaml:"width"`           // Rendered image width in pixels
		PrimaryColor   string  `yaml:"primary_color"`   // Main-model box color
		SecondaryColor string  `yaml:"secondary_color"` // Sub-model box color
		StrokeWidth    float64 `yaml:"stroke_width"`    // Box outline width
	} `yaml:"display"`
	Upload struct {
		RequestTimeout time.Duration `yaml:"request_timeout"` // 0 means no timeout
		UprightBoxes   bool          `yaml:"upright_boxes"`   // Service applies EXIF orientation before detecting
	} `yaml:"upload"`
	Menu struct {
		Title string `yaml:"title"` // Navigation bar title
	} `yaml:"menu"`
	Watch struct {
		Pattern string        `yaml:"pattern"` // Glob for images picked up by watch mode
		Settle  time.Duration `yaml:"settle"`  // Quiet period before a batch is emitted
	} `yaml:"watch"`
	Debug bool `yaml:"debug"`
}

// DefaultPath returns ~/.config/detectview/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "detectview", "config.yaml"), nil
}

// LoadConfig loads configuration from the default location.
func LoadConfig() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return LoadConfigFile(path)
}

// LoadConfigFile loads configuration from a specific file path.
// If the file doesn't exist, returns default configuration.
func LoadConfigFile(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var tempCfg Config
	if err := yaml.Unmarshal(data, &tempCfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	var listed struct {
		Screens []yaml.Node `yaml:"screens"`
	}
	if err := yaml.Unmarshal(data, &listed); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	cfg.merge(&tempCfg)
	if err := cfg.mergeScreens(listed.Screens); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// merge overlays the values set in loaded onto c. Screens are handled by
// mergeScreens.
func (c *Config) merge(loaded *Config) {
	if loaded.DefaultScreen != "" {
		c.DefaultScreen = loaded.DefaultScreen
	}

	if loaded.Display.Width > 0 {
		c.Display.Width = loaded.Display.Width
	}
	if loaded.Display.PrimaryColor != "" {
		c.Display.PrimaryColor = loaded.Display.PrimaryColor
	}
	if loaded.Display.SecondaryColor != "" {
		c.Display.SecondaryColor = loaded.Display.SecondaryColor
	}
	if loaded.Display.StrokeWidth > 0 {
		c.Display.StrokeWidth = loaded.Display.StrokeWidth
	}

	c.Upload.RequestTimeout = loaded.Upload.RequestTimeout
	c.Upload.UprightBoxes = loaded.Upload.UprightBoxes

	if loaded.Menu.Title != "" {
		c.Menu.Title = loaded.Menu.Title
	}
	if loaded.Watch.Pattern != "" {
		c.Watch.Pattern = loaded.Watch.Pattern
	}
	if loaded.Watch.Settle > 0 {
		c.Watch.Settle = loaded.Watch.Settle
	}
	c.Debug = loaded.Debug
}

// mergeScreens replaces c.Screens with the screens listed in the file.
// Each listed screen is decoded on top of the default of the same name, so
// keys left out keep the default's values. Screens without a default start
// from a single-select screen that is enabled and shows overlays.
func (c *Config) mergeScreens(nodes []yaml.Node) error {
	if len(nodes) == 0 {
		return nil
	}

	screens := make([]Screen, 0, len(nodes))
	for i := range nodes {
		var named struct {
			Name string `yaml:"name"`
		}
		if err := nodes[i].Decode(&named); err != nil {
			return err
		}

		s, ok := c.Screen(named.Name)
		if !ok {
			s = Screen{
				Name:           named.Name,
				MaxSelection:   1,
				ShowOverlays:   true,
				CountSubModels: true,
				Enabled:        true,
			}
		}
		if err := nodes[i].Decode(&s); err != nil {
			return err
		}
		screens = append(screens, s)
	}
	c.Screens = screens
	return nil
}

// defaultConfig returns the built-in native, web and pick screens.
func defaultConfig() *Config {
	cfg := &Config{}

	cfg.DefaultScreen = "native"
	cfg.Screens = []Screen{
		{
			Name:            "native",
			Title:           "Car Detection",
			EndpointBaseURL: "http://10.0.2.2:8000/", // Android emulator loopback
			MaxSelection:    MaxSelectionLimit,
			MultiSelect:     true,
			ShowOverlays:    true,
			CountSubModels:  true,
			Enabled:         true,
		},
		{
			Name:            "web",
			Title:           "Car Detection (Web)",
			EndpointBaseURL: "http://localhost:8000/",
			MaxSelection:    1,
			MultiSelect:     false,
			ShowOverlays:    true,
			CountSubModels:  true,
			Enabled:         true,
		},
		{
			Name:            "pick",
			Title:           "Pick Processing",
			EndpointBaseURL: "http://localhost:8000/",
			MaxSelection:    MaxSelectionLimit,
			MultiSelect:     true,
			ShowOverlays:    false,
			CountSubModels:  false,
			Enabled:         false,
		},
	}

	cfg.Display.Width = 360
	cfg.Display.PrimaryColor = "blue"
	cfg.Display.SecondaryColor = "red"
	cfg.Display.StrokeWidth = 2

	cfg.Upload.RequestTimeout = 0 // unbounded

	cfg.Menu.Title = "Beta Version"

	cfg.Watch.Pattern = media.DefaultPattern
	cfg.Watch.Settle = 2 * time.Second

	return cfg
}

// New creates a new configuration instance with default values.
func New() *Config {
	return defaultConfig()
}

// Screen returns the screen with the given name.
func (c *Config) Screen(name string) (Screen, bool) {
	for _, s := range c.Screens {
		if s.Name == name {
			return s, true
		}
	}
	return Screen{}, false
}

// ActiveScreen returns the named screen, or the default screen when name is empty.
func (c *Config) ActiveScreen(name string) (Screen, error) {
	if name == "" {
		name = c.DefaultScreen
	}
	s, ok := c.Screen(name)
	if !ok {
		return Screen{}, serr.NewConfigError("unknown screen", name, serr.InvalidConfig, nil)
	}
	return s, nil
}

// EnabledScreens returns the screens listed in the side menu, in order.
func (c *Config) EnabledScreens() []Screen {
	var out []Screen
	for _, s := range c.Screens {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}

// OverrideEndpoint points every screen at endpoint.
func (c *Config) OverrideEndpoint(endpoint string) {
	if endpoint == "" {
		return
	}
	for i := range c.Screens {
		c.Screens[i].EndpointBaseURL = endpoint
	}
}

// LoadDotEnv loads KEY=value pairs from the given .env files into the
// process environment without overriding variables that are already set.
// Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("error loading %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv applies environment overrides. It returns the endpoint used, if any.
func (c *Config) ApplyEnv() string {
	endpoint := strings.TrimSpace(os.Getenv(EndpointEnvVar))
	c.OverrideEndpoint(endpoint)
	return endpoint
}

// SaveConfig saves the configuration to the specified file.
// It creates parent directories if they don't exist.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("nil config")
	}

	if len(c.Screens) == 0 {
		return serr.NewConfigError("at least one screen is required", "screens", serr.InvalidConfig, nil)
	}

	seen := make(map[string]bool, len(c.Screens))
	for i, s := range c.Screens {
		if s.Name == "" {
			return serr.NewConfigError(fmt.Sprintf("screen %d: name is required", i), "screens", serr.InvalidConfig, nil)
		}
		if seen[s.Name] {
			return serr.NewConfigError("duplicate screen name", s.Name, serr.InvalidConfig, nil)
		}
		seen[s.Name] = true

		if err := validateEndpoint(s.EndpointBaseURL); err != nil {
			return serr.NewConfigError("invalid endpoint for screen "+s.Name, s.EndpointBaseURL, serr.InvalidConfig, err)
		}

		if s.MultiSelect {
			if s.MaxSelection < 1 || s.MaxSelection > MaxSelectionLimit {
				return serr.NewConfigError(
					fmt.Sprintf("screen %s: max_selection must be between 1 and %d", s.Name, MaxSelectionLimit),
					"max_selection", serr.InvalidConfig, nil)
			}
		} else if s.MaxSelection != 1 {
			return serr.NewConfigError(
				fmt.Sprintf("screen %s: max_selection must be 1 when multi_select is off", s.Name),
				"max_selection", serr.InvalidConfig, nil)
		}
	}

	if _, ok := c.Screen(c.DefaultScreen); !ok {
		return serr.NewConfigError("default screen does not exist", c.DefaultScreen, serr.InvalidConfig, nil)
	}

	if c.Display.Width <= 0 {
		return serr.NewConfigError("display width must be positive", "display.width", serr.InvalidConfig, nil)
	}
	if c.Display.StrokeWidth <= 0 {
		return serr.NewConfigError("stroke width must be positive", "display.stroke_width", serr.InvalidConfig, nil)
	}
	if _, err := ParseColor(c.Display.PrimaryColor); err != nil {
		return serr.NewConfigError("invalid color", "display.primary_color", serr.InvalidConfig, err)
	}
	if _, err := ParseColor(c.Display.SecondaryColor); err != nil {
		return serr.NewConfigError("invalid color", "display.secondary_color", serr.InvalidConfig, err)
	}

	if c.Upload.RequestTimeout < 0 {
		return serr.NewConfigError("request timeout must be >= 0", "upload.request_timeout", serr.InvalidConfig, nil)
	}

	return nil
}

func validateEndpoint(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}

var namedColors = map[string]color.NRGBA{
	"blue":   {R: 0, G: 0, B: 255, A: 255},
	"red":    {R: 255, G: 0, B: 0, A: 255},
	"green":  {R: 0, G: 128, B: 0, A: 255},
	"yellow": {R: 255, G: 255, B: 0, A: 255},
	"orange": {R: 255, G: 165, B: 0, A: 255},
	"white":  {R: 255, G: 255, B: 255, A: 255},
	"black":  {R: 0, G: 0, B: 0, A: 255},
}

// ParseColor accepts a color name or #RRGGBB / #RRGGBBAA.
func ParseColor(s string) (color.NRGBA, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := namedColors[s]; ok {
		return c, nil
	}
	if !strings.HasPrefix(s, "#") || (len(s) != 7 && len(s) != 9) {
		return color.NRGBA{}, fmt.Errorf("unrecognized color %q", s)
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("unrecognized color %q: %w", s, err)
	}
	if len(s) == 7 {
		return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// Colors returns the parsed primary and secondary box colors. Validate
// guarantees both parse; unparsable values fall back to blue and red.
func (c *Config) Colors() (primary, secondary color.NRGBA) {
	var err error
	if primary, err = ParseColor(c.Display.PrimaryColor); err != nil {
		primary = namedColors["blue"]
	}
	if secondary, err = ParseColor(c.Display.SecondaryColor); err != nil {
		secondary = namedColors["red"]
	}
	return primary, secondary
}

// NewTestConfig creates a configuration instance for testing purposes,
// pointing every screen at endpoint.
func NewTestConfig(endpoint string) *Config {
	cfg := defaultConfig()
	cfg.OverrideEndpoint(endpoint)
	cfg.Display.Width = 100
	return cfg
}
