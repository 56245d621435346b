package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// CameraConfig describes the capture device.
// Type selects a concrete implementation ("v4l2" or "mock").
type CameraConfig struct {
	Type          string `yaml:"type"`            // "v4l2" (real device) or "mock" (test pattern)
	Index         int    `yaml:"index"`           // device index, /dev/video<index>
	Width         int    `yaml:"width"`           // requested capture width (px)
	Height        int    `yaml:"height"`          // requested capture height (px)
	PollFPS       int    `yaml:"poll_fps"`        // live preview refresh rate on the capture screen
	ReadTimeoutMs int    `yaml:"read_timeout_ms"` // max wait for one frame
}

// FramesConfig points at the directory of overlay PNGs.
type FramesConfig struct {
	Dir string `yaml:"dir"`
}

// CountdownConfig controls the countdown before the grab.
type CountdownConfig struct {
	From       int    `yaml:"from"`        // first label shown, e.g. 3
	TickMs     int    `yaml:"tick_ms"`     // delay between labels
	AnnounceMs int    `yaml:"announce_ms"` // how long the smile label stays before the grab
	SmileLabel string `yaml:"smile_label"` // label shown right before the grab
}

// PreviewConfig controls the preview screen timing.
type PreviewConfig struct {
	PrintDelayMs  int `yaml:"print_delay_ms"`  // preview shown this long before printing
	ReturnDelayMs int `yaml:"return_delay_ms"` // wait after printing before going back to welcome
}

// PrinterConfig describes the print job.
type PrinterConfig struct {
	WidthPx       int    `yaml:"width_px"`       // print resolution (A4 at 300 DPI = 2480)
	HeightPx      int    `yaml:"height_px"`      // print resolution (A4 at 300 DPI = 3508)
	Title         string `yaml:"title"`          // job title shown in the print queue
	Command       string `yaml:"command"`        // submit command, "lp"
	StatusCommand string `yaml:"status_command"` // default destination query, "lpstat"
}

// OutputConfig describes where saved photos go.
type OutputConfig struct {
	Bucket     string `yaml:"bucket"`      // directory or gocloud bucket URL (file://)
	Quality    int    `yaml:"quality"`     // JPEG quality 1-100
	SaveAlways bool   `yaml:"save_always"` // also save when printing succeeded
}

// JournalConfig describes the session journal. Empty path disables it.
type JournalConfig struct {
	Path string `yaml:"path"`
}

// GPIOConfig describes the optional arcade button and flash LED.
type GPIOConfig struct {
	Mock      bool `yaml:"mock"`       // use mock GPIO (true=dev/test, false=real Raspberry Pi)
	ButtonPin int  `yaml:"button_pin"` // BCM pin of the push button (active LOW, pull-up). 0 = not used.
	FlashPin  int  `yaml:"flash_pin"`  // BCM pin of the flash LED (active HIGH). 0 = not used.
	PollMs    int  `yaml:"poll_ms"`    // button sampling period
}

// WebConfig describes the kiosk HTTP server.
type WebConfig struct {
	Port int `yaml:"port"`
}

// DefaultsConfig contains generic parameters.
type DefaultsConfig struct {
	DebugLevel int `yaml:"debug_level"` // debug level 1-4 (1=info, 2=live, 3=verbose, 4=trace)
}

// Config aggregates all application configuration.
type Config struct {
	Camera    CameraConfig    `yaml:"camera"`
	Frames    FramesConfig    `yaml:"frames"`
	Countdown CountdownConfig `yaml:"countdown"`
	Preview   PreviewConfig   `yaml:"preview"`
	Printer   PrinterConfig   `yaml:"printer"`
	Output    OutputConfig    `yaml:"output"`
	Journal   JournalConfig   `yaml:"journal"`
	GPIO      GPIOConfig      `yaml:"gpio"`
	Web       WebConfig       `yaml:"web"`
	Defaults  DefaultsConfig  `yaml:"defaults"`
}

// ValidateConfigPath rejects paths that escape a configs/ directory or
// that do not point at a .yaml file.
func ValidateConfigPath(path string) error {
	if path == "" {
		return fmt.Errorf("config path is empty")
	}
	if strings.Contains(filepath.ToSlash(path), "..") {
		return fmt.Errorf("config path must not contain '..': %s", path)
	}
	clean := filepath.Clean(path)
	if filepath.Ext(clean) != ".yaml" {
		return fmt.Errorf("config path must end in .yaml: %s", path)
	}
	if filepath.Base(filepath.Dir(clean)) != "configs" {
		return fmt.Errorf("config file must live in a configs/ directory: %s", path)
	}
	return nil
}

// Load reads a YAML file and returns the configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML bytes, applies defaults and validates.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	// Camera
	if cfg.Camera.Type == "" {
		cfg.Camera.Type = "v4l2"
	}
	if cfg.Camera.Type != "v4l2" && cfg.Camera.Type != "mock" {
		return nil, fmt.Errorf("unsupported camera.type: %s", cfg.Camera.Type)
	}
	if cfg.Camera.Index < 0 {
		return nil, fmt.Errorf("camera.index must be >= 0, got %d", cfg.Camera.Index)
	}
	if cfg.Camera.Width <= 0 {
		cfg.Camera.Width = 1280
	}
	if cfg.Camera.Height <= 0 {
		cfg.Camera.Height = 720
	}
	if cfg.Camera.PollFPS <= 0 {
		cfg.Camera.PollFPS = 30
	}
	if cfg.Camera.PollFPS > 60 {
		return nil, fmt.Errorf("camera.poll_fps must be <= 60, got %d", cfg.Camera.PollFPS)
	}
	if cfg.Camera.ReadTimeoutMs <= 0 {
		cfg.Camera.ReadTimeoutMs = 2000
	}

	// Frames
	if cfg.Frames.Dir == "" {
		cfg.Frames.Dir = "molduras"
	}

	// Countdown
	if cfg.Countdown.From <= 0 {
		cfg.Countdown.From = 3
	}
	if cfg.Countdown.From > 10 {
		return nil, fmt.Errorf("countdown.from must be <= 10, got %d", cfg.Countdown.From)
	}
	if cfg.Countdown.TickMs <= 0 {
		cfg.Countdown.TickMs = 1000
	}
	if cfg.Countdown.AnnounceMs <= 0 {
		cfg.Countdown.AnnounceMs = 500
	}
	if cfg.Countdown.SmileLabel == "" {
		cfg.Countdown.SmileLabel = "SORRIA!"
	}

	// Preview
	if cfg.Preview.PrintDelayMs <= 0 {
		cfg.Preview.PrintDelayMs = 5000
	}
	if cfg.Preview.ReturnDelayMs <= 0 {
		cfg.Preview.ReturnDelayMs = 2000
	}

	// Printer
	if cfg.Printer.WidthPx <= 0 {
		cfg.Printer.WidthPx = 2480 // A4 @ 300 DPI
	}
	if cfg.Printer.HeightPx <= 0 {
		cfg.Printer.HeightPx = 3508
	}
	if cfg.Printer.Title == "" {
		cfg.Printer.Title = "Cabine Fotográfica"
	}
	if cfg.Printer.Command == "" {
		cfg.Printer.Command = "lp"
	}
	if cfg.Printer.StatusCommand == "" {
		cfg.Printer.StatusCommand = "lpstat"
	}

	// Output
	if cfg.Output.Bucket == "" {
		cfg.Output.Bucket = "fotos"
	}
	if cfg.Output.Quality == 0 {
		cfg.Output.Quality = 95
	}
	if cfg.Output.Quality < 1 || cfg.Output.Quality > 100 {
		return nil, fmt.Errorf("output.quality must be between 1 and 100, got %d", cfg.Output.Quality)
	}

	// GPIO
	if cfg.GPIO.ButtonPin < 0 || cfg.GPIO.FlashPin < 0 {
		return nil, fmt.Errorf("gpio pins must be >= 0")
	}
	if cfg.GPIO.ButtonPin != 0 && cfg.GPIO.ButtonPin == cfg.GPIO.FlashPin {
		return nil, fmt.Errorf("gpio.button_pin and gpio.flash_pin must differ, both %d", cfg.GPIO.ButtonPin)
	}
	if cfg.GPIO.PollMs <= 0 {
		cfg.GPIO.PollMs = 20
	}

	// Web
	if cfg.Web.Port == 0 {
		cfg.Web.Port = 8080
	}
	if cfg.Web.Port < 0 || cfg.Web.Port > 65535 {
		return nil, fmt.Errorf("web.port must be 1-65535, got %d", cfg.Web.Port)
	}

	if cfg.Defaults.DebugLevel <= 0 {
		cfg.Defaults.DebugLevel = 1
	}

	return &cfg, nil
}

// PollInterval returns the live preview refresh period.
func (c *Config) PollInterval() time.Duration {
	return time.Second / time.Duration(c.Camera.PollFPS)
}

// ReadTimeout returns the maximum wait for one camera frame.
func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.Camera.ReadTimeoutMs) * time.Millisecond
}

// Tick returns the delay between two countdown labels.
func (c *Config) Tick() time.Duration {
	return time.Duration(c.Countdown.TickMs) * time.Millisecond
}

// Announce returns how long the smile label is shown before the grab.
func (c *Config) Announce() time.Duration {
	return time.Duration(c.Countdown.AnnounceMs) * time.Millisecond
}

// PrintDelay returns how long the preview is shown before printing.
func (c *Config) PrintDelay() time.Duration {
	return time.Duration(c.Preview.PrintDelayMs) * time.Millisecond
}

// ReturnDelay returns the wait after printing before going back to welcome.
func (c *Config) ReturnDelay() time.Duration {
	return time.Duration(c.Preview.ReturnDelayMs) * time.Millisecond
}

// ButtonPoll returns the GPIO button sampling period.
func (c *Config) ButtonPoll() time.Duration {
	return time.Duration(c.GPIO.PollMs) * time.Millisecond
}
