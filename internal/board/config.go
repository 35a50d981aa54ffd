// Package board wires the touch controller, panel and calibration storage
// of a Linux host from layered configuration.
package board

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/warthog618/config"
	"github.com/warthog618/config/blob"
	"github.com/warthog618/config/blob/decoder/json"
	"github.com/warthog618/config/dict"
	"github.com/warthog618/config/env"
	"github.com/warthog618/config/pflag"
)

// Config is the wiring and tuning of a panel.
type Config struct {
	TouchPort   string
	TouchHz     int64
	BitBang     bool
	CS          string
	CLK         string
	MOSI        string
	MISO        string
	IRQ         string
	MinPressure uint8
	Resolution  int
	Orientation uint16

	Display     string
	DisplayPort string
	DC          string
	RST         string

	Storage     string
	StoragePath string
	I2CBus      string
	EEPROMAddr  uint16
	CalAddr     int64

	Poll time.Duration
}

// Defaults are the settings for a Raspberry Pi with the panel on SPI0, the
// touch controller on CE1 and calibration kept in a file.
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"touchport":   "SPI0.1",
		"touchhz":     1000000,
		"bitbang":     false,
		"cs":          "GPIO7",
		"clk":         "GPIO11",
		"mosi":        "GPIO10",
		"miso":        "GPIO9",
		"irq":         "",
		"pressure":    5,
		"resolution":  10,
		"orientation": 0,
		"display":     "ili9341",
		"displayport": "SPI0.0",
		"dc":          "GPIO24",
		"rst":         "GPIO25",
		"storage":     "file",
		"path":        "/var/lib/tfttouch/calibration.eeprom",
		"i2c":         "1",
		"eeprom":      0x57,
		"addr":        0,
		"poll":        "20ms",
		"v":           0,
	}
}

// LoadConfig layers the command line, TFTTOUCH_ environment variables, an
// optional JSON config file and the defaults, with extra overriding
// Defaults.
func LoadConfig(app string, extra map[string]interface{}) *config.Config {
	def := Defaults()
	for k, v := range extra {
		def[k] = v
	}
	cfg := config.New(
		pflag.New(pflag.WithFlags(
			[]pflag.Flag{{Short: 'c', Name: "config-file"}})),
		env.New(env.WithEnvPrefix("TFTTOUCH_")),
		config.WithDefault(dict.New(dict.WithMap(def))))
	cfg.Append(
		blob.NewConfigFile(cfg, "config.file", app+".json", json.NewDecoder()))
	return cfg.GetConfig("", config.WithMust())
}

// FromConfig extracts the wiring from cfg.
func FromConfig(cfg *config.Config) (Config, error) {
	c := Config{
		TouchPort:   cfg.MustGet("touchport").String(),
		TouchHz:     int64(cfg.MustGet("touchhz").Int()),
		BitBang:     cfg.MustGet("bitbang").Bool(),
		CS:          cfg.MustGet("cs").String(),
		CLK:         cfg.MustGet("clk").String(),
		MOSI:        cfg.MustGet("mosi").String(),
		MISO:        cfg.MustGet("miso").String(),
		IRQ:         cfg.MustGet("irq").String(),
		Resolution:  cfg.MustGet("resolution").Int(),
		Orientation: uint16(cfg.MustGet("orientation").Uint()),
		Display:     strings.ToLower(cfg.MustGet("display").String()),
		DisplayPort: cfg.MustGet("displayport").String(),
		DC:          cfg.MustGet("dc").String(),
		RST:         cfg.MustGet("rst").String(),
		Storage:     strings.ToLower(cfg.MustGet("storage").String()),
		StoragePath: cfg.MustGet("path").String(),
		I2CBus:      cfg.MustGet("i2c").String(),
		EEPROMAddr:  uint16(cfg.MustGet("eeprom").Uint()),
		CalAddr:     int64(cfg.MustGet("addr").Int()),
		Poll:        cfg.MustGet("poll").Duration(),
	}
	p := cfg.MustGet("pressure").Int()
	if p < 0 || p > 254 {
		return Config{}, fmt.Errorf("board: pressure %d out of range 0..254", p)
	}
	c.MinPressure = uint8(p)
	if c.Resolution != 10 && c.Resolution != 12 {
		return Config{}, fmt.Errorf("board: resolution must be 10 or 12, got %d", c.Resolution)
	}
	switch c.Display {
	case "ili9341", "epd2in13v4", "none":
	default:
		return Config{}, fmt.Errorf("board: unknown display %q", c.Display)
	}
	switch c.Storage {
	case "file", "eeprom":
	default:
		return Config{}, fmt.Errorf("board: unknown storage %q", c.Storage)
	}
	if c.Poll <= 0 {
		return Config{}, fmt.Errorf("board: poll interval must be positive, got %s", c.Poll)
	}
	return c, nil
}

// SetupLogging routes glog to stderr at the configured verbosity.
func SetupLogging(cfg *config.Config) {
	flag.Set("logtostderr", "true")
	flag.Set("v", cfg.MustGet("v").String())
}
