package board

import (
	"errors"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/warthog618/config"
	"github.com/warthog618/config/dict"
	"github.com/warthog618/config/env"
)

func testConfig(over map[string]interface{}) *config.Config {
	def := Defaults()
	for k, v := range over {
		def[k] = v
	}
	return config.New(
		env.New(env.WithEnvPrefix("TFTTOUCH_")),
		config.WithDefault(dict.New(dict.WithMap(def))))
}

func TestFromConfigDefaults(t *testing.T) {
	c := qt.New(t)
	cfg, err := FromConfig(testConfig(nil))
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.TouchPort, qt.Equals, "SPI0.1")
	c.Assert(cfg.TouchHz, qt.Equals, int64(1000000))
	c.Assert(cfg.BitBang, qt.IsFalse)
	c.Assert(cfg.CS, qt.Equals, "GPIO7")
	c.Assert(cfg.MinPressure, qt.Equals, uint8(5))
	c.Assert(cfg.Resolution, qt.Equals, 10)
	c.Assert(cfg.Display, qt.Equals, "ili9341")
	c.Assert(cfg.Storage, qt.Equals, "file")
	c.Assert(cfg.EEPROMAddr, qt.Equals, uint16(0x57))
	c.Assert(cfg.CalAddr, qt.Equals, int64(0))
	c.Assert(cfg.Poll, qt.Equals, 20*time.Millisecond)
}

func TestFromConfigEnv(t *testing.T) {
	c := qt.New(t)
	t.Setenv("TFTTOUCH_ORIENTATION", "27")
	t.Setenv("TFTTOUCH_STORAGE", "EEPROM")
	t.Setenv("TFTTOUCH_PRESSURE", "40")
	cfg, err := FromConfig(testConfig(nil))
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.Orientation, qt.Equals, uint16(27))
	c.Assert(cfg.Storage, qt.Equals, "eeprom")
	c.Assert(cfg.MinPressure, qt.Equals, uint8(40))
}

func TestFromConfigInvalid(t *testing.T) {
	tests := []struct {
		name string
		over map[string]interface{}
		err  string
	}{
		{"pressure", map[string]interface{}{"pressure": 255}, "board: pressure 255 out of range 0..254"},
		{"resolution", map[string]interface{}{"resolution": 8}, "board: resolution must be 10 or 12, got 8"},
		{"display", map[string]interface{}{"display": "oled"}, `board: unknown display "oled"`},
		{"storage", map[string]interface{}{"storage": "nvram"}, `board: unknown storage "nvram"`},
		{"poll", map[string]interface{}{"poll": "0s"}, "board: poll interval must be positive, got 0s"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := qt.New(t)
			_, err := FromConfig(testConfig(tc.over))
			c.Assert(err, qt.ErrorMatches, tc.err)
		})
	}
}

func TestCloseReverseOrder(t *testing.T) {
	c := qt.New(t)
	var order []int
	b := &Board{}
	for i := 0; i < 3; i++ {
		i := i
		b.onClose(func() error {
			order = append(order, i)
			if i == 1 {
				return errors.New("busy")
			}
			return nil
		})
	}
	c.Assert(b.Close(), qt.ErrorMatches, "busy")
	c.Assert(order, qt.DeepEquals, []int{2, 1, 0})
	c.Assert(b.Close(), qt.IsNil)
}

func TestPinUnknown(t *testing.T) {
	c := qt.New(t)
	_, err := pin("NOSUCHPIN")
	c.Assert(err, qt.ErrorMatches, `board: no gpio pin "NOSUCHPIN"`)
}
