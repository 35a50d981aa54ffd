package eeprom

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"
	"periph.io/x/conn/v3/i2c/i2ctest"

	"github.com/dailypush/tfttouch/calib"
)

func TestAT24CReadAt(t *testing.T) {
	c := qt.New(t)
	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x57, W: []byte{0x01, 0x10}, R: []byte{0x55, 0x01, 0x02}},
		},
		DontPanic: true,
	}
	e, err := NewAT24C(bus, nil)
	c.Assert(err, qt.IsNil)
	c.Assert(e.String(), qt.Equals, "AT24C{playback, 0x57}")

	b := make([]byte, 3)
	n, err := e.ReadAt(b, 0x110)
	c.Assert(err, qt.IsNil)
	c.Assert(n, qt.Equals, 3)
	c.Assert(b, qt.DeepEquals, []byte{0x55, 0x01, 0x02})
	c.Assert(bus.Close(), qt.IsNil)
}

func TestAT24CWritePaged(t *testing.T) {
	c := qt.New(t)
	data := make([]byte, calib.BlockSize)
	for i := range data {
		data[i] = byte(i + 1)
	}
	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x50, W: append([]byte{0x00, 0x00}, data[:30]...)},
			{Addr: 0x50, W: append([]byte{0x00, 30}, data[30:32]...)},
			{Addr: 0x50, W: append([]byte{0x00, 32}, data[32:]...)},
		},
		DontPanic: true,
	}
	e, err := NewAT24C(bus, &Opts{Addr: 0x50, PageSize: 32, Size: 4096})
	c.Assert(err, qt.IsNil)

	n, err := e.WriteAt(data, 0)
	c.Assert(err, qt.IsNil)
	c.Assert(n, qt.Equals, len(data))
	c.Assert(bus.Close(), qt.IsNil)
}

func TestAT24CBusError(t *testing.T) {
	c := qt.New(t)
	bus := &i2ctest.Playback{DontPanic: true}
	e, err := NewAT24C(bus, nil)
	c.Assert(err, qt.IsNil)
	_, err = e.ReadAt(make([]byte, 1), 0)
	c.Assert(err, qt.ErrorMatches, "eeprom: read 1 bytes at 0: i2ctest: unexpected Tx.*")
}

func TestAT24CRange(t *testing.T) {
	c := qt.New(t)
	e, err := NewAT24C(&i2ctest.Playback{DontPanic: true}, nil)
	c.Assert(err, qt.IsNil)
	_, err = e.ReadAt(make([]byte, 8), 4090)
	c.Assert(err, qt.ErrorIs, ErrRange)
	_, err = e.WriteAt(make([]byte, 1), -1)
	c.Assert(err, qt.ErrorIs, ErrRange)

	_, err = NewAT24C(&i2ctest.Playback{}, &Opts{Size: 1 << 20})
	c.Assert(err, qt.ErrorMatches, "eeprom: invalid size 1048576")
}

func TestAT24CSizeLimit(t *testing.T) {
	c := qt.New(t)
	_, err := NewAT24C(&i2ctest.Playback{}, &Opts{PageSize: 128, Size: 1 << 16})
	c.Assert(err, qt.ErrorMatches, "eeprom: invalid size 65536")

	e, err := NewAT24C(&i2ctest.Playback{}, &Opts{PageSize: 128, Size: 0xFFFF})
	c.Assert(err, qt.IsNil)
	c.Assert(e.Size(), qt.Equals, int64(0xFFFF))
}

func TestAT24CCalibration(t *testing.T) {
	c := qt.New(t)
	cal := calib.New()
	c.Assert(cal.SetCalibration(calib.DefaultTargets(320, 240),
		[3]calib.Point{{X: 870, Y: 3420}, {X: 3610, Y: 1980}, {X: 2150, Y: 570}}), qt.IsNil)
	block, err := cal.Matrix().MarshalBinary()
	c.Assert(err, qt.IsNil)
	stored := append([]byte{calib.Marker}, block...)

	// The block starts two bytes before a page boundary.
	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x57, W: append([]byte{0x00, 30}, stored[:2]...)},
			{Addr: 0x57, W: append([]byte{0x00, 32}, stored[2:32]...)},
			{Addr: 0x57, W: append([]byte{0x00, 62}, stored[32:34]...)},
			{Addr: 0x57, W: append([]byte{0x00, 64}, stored[34:]...)},
			{Addr: 0x57, W: []byte{0x00, 30}, R: stored[:1]},
			{Addr: 0x57, W: []byte{0x00, 31}, R: stored[1:]},
		},
		DontPanic: true,
	}
	e, err := NewAT24C(bus, nil)
	c.Assert(err, qt.IsNil)
	c.Assert(cal.WriteCalibration(e, 30), qt.IsNil)

	restored := calib.New()
	c.Assert(restored.ReadCalibration(e, 30), qt.IsNil)
	c.Assert(restored.Matrix(), qt.Equals, cal.Matrix())
	c.Assert(bus.Close(), qt.IsNil)
}

func TestFile(t *testing.T) {
	c := qt.New(t)
	path := filepath.Join(c.TempDir(), "sub", "touch.eeprom")
	f, err := OpenFile(path, 64)
	c.Assert(err, qt.IsNil)
	c.Assert(f.Size(), qt.Equals, int64(64))

	b := make([]byte, 64)
	_, err = f.ReadAt(b, 0)
	c.Assert(err, qt.IsNil)
	c.Assert(b, qt.DeepEquals, bytes.Repeat([]byte{Erased}, 64))

	n, err := f.WriteAt([]byte{1, 2, 3}, 10)
	c.Assert(err, qt.IsNil)
	c.Assert(n, qt.Equals, 3)
	_, err = f.WriteAt([]byte{1}, 64)
	c.Assert(err, qt.ErrorIs, ErrRange)
	c.Assert(f.Close(), qt.IsNil)

	// Reopening keeps the content.
	f, err = OpenFile(path, 64)
	c.Assert(err, qt.IsNil)
	defer f.Close()
	got := make([]byte, 3)
	_, err = f.ReadAt(got, 10)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.DeepEquals, []byte{1, 2, 3})

	fi, err := os.Stat(path)
	c.Assert(err, qt.IsNil)
	c.Assert(fi.Size(), qt.Equals, int64(64))
}
