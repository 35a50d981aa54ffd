package spibus

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"periph.io/x/conn/v3/conntest"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/spi/spitest"
)

func TestHardwareTransfer(t *testing.T) {
	c := qt.New(t)
	port := spitest.Playback{
		Playback: conntest.Playback{
			Ops: []conntest.IO{
				{W: []byte{0xB8}, R: []byte{0x00}},
				{W: []byte{0x00}, R: []byte{0x42}},
				{W: []byte{0x00, 0x00}, R: []byte{0x12, 0x34}},
			},
			DontPanic: true,
		},
	}
	h, err := NewHardware(&port, 0)
	c.Assert(err, qt.IsNil)

	_, err = h.Transfer(0xB8)
	c.Assert(err, qt.IsNil)
	v, err := h.Transfer(0x00)
	c.Assert(err, qt.IsNil)
	c.Assert(v, qt.Equals, byte(0x42))

	r := make([]byte, 2)
	c.Assert(h.Tx(nil, r), qt.IsNil)
	c.Assert(r, qt.DeepEquals, []byte{0x12, 0x34})
	c.Assert(port.Close(), qt.IsNil)
}

func TestHardwareTransferError(t *testing.T) {
	c := qt.New(t)
	port := spitest.Playback{Playback: conntest.Playback{DontPanic: true}}
	h, err := NewHardware(&port, 0)
	c.Assert(err, qt.IsNil)
	_, err = h.Transfer(0x90)
	c.Assert(err, qt.ErrorMatches, "conntest: unexpected Tx.*")
}

// edgePin calls onRise on every low to high transition.
type edgePin struct {
	gpiotest.Pin
	onRise func()
}

func (p *edgePin) Out(l gpio.Level) error {
	if l == gpio.High && p.Pin.Read() == gpio.Low && p.onRise != nil {
		p.onRise()
	}
	return p.Pin.Out(l)
}

// slave models the far end of the wire: it latches MOSI and presents the
// next bit of reply on MISO at each rising clock edge.
type slave struct {
	clk   edgePin
	mosi  gpiotest.Pin
	miso  gpiotest.Pin
	reply []byte
	got   []byte
	bit   int
}

func newSlave(reply ...byte) *slave {
	s := &slave{
		clk:   edgePin{Pin: gpiotest.Pin{N: "SCK", Num: 11}},
		mosi:  gpiotest.Pin{N: "MOSI", Num: 10},
		miso:  gpiotest.Pin{N: "MISO", Num: 9},
		reply: reply,
	}
	s.clk.onRise = s.rise
	return s
}

func (s *slave) rise() {
	byteIdx, shift := s.bit/8, 7-s.bit%8
	if shift == 7 {
		s.got = append(s.got, 0)
	}
	if s.mosi.Read() == gpio.High {
		s.got[byteIdx] |= 1 << uint(shift)
	}
	var l gpio.Level
	if byteIdx < len(s.reply) {
		l = gpio.Level(s.reply[byteIdx]&(1<<uint(shift)) != 0)
	}
	s.miso.Out(l)
	s.bit++
}

func TestBitBangTransfer(t *testing.T) {
	c := qt.New(t)
	s := newSlave(0xA5)
	b, err := NewBitBang(&s.clk, &s.mosi, &s.miso)
	c.Assert(err, qt.IsNil)

	v, err := b.Transfer(0x3C)
	c.Assert(err, qt.IsNil)
	c.Assert(v, qt.Equals, byte(0xA5))
	c.Assert(s.got, qt.DeepEquals, []byte{0x3C})
	c.Assert(s.clk.Read(), qt.Equals, gpio.Low)
}

func TestBitBangTx(t *testing.T) {
	c := qt.New(t)
	s := newSlave(0x00, 0x7F, 0x80)
	b, err := NewBitBang(&s.clk, &s.mosi, &s.miso)
	c.Assert(err, qt.IsNil)

	r := make([]byte, 3)
	c.Assert(b.Tx([]byte{0x90, 0x00, 0x00}, r), qt.IsNil)
	c.Assert(r, qt.DeepEquals, []byte{0x00, 0x7F, 0x80})
	c.Assert(s.got, qt.DeepEquals, []byte{0x90, 0x00, 0x00})

	c.Assert(b.Tx([]byte{1}, make([]byte, 2)), qt.ErrorMatches, "spibus: w and r must be the same length")
}

func TestNewBitBangMissingPin(t *testing.T) {
	c := qt.New(t)
	_, err := NewBitBang(nil, &gpiotest.Pin{}, &gpiotest.Pin{})
	c.Assert(err, qt.Not(qt.IsNil))
}
