package main

import (
	"fmt"

	"github.com/dailypush/tfttouch/calib"
)

// capture collects one raw reading per calibration target. A target is
// taken once the pen has rested within jitter of the same spot for need
// polls that each produced a new position, and the pen must lift before
// the next target is armed. Polls whose position was not refreshed neither
// count nor reset the hold, since their position may predate the touch.
type capture struct {
	targets [3]calib.Point
	raw     [3]calib.Point
	step    int

	need   int
	jitter int

	held   int
	last   calib.Point
	lifted bool
}

func newCapture(targets [3]calib.Point, need, jitter int) *capture {
	if need < 1 {
		need = 1
	}
	return &capture{targets: targets, need: need, jitter: jitter, lifted: true}
}

// feed advances the capture with one poll. fresh reports whether p was
// measured by this poll. It returns true when a target was captured.
func (c *capture) feed(pressed, fresh bool, p calib.Point) bool {
	if c.done() {
		return false
	}
	if !pressed {
		c.held = 0
		c.lifted = true
		return false
	}
	if !c.lifted || !fresh {
		return false
	}
	if c.held > 0 && (abs(p.X-c.last.X) > c.jitter || abs(p.Y-c.last.Y) > c.jitter) {
		c.held = 0
	}
	c.last = p
	c.held++
	if c.held < c.need {
		return false
	}
	c.raw[c.step] = p
	c.step++
	c.held = 0
	c.lifted = false
	return true
}

func (c *capture) done() bool {
	return c.step >= len(c.targets)
}

// restart discards everything captured so far.
func (c *capture) restart() {
	c.step = 0
	c.held = 0
	c.lifted = false
}

func (c *capture) label() string {
	if c.done() {
		return "release"
	}
	return fmt.Sprintf("touch %d/%d", c.step+1, len(c.targets))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
