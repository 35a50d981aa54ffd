// touchdraw is a finger painting demo using the linear raw to pixel mapping
// of tft.Touch. The raw bounds come from configuration, typically values
// read off touchcal's log at the panel edges. Unset bounds span most of the
// sampler's conversion range.
package main

import (
	"context"
	"image"
	"image/draw"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang/glog"

	"github.com/dailypush/tfttouch/internal/board"
	"github.com/dailypush/tfttouch/tft"
)

func main() {
	cfg := board.LoadConfig("touchdraw", map[string]interface{}{
		"xmin":     0,
		"xmax":     0,
		"ymin":     0,
		"ymax":     0,
		"clamp":    true,
		"brush":    3,
		"font":     "",
		"fontsize": 14,
		"title":    "touchdraw",
		"refresh":  "250ms",
	})
	board.SetupLogging(cfg)
	c, err := board.FromConfig(cfg)
	if err != nil {
		glog.Exitf("config: %v", err)
	}
	b, err := board.Open(c)
	if err != nil {
		glog.Exitf("board: %v", err)
	}
	defer func() {
		if err := b.Close(); err != nil {
			glog.Errorf("close: %v", err)
		}
		glog.Flush()
	}()
	if b.Display == nil {
		glog.Exit("touchdraw needs a display")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bounds := b.Display.Bounds()
	m := tft.NewTouch(b.Touch, bounds.Dx(), bounds.Dy())
	m.Calibrate(rawBounds(b.Touch.Resolution(),
		cfg.MustGet("xmin").Int(), cfg.MustGet("xmax").Int(),
		cfg.MustGet("ymin").Int(), cfg.MustGet("ymax").Int()))
	m.SetClamp(cfg.MustGet("clamp").Bool())
	glog.Infof("mapping %+v onto %v", m.Bounds(), bounds)

	img := image.NewRGBA(bounds)
	draw.Draw(img, bounds, image.NewUniform(tft.White), image.Point{}, draw.Src)
	title := cfg.MustGet("title").String()
	if path := cfg.MustGet("font").String(); path != "" {
		face, err := tft.LoadFace(path, cfg.MustGet("fontsize").Float())
		if err != nil {
			glog.Errorf("font: %v", err)
		} else {
			tft.Text(img, 4, 4+face.Metrics().Ascent.Ceil(), title, tft.Black, face)
			title = ""
		}
	}
	if title != "" {
		tft.Text(img, 4, 14, title, tft.Black, nil)
	}
	if err := tft.Show(b.Display, img); err != nil {
		glog.Errorf("display: %v", err)
	}

	brush := float64(cfg.MustGet("brush").Int())
	refresh := cfg.MustGet("refresh").Duration()
	dirty := false
	var lastShow time.Time
	for {
		if err := b.Touch.Service(); err != nil {
			glog.Errorf("touch: %v", err)
		}
		if b.Touch.Touched() {
			p := m.Point()
			glog.V(2).Infof("raw=(%d,%d) pixel=%v", b.Touch.XRaw(), b.Touch.YRaw(), p)
			tft.Dot(img, p, brush, tft.Black)
			dirty = true
		}
		if dirty && time.Since(lastShow) >= refresh {
			if err := tft.Show(b.Display, img); err != nil {
				glog.Errorf("display: %v", err)
			}
			dirty = false
			lastShow = time.Now()
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.Poll):
		}
	}
}
