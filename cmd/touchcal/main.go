// touchcal captures a three point calibration for an ADS7846 touch panel,
// stores it, and then reports calibrated touches until interrupted.
package main

import (
	"context"
	"errors"
	"image"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang/glog"
	"periph.io/x/conn/v3/display"

	"github.com/dailypush/tfttouch/calib"
	"github.com/dailypush/tfttouch/internal/board"
	"github.com/dailypush/tfttouch/tft"
)

func main() {
	cfg := board.LoadConfig("touchcal", map[string]interface{}{
		"recalibrate": false,
		"hold":        5,
		"jitter":      8,
		"font":        "",
		"fontsize":    14,
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	view := tft.NewTargetView(image.Pt(b.Screen.Width, b.Screen.Height),
		calib.DefaultTargets(b.Screen.Width, b.Screen.Height))
	if path := cfg.MustGet("font").String(); path != "" {
		face, err := tft.LoadFace(path, cfg.MustGet("fontsize").Float())
		if err != nil {
			glog.Errorf("font: %v", err)
		} else {
			view.Face = face
		}
	}

	cal := calib.New()
	recal := cfg.MustGet("recalibrate").Bool()
	if !recal {
		err := cal.ReadCalibration(b.Storage, c.CalAddr)
		switch {
		case err == nil:
			glog.Infof("calibration loaded: %+v", cal.Matrix())
		case errors.Is(err, calib.ErrNoCalibration):
			glog.Info("no stored calibration")
			recal = true
		default:
			glog.Errorf("read calibration: %v", err)
			recal = true
		}
	}
	if recal {
		cp := newCapture(view.Targets, cfg.MustGet("hold").Int(), cfg.MustGet("jitter").Int())
		if err := calibrate(ctx, b, cal, cp, view, c.Poll); err != nil {
			glog.Errorf("calibrate: %v", err)
			return
		}
		if err := cal.WriteCalibration(b.Storage, c.CalAddr); err != nil {
			glog.Errorf("write calibration: %v", err)
		}
	}
	report(ctx, b, cal, c.Poll)
}

// calibrate runs the capture until a non-degenerate set of points has been
// taken. Collinear captures start over.
func calibrate(ctx context.Context, b *board.Board, cal *calib.Calibrator, cp *capture, view *tft.TargetView, poll time.Duration) error {
	redraw := true
	commits := b.Touch.Commits()
	for {
		if redraw {
			view.Done = cp.step
			view.Label = cp.label()
			show(b.Display, view.Render())
			redraw = false
		}
		if err := b.Touch.Service(); err != nil {
			glog.Errorf("touch: %v", err)
		}
		raw := calib.Point{X: int(b.Touch.XRaw()), Y: int(b.Touch.YRaw())}
		fresh := b.Touch.Commits() != commits
		commits = b.Touch.Commits()
		if cp.feed(b.Touch.Touched(), fresh, raw) {
			glog.Infof("captured target %d raw=%v", cp.step, raw)
			redraw = true
		}
		if cp.done() {
			err := cal.SetCalibration(cp.targets, cp.raw)
			if err == nil {
				glog.Infof("calibrated: %+v", cal.Matrix())
				return nil
			}
			if !errors.Is(err, calib.ErrCollinear) {
				return err
			}
			glog.Errorf("calibration rejected: %v, retrying", err)
			cp.restart()
			redraw = true
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(poll):
		}
	}
}

// report logs every touch and marks it on the display.
func report(ctx context.Context, b *board.Board, cal *calib.Calibrator, poll time.Duration) {
	var img *image.RGBA
	if b.Display != nil {
		img = image.NewRGBA(b.Display.Bounds())
		show(b.Display, blank(img))
	}
	for {
		if err := b.Touch.Service(); err != nil {
			glog.Errorf("touch: %v", err)
		}
		if b.Touch.Touched() {
			raw := calib.Point{X: int(b.Touch.XRaw()), Y: int(b.Touch.YRaw())}
			sp, err := cal.ScreenPoint(raw, b.Screen)
			if err != nil {
				glog.Errorf("transform: %v", err)
			} else {
				glog.V(1).Infof("raw=%v screen=%v pressure=%d", raw, sp, b.Touch.Pressure())
			}
			if p, err := cal.Transform(raw); err == nil && img != nil {
				tft.Dot(img, p, 3, tft.Black)
				show(b.Display, img)
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(poll):
		}
	}
}

func blank(img *image.RGBA) *image.RGBA {
	for i := range img.Pix {
		img.Pix[i] = 0xFF
	}
	return img
}

func show(d display.Drawer, img image.Image) {
	if d == nil {
		return
	}
	if err := tft.Show(d, img); err != nil {
		glog.Errorf("display: %v", err)
	}
}
