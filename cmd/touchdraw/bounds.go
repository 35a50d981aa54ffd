package main

import "github.com/dailypush/tfttouch/ads7846"

// rawBounds returns xmin, xmax, ymin, ymax for the linear mapper. An axis
// left unset (min == max) falls back to 5%..95% of the conversion range of
// r, which keeps the panel's dead edges off screen.
func rawBounds(r ads7846.Resolution, xMin, xMax, yMin, yMax int) (int, int, int, int) {
	lo, hi := edges(r)
	if xMin == xMax {
		xMin, xMax = lo, hi
	}
	if yMin == yMax {
		yMin, yMax = lo, hi
	}
	return xMin, xMax, yMin, yMax
}

func edges(r ads7846.Resolution) (lo, hi int) {
	m := int(r.Max())
	return m * 5 / 100, m * 95 / 100
}
