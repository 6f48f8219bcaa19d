package tray

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
)

type iconColor = color.NRGBA

var (
	idleColor      = iconColor{R: 0xe3, G: 0xe3, B: 0xe3, A: 0xff}
	recordingColor = iconColor{R: 0xf1, G: 0x3a, B: 0x39, A: 0xff}
	pausedColor    = iconColor{R: 0xf1, G: 0x9e, B: 0x39, A: 0xff}
)

const iconSize = 22

// renderDot draws a filled circle on a transparent square
func renderDot(c iconColor) ([]byte, error) {
	img := image.NewNRGBA(image.Rect(0, 0, iconSize, iconSize))

	center := float64(iconSize-1) / 2
	radius := float64(iconSize) / 3
	for y := 0; y < iconSize; y++ {
		for x := 0; x < iconSize; x++ {
			dx, dy := float64(x)-center, float64(y)-center
			if dx*dx+dy*dy <= radius*radius {
				img.SetNRGBA(x, y, c)
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
