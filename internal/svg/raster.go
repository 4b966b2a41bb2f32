package svg

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"github.com/valyala/bytebufferpool"
)

// PNG rasterizes the tree onto a w by h white canvas. Elements the
// rasterizer does not know, such as text, are skipped.
func PNG(n *Node, w, h int) ([]byte, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("rasterize: bad size %dx%d", w, h)
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(n.Bytes()), oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, fmt.Errorf("rasterize: %w", err)
	}
	icon.SetTarget(0, 0, float64(w), float64(h))

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	scanner := rasterx.NewScannerGV(w, h, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1)

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	if err := png.Encode(buf, img); err != nil {
		return nil, fmt.Errorf("rasterize: %w", err)
	}
	return append([]byte(nil), buf.B...), nil
}
