package lyrics

import "github.com/go-text/typesetting/font"

// rasterizeGlyphCoverage renders gid's filled outline from f at sizePx into a
// boolean coverage mask using a scanline even-odd fill over the glyph's
// outline segments, flattening quadratic/cubic curves by subdivision. This
// stands in for a dedicated rasterizer library (none is imported by this
// module) — adequate for SDF generation, where the
// downstream distance transform smooths over the flattening's small
// quantization error.
func rasterizeGlyphCoverage(f *font.Face, gid font.GID, sizePx uint32) (coverage []bool, w, h uint32, bearingX, bearingY int, advance float64, ok bool) {
	if f == nil {
		return nil, 0, 0, 0, 0, 0, false
	}

	outline := f.GlyphData(gid)
	seg, isOutline := outline.(font.GlyphOutline)
	if !isOutline || len(seg.Segments) == 0 {
		return nil, 0, 0, 0, 0, 0, false
	}

	upem := float64(f.Upem())
	if upem == 0 {
		upem = 1000
	}
	scale := float64(sizePx) / upem

	minX, minY := 1e18, 1e18
	maxX, maxY := -1e18, -1e18
	var polylines [][][2]float64
	var current [][2]float64
	var cur [2]float64

	flushLine := func(to [2]float64) {
		current = append(current, to)
		cur = to
	}
	trackBounds := func(p [2]float64) {
		if p[0] < minX {
			minX = p[0]
		}
		if p[0] > maxX {
			maxX = p[0]
		}
		if p[1] < minY {
			minY = p[1]
		}
		if p[1] > maxY {
			maxY = p[1]
		}
	}

	toPt := func(x, y float32) [2]float64 {
		p := [2]float64{float64(x) * scale, float64(y) * scale}
		trackBounds(p)
		return p
	}

	for _, s := range seg.Segments {
		switch s.Op {
		case font.SegmentOpMoveTo:
			if len(current) > 1 {
				polylines = append(polylines, current)
			}
			current = nil
			cur = toPt(s.Args[0].X, s.Args[0].Y)
			current = append(current, cur)
		case font.SegmentOpLineTo:
			flushLine(toPt(s.Args[0].X, s.Args[0].Y))
		case font.SegmentOpQuadTo:
			ctrl := toPt(s.Args[0].X, s.Args[0].Y)
			end := toPt(s.Args[1].X, s.Args[1].Y)
			subdivideQuad(cur, ctrl, end, &current)
			cur = end
		case font.SegmentOpCubeTo:
			c1 := toPt(s.Args[0].X, s.Args[0].Y)
			c2 := toPt(s.Args[1].X, s.Args[1].Y)
			end := toPt(s.Args[2].X, s.Args[2].Y)
			subdivideCubic(cur, c1, c2, end, &current)
			cur = end
		}
	}
	if len(current) > 1 {
		polylines = append(polylines, current)
	}

	if len(polylines) == 0 || maxX <= minX || maxY <= minY {
		return nil, 0, 0, 0, 0, 0, false
	}

	width := uint32(maxX-minX) + 1
	height := uint32(maxY-minY) + 1
	coverage = make([]bool, width*height)

	for row := uint32(0); row < height; row++ {
		y := minY + float64(row) + 0.5
		xs := scanlineIntersections(polylines, y)
		for i := 0; i+1 < len(xs); i += 2 {
			startX := xs[i] - minX
			endX := xs[i+1] - minX
			for px := int(startX); px < int(endX)+1 && px < int(width); px++ {
				if px < 0 {
					continue
				}
				coverage[int(row)*int(width)+px] = true
			}
		}
	}

	return coverage, width, height, int(minX), int(maxY), float64(f.HorizontalAdvance(gid)) * scale, true
}

func subdivideQuad(p0, p1, p2 [2]float64, out *[][2]float64) {
	const steps = 8
	for i := 1; i <= steps; i++ {
		t := float64(i) / steps
		mt := 1 - t
		x := mt*mt*p0[0] + 2*mt*t*p1[0] + t*t*p2[0]
		y := mt*mt*p0[1] + 2*mt*t*p1[1] + t*t*p2[1]
		*out = append(*out, [2]float64{x, y})
	}
}

func subdivideCubic(p0, p1, p2, p3 [2]float64, out *[][2]float64) {
	const steps = 10
	for i := 1; i <= steps; i++ {
		t := float64(i) / steps
		mt := 1 - t
		x := mt*mt*mt*p0[0] + 3*mt*mt*t*p1[0] + 3*mt*t*t*p2[0] + t*t*t*p3[0]
		y := mt*mt*mt*p0[1] + 3*mt*mt*t*p1[1] + 3*mt*t*t*p2[1] + t*t*t*p3[1]
		*out = append(*out, [2]float64{x, y})
	}
}

// scanlineIntersections returns sorted X crossings of the polyline set at
// height y, for an even-odd scanline fill.
func scanlineIntersections(polylines [][][2]float64, y float64) []float64 {
	var xs []float64
	for _, poly := range polylines {
		n := len(poly)
		for i := 0; i < n; i++ {
			a := poly[i]
			b := poly[(i+1)%n]
			if (a[1] <= y && b[1] > y) || (b[1] <= y && a[1] > y) {
				t := (y - a[1]) / (b[1] - a[1])
				xs = append(xs, a[0]+t*(b[0]-a[0]))
			}
		}
	}
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j-1] > xs[j]; j-- {
			xs[j-1], xs[j] = xs[j], xs[j-1]
		}
	}
	return xs
}
