package controller

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// triangle indexes three blend-space samples and caches its circumcircle center.
type triangle struct {
	A, B, C int
	center  mgl32.Vec2
}

type edge struct {
	a, b  int
	valid bool
}

func (e edge) same(o edge) bool {
	return (e.a == o.a && e.b == o.b) || (e.a == o.b && e.b == o.a)
}

func circumcenter(a, b, c mgl32.Vec2) mgl32.Vec2 {
	dab := b.Sub(a)
	dac := c.Sub(a)
	v := dac.Mul(dab.Dot(dab)).Sub(dab.Mul(dac.Dot(dac)))
	ortho := mgl32.Vec2{v[1], -v[0]}
	return ortho.Mul(1 / ((dab[0]*dac[1] - dab[1]*dac[0]) * 2)).Add(a)
}

// triangulate builds a Delaunay triangulation of points by incremental insertion (Bowyer-Watson).
// Fewer than three points, or points on one line, yield no triangles.
func triangulate(points []mgl32.Vec2) []triangle {
	if len(points) < 3 {
		return nil
	}
	lo := mgl32.Vec2{math.MaxFloat32, math.MaxFloat32}
	hi := mgl32.Vec2{-math.MaxFloat32, -math.MaxFloat32}
	for _, p := range points {
		lo = mgl32.Vec2{min(lo[0], p[0]), min(lo[1], p[1])}
		hi = mgl32.Vec2{max(hi[0], p[0]), max(hi[1], p[1])}
	}

	n := len(points)
	d := hi.Sub(lo)
	dmax := max(d[0], d[1])
	mid := hi.Add(lo).Mul(0.5)
	verts := append(append([]mgl32.Vec2(nil), points...),
		mgl32.Vec2{mid[0] - 20*dmax, mid[1] - dmax},
		mgl32.Vec2{mid[0], mid[1] + 20*dmax},
		mgl32.Vec2{mid[0] + 20*dmax, mid[1] - dmax},
	)

	var tris []triangle
	push := func(a, b, c int) {
		tris = append(tris, triangle{A: a, B: b, C: c, center: circumcenter(verts[a], verts[b], verts[c])})
	}
	last := len(verts) - 1
	push(last, last-1, 0)
	push(last-1, last-2, 0)
	push(last-2, last, 0)

	var edges []edge
	for ch := 1; ch < n; ch++ {
		p := verts[ch]
		edges = edges[:0]
		for ti := len(tris) - 1; ti >= 0; ti-- {
			t := tris[ti]
			r := verts[t.A].Sub(t.center)
			q := p.Sub(t.center)
			if q.Dot(q) > r.Dot(r) {
				continue
			}
			edges = append(edges, edge{t.A, t.B, true}, edge{t.B, t.C, true}, edge{t.C, t.A, true})
			tris[ti] = tris[len(tris)-1]
			tris = tris[:len(tris)-1]
		}
		for i := len(edges) - 1; i > 0; i-- {
			for j := i - 1; j >= 0; j-- {
				if edges[i].same(edges[j]) {
					edges[i].valid = false
					edges[j].valid = false
				}
			}
		}
		for _, e := range edges {
			if e.valid {
				push(e.a, e.b, ch)
			}
		}
	}

	out := tris[:0]
	for _, t := range tris {
		if t.A < n && t.B < n && t.C < n && area2(verts[t.A], verts[t.B], verts[t.C]) != 0 {
			out = append(out, t)
		}
	}
	return out
}

func area2(a, b, c mgl32.Vec2) float32 {
	ab := b.Sub(a)
	ac := c.Sub(a)
	return ab[0]*ac[1] - ab[1]*ac[0]
}

// barycentric returns the (u, v) coordinates of p relative to triangle abc, where
// p = a + u*(b-a) + v*(c-a), and whether p lies inside the triangle.
func barycentric(p, a, b, c mgl32.Vec2) (float32, float32, bool) {
	ab := b.Sub(a)
	ac := c.Sub(a)
	ap := p.Sub(a)
	d00 := ab.Dot(ab)
	d01 := ab.Dot(ac)
	d11 := ac.Dot(ac)
	d20 := ap.Dot(ab)
	d21 := ap.Dot(ac)
	denom := d00*d11 - d01*d01
	if denom == 0 {
		return 0, 0, false
	}
	u := (d11*d20 - d01*d21) / denom
	v := (d00*d21 - d01*d20) / denom
	return u, v, u >= 0 && v >= 0 && u+v <= 1
}
