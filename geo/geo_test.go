package geo

import "testing"

func TestNormalize(t *testing.T) {
	b := BBox{X0: 10, Y0: 10, X1: 0, Y1: 0}.Normalize()
	if b.X0 != 0 || b.X1 != 10 || b.Y0 != 0 || b.Y1 != 10 {
		t.Fatalf("unexpected normalize result: %+v", b)
	}
}

func TestClamp(t *testing.T) {
	b := BBox{X0: -5, Y0: -5, X1: 200, Y1: 200}.Clamp(100, 50)
	if b.X0 != 0 || b.Y0 != 0 || b.X1 != 100 || b.Y1 != 50 {
		t.Fatalf("unexpected clamp result: %+v", b)
	}
}

func TestUnion(t *testing.T) {
	a := BBox{X0: 0, Y0: 0, X1: 10, Y1: 10}
	b := BBox{X0: 5, Y0: 5, X1: 20, Y1: 8}
	u := Union(a, b)
	if u.X0 != 0 || u.Y0 != 0 || u.X1 != 20 || u.Y1 != 10 {
		t.Fatalf("unexpected union: %+v", u)
	}
}

func TestUnionAllIgnoresEmpty(t *testing.T) {
	boxes := []BBox{{}, {X0: 1, Y0: 1, X1: 5, Y1: 5}}
	u := UnionAll(boxes)
	if u.X0 != 1 || u.X1 != 5 {
		t.Fatalf("unexpected union-all: %+v", u)
	}
}

func TestIoU(t *testing.T) {
	a := BBox{X0: 0, Y0: 0, X1: 10, Y1: 10}
	b := BBox{X0: 5, Y0: 0, X1: 15, Y1: 10}
	if got := IoU(a, b); got < 0.33 || got > 0.34 {
		t.Fatalf("expected ~1/3 IoU, got %f", got)
	}
	if IoU(a, BBox{X0: 100, Y0: 100, X1: 110, Y1: 110}) != 0 {
		t.Fatalf("expected zero IoU for disjoint boxes")
	}
}

func TestVerticalOverlapRatio(t *testing.T) {
	a := BBox{X0: 0, Y0: 0, X1: 10, Y1: 10}
	b := BBox{X0: 0, Y0: 5, X1: 10, Y1: 15}
	if got := VerticalOverlapRatio(a, b); got != 0.5 {
		t.Fatalf("expected 0.5 overlap ratio, got %f", got)
	}
}

func TestMinHorizontalGap(t *testing.T) {
	a := BBox{X0: 0, Y0: 0, X1: 10, Y1: 10}
	b := BBox{X0: 20, Y0: 0, X1: 30, Y1: 10}
	if got := MinHorizontalGap(a, b); got != 10 {
		t.Fatalf("expected gap 10, got %f", got)
	}
	if got := MinHorizontalGap(b, a); got != 10 {
		t.Fatalf("expected symmetric gap 10, got %f", got)
	}
}

func TestPadInset(t *testing.T) {
	b := BBox{X0: 10, Y0: 10, X1: 20, Y1: 20}
	p := b.Pad(5, 2)
	if p.X0 != 5 || p.X1 != 25 || p.Y0 != 8 || p.Y1 != 22 {
		t.Fatalf("unexpected pad: %+v", p)
	}
	i := b.Inset(100, 100)
	if i.X0 != i.X1 || i.Y0 != i.Y1 {
		t.Fatalf("expected degenerate inset, got %+v", i)
	}
}
