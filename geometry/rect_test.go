package geometry

import "testing"

func TestRectContains(t *testing.T) {
	outer := R(0, 0, 10, 10)
	tests := []struct {
		name string
		r    Rect
		want bool
	}{
		{"self", outer, true},
		{"inner", R(2, 2, 3, 3), true},
		{"touching edge", R(5, 5, 5, 5), true},
		{"past right", R(5, 0, 6, 1), false},
		{"negative origin", R(-1, 0, 2, 2), false},
		{"empty inside", R(3, 3, 0, 0), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := outer.Contains(tt.r); got != tt.want {
				t.Errorf("%v.Contains(%v) = %v, want %v", outer, tt.r, got, tt.want)
			}
		})
	}
	if !(Rect{}).Contains(Rect{}) {
		t.Error("empty rect should contain itself")
	}
}

func TestRectIntersect(t *testing.T) {
	a := R(0, 0, 10, 10)
	b := R(5, 5, 10, 10)
	if !a.Intersects(b) {
		t.Fatal("expected overlap")
	}
	if got, want := a.Intersect(b), R(5, 5, 5, 5); got != want {
		t.Errorf("Intersect = %v, want %v", got, want)
	}
	if a.Intersects(R(10, 0, 5, 5)) {
		t.Error("adjacent rects must not intersect")
	}
	if got := a.Intersect(R(20, 20, 1, 1)); !got.IsEmpty() {
		t.Errorf("disjoint Intersect = %v, want empty", got)
	}
	if got, want := a.Union(b), R(0, 0, 15, 15); got != want {
		t.Errorf("Union = %v, want %v", got, want)
	}
}

func TestRectFEnclosing(t *testing.T) {
	r := RectF{X: 0.5, Y: 1.2, Width: 2, Height: 2}
	if got, want := r.ToEnclosingRect(), R(0, 1, 3, 3); got != want {
		t.Errorf("ToEnclosingRect = %v, want %v", got, want)
	}
}

func TestBoundingRectF(t *testing.T) {
	got := BoundingRectF(PointF{X: 1, Y: 0.25}, PointF{X: 0, Y: 0.75})
	want := RectF{X: 0, Y: 0.25, Width: 1, Height: 0.5}
	if got != want {
		t.Errorf("BoundingRectF = %v, want %v", got, want)
	}
}
