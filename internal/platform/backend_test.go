package platform

import "testing"

func TestWindowIDString(t *testing.T) {
	if got := WindowID(0x3a00007).String(); got != "0x3a00007" {
		t.Fatalf("String() = %q", got)
	}
}

func TestRectString(t *testing.T) {
	r := Rect{X: -1920, Y: 0, Width: 800, Height: 600}
	if got := r.String(); got != "(-1920,0 800x600)" {
		t.Fatalf("String() = %q", got)
	}
}

func TestDisplayContains(t *testing.T) {
	d := Display{Bounds: Rect{X: 1920, Y: 0, Width: 1280, Height: 1024}}
	tests := []struct {
		x, y int
		want bool
	}{
		{1920, 0, true},
		{3199, 1023, true},
		{3200, 0, false},
		{1919, 10, false},
		{2000, 1024, false},
	}
	for _, tt := range tests {
		if got := d.Contains(tt.x, tt.y); got != tt.want {
			t.Errorf("Contains(%d, %d) = %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}
}

func TestEventKindString(t *testing.T) {
	if WindowOpened.String() != "opened" || WindowClosed.String() != "closed" || EventKind(9).String() != "unknown" {
		t.Fatal("unexpected EventKind strings")
	}
}
