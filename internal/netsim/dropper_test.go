package netsim

import "testing"

func TestZeroRateNeverDrops(t *testing.T) {
	d := NewDropper(0, 42)
	for i := 0; i < 10000; i++ {
		if d.Drop() {
			t.Fatalf("dropped with rate 0")
		}
	}
}

func TestFullRateAlwaysDrops(t *testing.T) {
	d := NewDropper(1.0, 42)
	for i := 0; i < 10000; i++ {
		if !d.Drop() {
			t.Fatalf("kept with rate 1")
		}
	}
}

func TestSeededSequenceIsDeterministic(t *testing.T) {
	a := NewDropper(0.5, 99)
	b := NewDropper(0.5, 99)
	for i := 0; i < 1000; i++ {
		if a.Drop() != b.Drop() {
			t.Fatalf("same seed diverged at draw %d", i)
		}
	}
}

func TestHalfRateDropsRoughlyHalf(t *testing.T) {
	d := NewDropper(0.5, 7)
	drops := 0
	const n = 10000
	for i := 0; i < n; i++ {
		if d.Drop() {
			drops++
		}
	}
	if drops < n*4/10 || drops > n*6/10 {
		t.Fatalf("drop count %d out of expected band for rate 0.5", drops)
	}
}
