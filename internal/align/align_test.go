package align

import "testing"

func TestUpRoundsToMultiple(t *testing.T) {
	cases := []struct{ n, m, want int }{
		{0, 8, 0},
		{1, 8, 8},
		{8, 8, 8},
		{9, 8, 16},
		{64, 8, 64},
		{45, 8, 48},
	}
	for _, c := range cases {
		if got := Up(c.n, c.m); got != c.want {
			t.Errorf("Up(%d, %d) = %d, want %d", c.n, c.m, got, c.want)
		}
	}
}

func TestUpPanicsOnNegative(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on negative size")
		}
	}()
	Up(-1, 8)
}

func TestChunkNeverShrinksBelowWordSize(t *testing.T) {
	if got := Chunk(1); got != WordSize {
		t.Errorf("Chunk(1) = %d, want %d", got, WordSize)
	}
	if got := Chunk(WordSize + 1); got != 2*WordSize {
		t.Errorf("Chunk(WordSize+1) = %d, want %d", got, 2*WordSize)
	}
}
