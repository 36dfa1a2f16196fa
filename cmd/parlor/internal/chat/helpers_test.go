package chat

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"
)

func TestLockedWriterKeepsLinesWhole(t *testing.T) {
	var buf bytes.Buffer
	out := &lockedWriter{w: &buf}

	lines := []string{
		strings.Repeat("a", 64),
		strings.Repeat("b", 64),
		strings.Repeat("c", 64),
	}
	var wg sync.WaitGroup
	for _, line := range lines {
		line := line
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				fmt.Fprintf(out, "%s\n", line)
			}
		}()
	}
	wg.Wait()

	got := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(got) != 600 {
		t.Fatalf("expected 600 lines, got %d", len(got))
	}
	for _, g := range got {
		if g != lines[0] && g != lines[1] && g != lines[2] {
			t.Fatalf("interleaved line %q", g)
		}
	}
}
