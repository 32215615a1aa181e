package ffmpegbin

import (
	"strings"
	"sync"
	"testing"
)

func TestTailBuffer(t *testing.T) {
	b := NewTailBuffer(5)
	b.Write([]byte("abc"))
	b.Write([]byte("defgh"))

	if got := b.String(); got != "defgh" {
		t.Errorf("expected last 5 bytes, got %q", got)
	}
}

func TestTailBuffer_ConcurrentWriteAndRead(t *testing.T) {
	b := NewTailBuffer(64)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			b.Write([]byte("x"))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			if len(b.String()) > 64 {
				t.Error("tail exceeded its bound")
				return
			}
		}
	}()
	wg.Wait()

	if got := b.String(); got != strings.Repeat("x", 64) {
		t.Errorf("expected 64 bytes of tail, got %d", len(got))
	}
}
