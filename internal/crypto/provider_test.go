package crypto

import (
	"bytes"
	"sync"
	"testing"
)

func TestReaderProvider_NilFallsBack(t *testing.T) {
	if _, ok := ReaderProvider(nil).(systemProvider); !ok {
		t.Error("ReaderProvider(nil) should return the system provider")
	}
}

func TestReaderProvider_ConcurrentUse(t *testing.T) {
	src := &countingReader{}
	p := ReaderProvider(src)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := randomBytes(p, 8); err != nil {
				t.Errorf("randomBytes() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if src.calls != 16 {
		t.Errorf("reader calls = %d, want 16", src.calls)
	}
}

func TestRandomBytes_ShortSource(t *testing.T) {
	p := ReaderProvider(bytes.NewReader([]byte{1, 2, 3}))
	if b, err := randomBytes(p, 8); err == nil {
		t.Errorf("expected error, got %v", b)
	}
}

func TestZeroBytes(t *testing.T) {
	b := []byte{1, 2, 3}
	zeroBytes(b)
	if !bytes.Equal(b, []byte{0, 0, 0}) {
		t.Errorf("zeroBytes() left %v", b)
	}
}
