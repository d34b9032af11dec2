package mempool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSizeClass(t *testing.T) {
	tests := []struct {
		name     string
		input    int
		expected int
	}{
		{"small size gets minimum", 1, 1024},
		{"exactly 1024", 1024, 1024},
		{"just over 1024", 1025, 2048},
		{"vga nv21 frame", 640 * 480 * 3 / 2, 460800},
		{"zero size", 0, 1024},
		{"negative size", -1, 1024},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sizeClass(tt.input))
		})
	}
}

func TestGetBytes_LengthAndCapacity(t *testing.T) {
	buf := GetBytes(1500)
	assert.Len(t, buf, 1500)
	assert.Equal(t, 2048, cap(buf))
	PutBytes(buf)
}

func TestPutBytes_NilAndForeignBuffers(t *testing.T) {
	assert.NotPanics(t, func() { PutBytes(nil) })
	assert.NotPanics(t, func() { PutBytes(make([]byte, 10)) })
}

func TestGetBytes_Reuse(t *testing.T) {
	buf := GetBytes(4096)
	buf[0] = 0xAB
	PutBytes(buf)

	again := GetBytes(4000)
	assert.Len(t, again, 4000)
	assert.GreaterOrEqual(t, cap(again), 4096)
	PutBytes(again)
}

func TestBytes_Concurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := range 100 {
				b := GetBytes(n*1000 + j)
				for k := range b {
					b[k] = byte(k)
				}
				PutBytes(b)
			}
		}(i + 1)
	}
	wg.Wait()
}
