package mempool

import (
	"sync"
)

// A sized pool for []byte buffers used to copy frames on the streaming hot path.

var bytePools sync.Map // key: size class (int), value: *sync.Pool

// sizeClass rounds n up to the next multiple of 1024 to reduce churn.
func sizeClass(n int) int {
	if n <= 1024 {
		return 1024
	}
	const step = 1024
	r := (n + step - 1) / step
	return r * step
}

func poolFor(cls int) *sync.Pool {
	pAny, _ := bytePools.LoadOrStore(cls, &sync.Pool{New: func() any {
		b := make([]byte, cls)
		return &b
	}})
	p, _ := pAny.(*sync.Pool)
	return p
}

// GetBytes retrieves a []byte buffer of length n from the pool.
// Contents are not zeroed. Return it with PutBytes when done.
func GetBytes(n int) []byte {
	cls := sizeClass(n)
	p := poolFor(cls)
	if p == nil {
		return make([]byte, n, cls)
	}
	bp, ok := p.Get().(*[]byte)
	if !ok || cap(*bp) < cls {
		return make([]byte, n, cls)
	}
	return (*bp)[:n]
}

// PutBytes returns a buffer to the pool. It is safe to pass a nil slice.
// Buffers whose capacity is not a size class are dropped.
func PutBytes(buf []byte) {
	if buf == nil {
		return
	}
	c := cap(buf)
	if c != sizeClass(c) {
		return
	}
	p := poolFor(c)
	if p == nil {
		return
	}
	buf = buf[:c]
	p.Put(&buf)
}
