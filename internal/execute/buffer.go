package execute

import (
	"crypto/rand"
	"sync"
)

// chunk buffers are pooled; simulated overwrites reuse the same buffer for
// the whole extent.
var bufferPool = sync.Pool{
	New: func() interface{} {
		return make([]byte, 1024*1024)
	},
}

func getBuffer(size int) []byte {
	buf := bufferPool.Get().([]byte)
	if cap(buf) < size {
		return make([]byte, size)
	}
	return buf[:size]
}

func putBuffer(buf []byte) {
	if cap(buf) == 0 {
		return
	}
	bufferPool.Put(buf[:cap(buf)])
}

// fillPattern fills buf with a fixed byte pattern.
func fillPattern(buf []byte, pattern byte) {
	for i := range buf {
		buf[i] = pattern
	}
}

// fillRandom fills buf from the system CSPRNG.
func fillRandom(buf []byte) error {
	_, err := rand.Read(buf)
	return err
}
