package cobj

import "sync"

type renderer struct {
	buf []byte
}

var rendererPool = &sync.Pool{
	New: func() any {
		return &renderer{buf: make([]byte, 0, 4096)}
	},
}

func getRenderer() *renderer {
	return rendererPool.Get().(*renderer)
}

func releaseRenderer(r *renderer) {
	if cap(r.buf) > 1<<20 {
		return
	}
	r.buf = r.buf[:0]
	rendererPool.Put(r)
}

var hashBytesPool = &sync.Pool{
	New: func() any {
		return make([]byte, 0, 64)
	},
}
