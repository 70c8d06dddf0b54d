package filament

import "sync"

// Size classes for pooled byte buffers. A request is served from the
// smallest class that holds it.
const (
	BufSmall  = 4 * 1024
	BufMedium = 16 * 1024
	BufLarge  = 64 * 1024
)

// BufferPool hands out byte slices in three size classes. Buffers above the
// largest class are allocated directly and never pooled.
type BufferPool struct {
	small  sync.Pool
	medium sync.Pool
	large  sync.Pool
}

// DefaultBufferPool is shared by the codec packages.
var DefaultBufferPool = NewBufferPool()

// NewBufferPool creates an empty pool; buffers are created lazily.
func NewBufferPool() *BufferPool {
	p := &BufferPool{}
	p.small.New = func() any { b := make([]byte, BufSmall); return &b }
	p.medium.New = func() any { b := make([]byte, BufMedium); return &b }
	p.large.New = func() any { b := make([]byte, BufLarge); return &b }
	return p
}

// Get returns a buffer with at least n capacity. The length is n.
func (p *BufferPool) Get(n int) *[]byte {
	var bp *[]byte
	switch {
	case n <= BufSmall:
		bp = p.small.Get().(*[]byte)
	case n <= BufMedium:
		bp = p.medium.Get().(*[]byte)
	case n <= BufLarge:
		bp = p.large.Get().(*[]byte)
	default:
		b := make([]byte, n)
		return &b
	}
	*bp = (*bp)[:n]
	return bp
}

// Put returns a buffer to its size class. Oversized buffers are dropped.
func (p *BufferPool) Put(bp *[]byte) {
	if bp == nil {
		return
	}
	b := *bp
	switch cap(b) {
	case BufSmall:
		*bp = b[:cap(b)]
		p.small.Put(bp)
	case BufMedium:
		*bp = b[:cap(b)]
		p.medium.Put(bp)
	case BufLarge:
		*bp = b[:cap(b)]
		p.large.Put(bp)
	}
}
