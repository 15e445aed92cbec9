package board

import "sync"

// Panner tracks a secondary-button viewport pan over the timeline. Panning
// only moves the viewport offset; it never touches records, so a pan and a
// drag can never be confused by the commit path.
type Panner struct {
	mu      sync.Mutex
	active  bool
	originX float64
	originY float64
	baseX   float64
	baseY   float64
	offsetX float64
	offsetY float64
}

func NewPanner() *Panner {
	return &Panner{}
}

// Begin starts a pan at the given pointer position.
func (p *Panner) Begin(x, y float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active = true
	p.originX, p.originY = x, y
	p.baseX, p.baseY = p.offsetX, p.offsetY
}

// Move updates the offset by the pointer delta since Begin. Moves without
// an active pan are ignored.
func (p *Panner) Move(x, y float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.active {
		return
	}
	p.offsetX = p.baseX + (x - p.originX)
	p.offsetY = p.baseY + (y - p.originY)
}

// End finishes the pan, keeping the accumulated offset.
func (p *Panner) End() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active = false
}

// Active reports whether a pan is in flight.
func (p *Panner) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// Offset returns the current viewport offset.
func (p *Panner) Offset() (x, y float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.offsetX, p.offsetY
}

// Reset zeroes the offset and abandons any active pan.
func (p *Panner) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active = false
	p.originX, p.originY = 0, 0
	p.baseX, p.baseY = 0, 0
	p.offsetX, p.offsetY = 0, 0
}
