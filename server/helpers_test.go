package server

import (
	"sync"
	"testing"
	"time"
)

type fakePeer struct {
	mu     sync.Mutex
	codec  Codec
	frames []Frame
	limit  int // 0 表示不限制
	closed bool
}

func newFakePeer() *fakePeer {
	return &fakePeer{codec: JSONCodec{}}
}

func (p *fakePeer) Send(f Frame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPeerClosed
	}
	if p.limit > 0 && len(p.frames) >= p.limit {
		return ErrSendQueueFull
	}
	cp := append([]byte(nil), f.Data...)
	p.frames = append(p.frames, Frame{MessageType: f.MessageType, Data: cp})
	return nil
}

func (p *fakePeer) Codec() Codec { return p.codec }

func (p *fakePeer) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}

func (p *fakePeer) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

type event struct {
	kind  string
	raw   []byte
	codec Codec
}

func (e event) decode(t *testing.T, v any) {
	t.Helper()
	if err := e.codec.Unmarshal(e.raw, v); err != nil {
		t.Fatalf("decode %s payload: %v", e.kind, err)
	}
}

// drain 解码并清空已收到的帧
func (p *fakePeer) drain(t *testing.T) []event {
	t.Helper()
	p.mu.Lock()
	frames := p.frames
	p.frames = nil
	p.mu.Unlock()

	out := make([]event, 0, len(frames))
	for _, f := range frames {
		kind, raw, err := p.codec.Decode(f.Data)
		if err != nil {
			t.Fatalf("decode frame: %v", err)
		}
		out = append(out, event{kind: kind, raw: raw, codec: p.codec})
	}
	return out
}

func kindsOf(evs []event) []string {
	out := make([]string, 0, len(evs))
	for _, e := range evs {
		out = append(out, e.kind)
	}
	return out
}

func filterKind(evs []event, kind string) []event {
	var out []event
	for _, e := range evs {
		if e.kind == kind {
			out = append(out, e)
		}
	}
	return out
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Log.File = ""
	return cfg
}

func newTestHub(t *testing.T, opts ...HubOption) (*Hub, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	opts = append([]HubOption{WithClock(clock.Now)}, opts...)
	return NewHub(testConfig(), nil, opts...), clock
}

func connect(t *testing.T, h *Hub) (string, *fakePeer) {
	t.Helper()
	p := newFakePeer()
	id, err := h.Connect(p)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	return id, p
}

func join(t *testing.T, h *Hub) (string, *fakePeer) {
	t.Helper()
	id, p := connect(t, h)
	if err := h.Join(id); err != nil {
		t.Fatalf("join %s: %v", id, err)
	}
	return id, p
}
