package engine

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

// recordingHost wraps sceneHost and records lifecycle calls
type recordingHost struct {
	sceneHost
	instantiated []*Item
	destroyed    []*Item
	failNext     bool
}

func (h *recordingHost) Instantiate(pos Vec2) *Item {
	if h.failNext {
		h.failNext = false
		return nil
	}
	it := h.sceneHost.Instantiate(pos)
	h.instantiated = append(h.instantiated, it)
	return it
}

func (h *recordingHost) Destroy(item *Item) {
	h.destroyed = append(h.destroyed, item)
}

type recordingRenderer struct {
	calls []renderCall
}

type renderCall struct {
	item     *Item
	visible  bool
	dragging bool
	position Vec2
}

func (r *recordingRenderer) Render(item *Item) {
	r.calls = append(r.calls, renderCall{item: item, visible: item.Visible(), dragging: item.IsDragging(), position: item.Position()})
}

// chain builds a linked type chain A1 -> A2 -> ... of the given length
func chain(prefix string, n int) []*ItemType {
	types := make([]*ItemType, n)
	for i := n - 1; i >= 0; i-- {
		types[i] = &ItemType{ID: prefix + string(rune('1'+i)), Level: i + 1, DisplayName: prefix}
		if i < n-1 {
			types[i].Next = types[i+1]
		}
	}
	return types
}

func newTestGrid(t *testing.T, w, h int) (*Grid, *recordingHost, *recordingRenderer, *bytes.Buffer) {
	t.Helper()
	g, err := NewGrid(Vec2{}, 1, w, h)
	if err != nil {
		t.Fatalf("NewGrid: %v", err)
	}
	host := &recordingHost{}
	renderer := &recordingRenderer{}
	var buf bytes.Buffer
	g.SetHost(host)
	g.SetRenderer(renderer)
	g.SetLogger(log.New(&buf, "", 0))
	return g, host, renderer, &buf
}

func mustSpawn(t *testing.T, g *Grid, typ *ItemType, x, y int) *Item {
	t.Helper()
	it := g.SpawnItem(typ, x, y)
	if it == nil {
		t.Fatalf("SpawnItem(%s, %d, %d) returned nil", typ, x, y)
	}
	return it
}

func assertInvariants(t *testing.T, g *Grid) {
	t.Helper()
	if err := g.CheckInvariants(); err != nil {
		t.Fatalf("Grid invariant violated: %v", err)
	}
}

func assertLogged(t *testing.T, buf *bytes.Buffer, tag string) {
	t.Helper()
	if !strings.Contains(buf.String(), tag) {
		t.Errorf("Expected log to contain %q, got %q", tag, buf.String())
	}
}
