// Package rodtree adapts a live browser page (go-rod) to the pageload
// Subtree, Image and MapWidget interfaces.
package rodtree

import (
	"context"
	"sync"

	"github.com/go-rod/rod"
	"go.uber.org/zap"

	"foodloop/internal/pageload"
)

const (
	imageSelector     = "img"
	mapSelector       = ".leaflet-container"
	mapReadySelector  = ".leaflet-tile-loaded"
	defaultRootSelect = "body"
)

// ============================================================
// Subtree
// ============================================================

// Tree is the subtree under root, observed through the DevTools protocol.
type Tree struct {
	ctx  context.Context
	root *rod.Element
	log  *zap.Logger
}

// New находит корневой элемент страницы. Пустой selector означает body.
func New(ctx context.Context, page *rod.Page, selector string, log *zap.Logger) (*Tree, error) {
	if selector == "" {
		selector = defaultRootSelect
	}
	if log == nil {
		log = zap.NewNop()
	}
	root, err := page.Context(ctx).Element(selector)
	if err != nil {
		return nil, err
	}
	return &Tree{ctx: ctx, root: root, log: log}, nil
}

func (t *Tree) Images() []pageload.Image {
	els, err := t.root.Context(t.ctx).Elements(imageSelector)
	if err != nil {
		t.log.Warn("list images", zap.Error(err))
		return nil
	}
	out := make([]pageload.Image, 0, len(els))
	for _, el := range els {
		out = append(out, &Image{ctx: t.ctx, el: el, log: t.log})
	}
	return out
}

func (t *Tree) HasMapContainer() bool {
	has, _, err := t.root.Context(t.ctx).Has(mapSelector)
	if err != nil {
		t.log.Warn("probe map container", zap.Error(err))
		return false
	}
	return has
}

// Map returns the map widget under root, or nil when there is none.
func (t *Tree) Map() *Map {
	has, el, err := t.root.Context(t.ctx).Has(mapSelector)
	if err != nil || !has {
		return nil
	}
	return &Map{ctx: t.ctx, el: el, log: t.log}
}

// ============================================================
// Image
// ============================================================

type Image struct {
	ctx context.Context
	el  *rod.Element
	log *zap.Logger
}

func (i *Image) Complete() bool {
	res, err := i.el.Context(i.ctx).Eval(`() => this.complete && this.naturalWidth > 0`)
	if err != nil {
		return false
	}
	return res.Value.Bool()
}

// OnLoad ждёт события load в отдельной горутине.
func (i *Image) OnLoad(fn func()) func() {
	return watch(i.ctx, func(ctx context.Context) error {
		_, err := i.el.Context(ctx).Evaluate(rod.Eval(`() => new Promise(resolve => {
			if (this.complete && this.naturalWidth > 0) return resolve(true);
			this.addEventListener('load', () => resolve(true), { once: true });
		})`).ByPromise())
		return err
	}, fn, i.log)
}

// ============================================================
// Map
// ============================================================

// Map is a Leaflet container; it is ready once the first tile has loaded.
type Map struct {
	ctx context.Context
	el  *rod.Element
	log *zap.Logger
}

func (m *Map) OnReady(fn func()) func() {
	return watch(m.ctx, func(ctx context.Context) error {
		_, err := m.el.Context(ctx).Element(mapReadySelector)
		return err
	}, fn, m.log)
}

// watch runs wait in the background and calls fn when it succeeds. The
// returned detach cancels the wait; fn is never called after detach returns.
func watch(parent context.Context, wait func(ctx context.Context) error, fn func(), log *zap.Logger) func() {
	ctx, cancel := context.WithCancel(parent)
	var (
		mu       sync.Mutex
		detached bool
		done     = make(chan struct{})
	)

	go func() {
		defer close(done)
		if err := wait(ctx); err != nil {
			if ctx.Err() == nil {
				log.Debug("browser wait failed", zap.Error(err))
			}
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if !detached {
			fn()
		}
	}()

	return func() {
		mu.Lock()
		detached = true
		mu.Unlock()
		cancel()
		<-done
	}
}

var (
	_ pageload.Subtree   = (*Tree)(nil)
	_ pageload.Image     = (*Image)(nil)
	_ pageload.MapWidget = (*Map)(nil)
)
