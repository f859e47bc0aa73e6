package pageload

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const (
	DefaultMinWait = 800 * time.Millisecond
	DefaultMaxWait = 8 * time.Second

	// MapProbeDelay gives a map widget time to mount its container.
	MapProbeDelay = 150 * time.Millisecond
	// HideGrace separates LoaderHidden from ResourcesReady (overlay fade-out).
	HideGrace = 400 * time.Millisecond
)

// Image is an image element inside the observed subtree.
type Image interface {
	Complete() bool
	// OnLoad registers fn to run once the image has loaded. The returned
	// func detaches fn; it is safe to call after fn has run.
	OnLoad(fn func()) (detach func())
}

// Subtree is the part of the page the gate observes.
type Subtree interface {
	Images() []Image
	HasMapContainer() bool
}

type Options struct {
	MinWait time.Duration
	MaxWait time.Duration
	Clock   clockwork.Clock
	Logger  *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.MinWait <= 0 {
		o.MinWait = DefaultMinWait
	}
	if o.MaxWait <= 0 {
		o.MaxWait = DefaultMaxWait
	}
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// State is a snapshot of the gate's conditions.
type State struct {
	AllImagesLoaded bool
	MinTimeReached  bool
	HasMapContainer bool
	MapReady        bool
	LoaderHidden    bool
	ResourcesReady  bool
	// Forced is set when MaxWait elapsed before the conditions held.
	Forced bool
}

func (s State) satisfied() bool {
	return s.AllImagesLoaded && s.MinTimeReached && (!s.HasMapContainer || s.MapReady)
}

// ============================================================
// Gate
// ============================================================

// Gate tracks readiness of a single page mount. All transitions run on the
// gate's own goroutine; callers only read snapshots and wait on channels.
type Gate struct {
	opts     Options
	tree     Subtree
	registry *Registry
	onReady  func()

	mu    sync.Mutex
	state State

	hidden  chan struct{}
	ready   chan struct{}
	done    chan struct{}
	cancel  context.CancelFunc
	started time.Time
}

// StartGate begins observing tree. The gate stops on its own once
// ResourcesReady is set, or earlier via Stop or ctx cancellation.
func StartGate(ctx context.Context, tree Subtree, registry *Registry, opts Options) *Gate {
	return startGate(ctx, tree, registry, opts, nil)
}

func startGate(ctx context.Context, tree Subtree, registry *Registry, opts Options, onReady func()) *Gate {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(ctx)

	g := &Gate{
		opts:     opts,
		tree:     tree,
		registry: registry,
		onReady:  onReady,
		hidden:   make(chan struct{}),
		ready:    make(chan struct{}),
		done:     make(chan struct{}),
		cancel:   cancel,
		started:  opts.Clock.Now(),
	}

	images := tree.Images()
	loaded := make(chan struct{}, len(images))
	detaches := make([]func(), 0, len(images))
	pending := 0
	for _, img := range images {
		if img.Complete() {
			continue
		}
		pending++
		var once sync.Once
		detaches = append(detaches, img.OnLoad(func() {
			once.Do(func() {
				select {
				case loaded <- struct{}{}:
				default:
				}
			})
		}))
	}
	g.state.AllImagesLoaded = pending == 0

	// Timers are armed before the loop starts so a fake clock sees them
	// as soon as StartGate returns.
	minT := opts.Clock.NewTimer(opts.MinWait)
	maxT := opts.Clock.NewTimer(opts.MaxWait)
	probeT := opts.Clock.NewTimer(MapProbeDelay)

	opts.Logger.Debug("page gate started",
		zap.Int("images", len(images)),
		zap.Int("pending_images", pending),
		zap.Duration("min_wait", opts.MinWait),
		zap.Duration("max_wait", opts.MaxWait),
	)

	go g.run(ctx, loaded, pending, detaches, minT, maxT, probeT)
	return g
}

func (g *Gate) run(ctx context.Context, loaded <-chan struct{}, pending int, detaches []func(), minT, maxT, probeT clockwork.Timer) {
	var graceT clockwork.Timer
	defer func() {
		minT.Stop()
		maxT.Stop()
		probeT.Stop()
		if graceT != nil {
			graceT.Stop()
		}
		for _, detach := range detaches {
			if detach != nil {
				detach()
			}
		}
		close(g.done)
	}()

	var (
		loadedC  = loaded
		minC     = minT.Chan()
		maxC     = maxT.Chan()
		probeC   = probeT.Chan()
		mapC     = g.registry.Wait(MapKey)
		graceC   <-chan time.Time
		imageCnt = 0
	)

	for {
		forced := false
		select {
		case <-ctx.Done():
			return
		case <-loadedC:
			imageCnt++
			if imageCnt >= pending {
				g.update(func(s *State) { s.AllImagesLoaded = true })
				loadedC = nil
			}
		case <-minC:
			g.update(func(s *State) { s.MinTimeReached = true })
			minC = nil
		case <-probeC:
			hasMap := g.tree.HasMapContainer()
			g.update(func(s *State) { s.HasMapContainer = hasMap })
			probeC = nil
		case <-mapC:
			g.update(func(s *State) { s.MapReady = true })
			mapC = nil
		case <-maxC:
			forced = true
			maxC = nil
		case <-graceC:
			g.update(func(s *State) { s.ResourcesReady = true })
			g.opts.Logger.Debug("page resources ready", zap.Duration("elapsed", g.opts.Clock.Since(g.started)))
			if g.onReady != nil {
				g.onReady()
			}
			close(g.ready)
			return
		}

		if graceC != nil {
			continue
		}
		if s := g.State(); forced || s.satisfied() {
			graceT = g.opts.Clock.NewTimer(HideGrace)
			graceC = graceT.Chan()
			g.update(func(s *State) {
				s.LoaderHidden = true
				s.Forced = forced
			})
			g.opts.Logger.Debug("page loader hidden",
				zap.Bool("forced", forced),
				zap.Duration("elapsed", g.opts.Clock.Since(g.started)),
			)
			close(g.hidden)

			loadedC, minC, maxC, probeC, mapC = nil, nil, nil, nil, nil
		}
	}
}

func (g *Gate) update(fn func(*State)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn(&g.state)
}

func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Hidden is closed when LoaderHidden becomes true.
func (g *Gate) Hidden() <-chan struct{} { return g.hidden }

// Ready is closed when ResourcesReady becomes true.
func (g *Gate) Ready() <-chan struct{} { return g.ready }

// Done is closed once the gate goroutine has exited.
func (g *Gate) Done() <-chan struct{} { return g.done }

// Stop отменяет таймеры и снимает обработчики. Безопасно вызывать повторно.
func (g *Gate) Stop() {
	g.cancel()
	<-g.done
}

// Wait blocks until the page is ready, the gate is stopped or ctx ends.
func (g *Gate) Wait(ctx context.Context) error {
	select {
	case <-g.ready:
		return nil
	case <-g.done:
		select {
		case <-g.ready:
			return nil
		default:
			return context.Canceled
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}
