package pageload

import (
	"context"
	"regexp"
	"sync"
	"sync/atomic"
)

var dashboardPath = regexp.MustCompile(`^/(donor|receiver|driver|admin)/dashboard/?$`)

// IsDashboardPath reports whether path is one of the per-role landing routes.
func IsDashboardPath(path string) bool {
	return dashboardPath.MatchString(path)
}

// ShouldShowLoader is the full-page loader policy: only dashboard routes,
// only until their resources are ready, only until a dashboard has loaded once.
func ShouldShowLoader(path string, resourcesReady, dashboardLoaded bool) bool {
	return IsDashboardPath(path) && !resourcesReady && !dashboardLoaded
}

// ============================================================
// Layout
// ============================================================

// Layout is the route-level wrapper: it owns the provider, mounts one gate
// per route and remembers whether a dashboard has finished loading.
type Layout struct {
	opts     Options
	provider *Provider

	mu      sync.Mutex
	current *Page

	dashboardLoaded atomic.Bool
}

// Page is a mounted route.
type Page struct {
	Path string
	Gate *Gate

	ctx context.Context
}

// Context is bound to the page's own registry; components mounted on the
// page (MapNotifier) take it. Signals sent through it after the page is
// replaced never reach the next page.
func (p *Page) Context() context.Context {
	return p.ctx
}

func NewLayout(opts Options) *Layout {
	return &Layout{
		opts:     opts.withDefaults(),
		provider: NewProvider(""),
	}
}

// Navigate монтирует страницу path. Предыдущий гейт останавливается,
// реестр очищается при смене пути. Повторный переход на текущий путь
// возвращает уже смонтированную страницу.
func (l *Layout) Navigate(ctx context.Context, path string, tree Subtree) *Page {
	l.mu.Lock()
	prev := l.current
	if prev != nil && prev.Path == path {
		l.mu.Unlock()
		return prev
	}

	registry := l.provider.Reset(path)
	page := &Page{
		Path: path,
		ctx:  withPage(ctx, l.provider, registry),
	}
	page.Gate = startGate(ctx, tree, registry, l.opts, func() {
		if IsDashboardPath(path) {
			l.dashboardLoaded.Store(true)
		}
	})
	l.current = page
	l.mu.Unlock()

	if prev != nil {
		prev.Gate.Stop()
	}
	return page
}

// Current returns the mounted page, nil before the first Navigate.
func (l *Layout) Current() *Page {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}

func (l *Layout) DashboardLoaded() bool {
	return l.dashboardLoaded.Load()
}

// ShowLoader applies ShouldShowLoader to the current page.
func (l *Layout) ShowLoader() bool {
	page := l.Current()
	if page == nil {
		return false
	}
	return ShouldShowLoader(page.Path, page.Gate.State().ResourcesReady, l.DashboardLoaded())
}

// Close stops the current page's gate.
func (l *Layout) Close() {
	l.mu.Lock()
	page := l.current
	l.current = nil
	l.mu.Unlock()

	if page != nil {
		page.Gate.Stop()
	}
}
