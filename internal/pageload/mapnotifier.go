package pageload

import (
	"context"
	"sync"
)

// MapWidget is the handle of a mounted interactive map.
type MapWidget interface {
	// OnReady registers fn for the map's ready event and returns a detach func.
	OnReady(fn func()) (detach func())
}

// MapNotifier signals MapKey on the page's registry when the map is ready.
type MapNotifier struct {
	registry *Registry
	once     sync.Once
	detach   func()
}

// MountMapNotifier подписывается на готовность карты. Без карты или вне
// Provider возвращает ошибку сразу при монтировании.
func MountMapNotifier(ctx context.Context, widget MapWidget) (*MapNotifier, error) {
	if widget == nil {
		return nil, ErrNoMapWidget
	}
	registry, err := RegistryFromContext(ctx)
	if err != nil {
		return nil, err
	}

	n := &MapNotifier{registry: registry}
	n.detach = widget.OnReady(n.notify)
	return n, nil
}

func (n *MapNotifier) notify() {
	n.once.Do(func() {
		n.registry.SignalReady(MapKey)
	})
}

func (n *MapNotifier) Unmount() {
	if n.detach != nil {
		n.detach()
	}
}
