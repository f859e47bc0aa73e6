package pageload_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foodloop/internal/pageload"
)

func TestRegistry_SignalIsIdempotent(t *testing.T) {
	reg := pageload.NewRegistry()
	assert.False(t, reg.IsReady("map"))

	reg.SignalReady("map")
	reg.SignalReady("map")
	reg.SignalReady("map")

	assert.True(t, reg.IsReady("map"))
	assert.False(t, reg.IsReady("chart"))
	assert.Equal(t, []string{"map"}, reg.Keys())
}

func TestRegistry_Wait(t *testing.T) {
	reg := pageload.NewRegistry()

	pending := reg.Wait("map")
	requireOpen(t, pending, "map signal")

	reg.SignalReady("map")
	requireClosed(t, pending, "map signal")
	requireClosed(t, reg.Wait("map"), "map signal after the fact")
}

func TestProvider_ResetOnPathChange(t *testing.T) {
	p := pageload.NewProvider("/donor/dashboard")
	first := p.Registry()
	first.SignalReady("map")

	assert.Same(t, first, p.Reset("/donor/dashboard"), "same path keeps the registry")

	fresh := p.Reset("/donor/donations")
	assert.NotSame(t, first, fresh)
	assert.Empty(t, fresh.Keys())
	assert.False(t, fresh.IsReady("map"))
	assert.Equal(t, "/donor/donations", p.Path())

	back := p.Reset("/donor/dashboard")
	assert.False(t, back.IsReady("map"), "signals never survive navigation")
}

func TestContext_OutsideProviderFails(t *testing.T) {
	ctx := context.Background()

	_, err := pageload.FromContext(ctx)
	require.ErrorIs(t, err, pageload.ErrNoProvider)

	require.ErrorIs(t, pageload.SignalReady(ctx, "map"), pageload.ErrNoProvider)

	_, err = pageload.IsReady(ctx, "map")
	require.ErrorIs(t, err, pageload.ErrNoProvider)

	assert.PanicsWithError(t, pageload.ErrNoProvider.Error(), func() {
		pageload.MustFromContext(ctx)
	})
}

func TestContext_InsideProvider(t *testing.T) {
	p := pageload.NewProvider("/admin/dashboard")
	ctx := pageload.WithProvider(context.Background(), p)

	require.NoError(t, pageload.SignalReady(ctx, "map"))

	ok, err := pageload.IsReady(ctx, "map")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Same(t, p, pageload.MustFromContext(ctx))
}
