package rodtree

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"foodloop/internal/pageload"
)

// A 1x1 transparent GIF.
const pixel = "data:image/gif;base64,R0lGODlhAQABAIAAAAAAAP///yH5BAEAAAAALAAAAAABAAEAAAIBRAA7"

func openPage(t *testing.T, html string) (context.Context, *rod.Page) {
	t.Helper()
	bin, ok := launcher.LookPath()
	if !ok {
		t.Skip("no Chrome/Chromium found")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, html)
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	l := launcher.New().Bin(bin).Headless(true)
	u, err := l.Launch()
	require.NoError(t, err)
	t.Cleanup(l.Kill)

	browser := rod.New().ControlURL(u).Context(ctx)
	require.NoError(t, browser.Connect())
	t.Cleanup(func() { browser.Close() })

	page, err := browser.Page(proto.TargetCreateTarget{URL: srv.URL})
	require.NoError(t, err)
	require.NoError(t, page.WaitLoad())
	return ctx, page
}

func TestTree_ImagesAndMap(t *testing.T) {
	ctx, page := openPage(t, `<html><body><main>
		<img src="`+pixel+`">
		<img src="`+pixel+`">
		<div class="leaflet-container"><img class="leaflet-tile-loaded" src="`+pixel+`"></div>
	</main></body></html>`)

	tree, err := New(ctx, page, "main", zaptest.NewLogger(t))
	require.NoError(t, err)

	images := tree.Images()
	require.Len(t, images, 3)
	for _, img := range images {
		assert.True(t, img.Complete())
	}
	assert.True(t, tree.HasMapContainer())

	m := tree.Map()
	require.NotNil(t, m)
	ready := make(chan struct{})
	detach := m.OnReady(func() { close(ready) })
	defer detach()

	select {
	case <-ready:
	case <-time.After(10 * time.Second):
		t.Fatal("map ready not observed")
	}
}

func TestTree_GateCompletes(t *testing.T) {
	ctx, page := openPage(t, `<html><body><img src="`+pixel+`"></body></html>`)

	tree, err := New(ctx, page, "", zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.False(t, tree.HasMapContainer())
	assert.Nil(t, tree.Map())

	g := pageload.StartGate(ctx, tree, pageload.NewRegistry(), pageload.Options{
		MinWait: 50 * time.Millisecond,
		MaxWait: 5 * time.Second,
	})
	require.NoError(t, g.Wait(ctx))
	assert.False(t, g.State().Forced)
}
