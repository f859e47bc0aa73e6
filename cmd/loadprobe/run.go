package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"foodloop/internal/common/logging"
	"foodloop/internal/foodloop/models"
	"foodloop/internal/foodloop/roles"
	"foodloop/internal/pageload"
	"foodloop/internal/pageload/rodtree"
)

const mapPollInterval = 50 * time.Millisecond

type runOptions struct {
	BaseURL    string
	Roles      []string
	Visits     int
	MinWait    time.Duration
	MaxWait    time.Duration
	ControlURL string
	Root       string
	Headless   bool
	LogLevel   string
}

func newRunCmd() *cobra.Command {
	opts := runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Visit role dashboards in a headless browser and report loader behavior",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runProbe(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.BaseURL, "base-url", "", "Frontend URL, e.g. http://localhost:5173")
	cmd.Flags().StringSliceVar(&opts.Roles, "roles", []string{"donor", "receiver", "driver", "admin"}, "Dashboards to visit")
	cmd.Flags().IntVar(&opts.Visits, "visits", 2, "Rounds over the role list")
	cmd.Flags().DurationVar(&opts.MinWait, "min-wait", pageload.DefaultMinWait, "Minimum loader time")
	cmd.Flags().DurationVar(&opts.MaxWait, "max-wait", pageload.DefaultMaxWait, "Loader safety timeout")
	cmd.Flags().StringVar(&opts.ControlURL, "control-url", "", "DevTools URL of a running browser (default: launch one)")
	cmd.Flags().StringVar(&opts.Root, "root", "body", "CSS selector of the observed subtree")
	cmd.Flags().BoolVar(&opts.Headless, "headless", true, "Run the launched browser headless")
	cmd.Flags().StringVar(&opts.LogLevel, "log-level", "warn", "Log level")
	_ = cmd.MarkFlagRequired("base-url")
	return cmd
}

// planVisits lists dashboard paths round-robin over roles. Consecutive
// duplicates get a "/" hop between them so every visit is a real navigation.
func planVisits(roleNames []string, visits int) ([]string, error) {
	var dashboards []string
	for _, name := range roleNames {
		cfg, err := roles.For(models.Role(strings.TrimSpace(name)))
		if err != nil {
			return nil, err
		}
		dashboards = append(dashboards, cfg.Dashboard)
	}

	var plan []string
	for i := 0; i < visits; i++ {
		for _, path := range dashboards {
			if n := len(plan); n > 0 && plan[n-1] == path {
				plan = append(plan, "/")
			}
			plan = append(plan, path)
		}
	}
	return plan, nil
}

type visitResult struct {
	Path       string
	LoaderShow bool
	Elapsed    time.Duration
	Forced     bool
	Map        bool
}

func runProbe(ctx context.Context, out io.Writer, opts runOptions) error {
	log, err := logging.New("development", opts.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	plan, err := planVisits(opts.Roles, opts.Visits)
	if err != nil {
		return err
	}

	controlURL := opts.ControlURL
	if controlURL == "" {
		l := launcher.New().Headless(opts.Headless)
		defer l.Kill()
		if controlURL, err = l.Launch(); err != nil {
			return fmt.Errorf("launch browser: %w", err)
		}
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("connect to browser: %w", err)
	}
	defer browser.Close()

	page, err := browser.Page(proto.TargetCreateTarget{URL: opts.BaseURL})
	if err != nil {
		return fmt.Errorf("open %s: %w", opts.BaseURL, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("load %s: %w", opts.BaseURL, err)
	}

	layout := pageload.NewLayout(pageload.Options{MinWait: opts.MinWait, MaxWait: opts.MaxWait, Logger: log})
	defer layout.Close()

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PATH\tLOADER\tELAPSED\tFORCED\tMAP")
	for _, path := range plan {
		res, err := visit(ctx, page, layout, path, opts.Root, log)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%t\t%s\t%t\t%t\n", res.Path, res.LoaderShow, res.Elapsed.Round(time.Millisecond), res.Forced, res.Map)
	}
	fmt.Fprintf(w, "\ndashboard loaded once: %t\n", layout.DashboardLoaded())
	return w.Flush()
}

// visit переходит на path через history API (без перезагрузки документа),
// как это делает клиентский роутер, и ждёт готовности страницы.
func visit(ctx context.Context, page *rod.Page, layout *pageload.Layout, path, root string, log *zap.Logger) (visitResult, error) {
	_, err := page.Context(ctx).Eval(`(p) => {
		history.pushState({}, '', p);
		window.dispatchEvent(new PopStateEvent('popstate'));
	}`, path)
	if err != nil {
		return visitResult{}, fmt.Errorf("navigate %s: %w", path, err)
	}

	tree, err := rodtree.New(ctx, page, root, log)
	if err != nil {
		return visitResult{}, fmt.Errorf("find root %q: %w", root, err)
	}

	start := time.Now()
	pg := layout.Navigate(ctx, path, tree)
	res := visitResult{Path: path, LoaderShow: layout.ShowLoader()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return pg.Gate.Wait(gctx)
	})
	g.Go(func() error {
		notifier, err := attachMap(gctx, pg, tree)
		if err != nil || notifier == nil {
			return err
		}
		res.Map = true
		<-pg.Gate.Done()
		notifier.Unmount()
		return nil
	})
	if err := g.Wait(); err != nil {
		return visitResult{}, err
	}

	res.Elapsed = time.Since(start)
	res.Forced = pg.Gate.State().Forced
	return res, nil
}

// attachMap mounts a MapNotifier once the map container appears. It gives
// up when the gate finishes first.
func attachMap(ctx context.Context, pg *pageload.Page, tree *rodtree.Tree) (*pageload.MapNotifier, error) {
	ticker := time.NewTicker(mapPollInterval)
	defer ticker.Stop()
	for {
		if m := tree.Map(); m != nil {
			return pageload.MountMapNotifier(pg.Context(), m)
		}
		select {
		case <-pg.Gate.Done():
			return nil, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
