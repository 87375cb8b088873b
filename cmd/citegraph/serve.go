package main

import (
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ritzau/citegraph/pkg/dataset"
	"github.com/ritzau/citegraph/pkg/logging"
	"github.com/ritzau/citegraph/pkg/pubsub"
	"github.com/ritzau/citegraph/pkg/selection"
	"github.com/ritzau/citegraph/pkg/watcher"
	"github.com/ritzau/citegraph/pkg/web"
)

const (
	watchQuietPeriod = 300 * time.Millisecond
	watchMaxWait     = 2 * time.Second
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the graphs to a browser renderer",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd)
		},
	}
	cmd.Flags().Int("port", 8080, "Port for web server")
	cmd.Flags().Bool("watch", false, "Reload views when dataset files change")
	cmd.Flags().Bool("open", true, "Open the renderer in a browser")
	cmd.Flags().String("static-dir", "", "Directory with renderer assets")
	return cmd
}

func (a *app) serve(cmd *cobra.Command) error {
	cfg := a.cfg
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pub := pubsub.NewSSEPublisher()
	pubsub.DefaultTopics(pub)

	views, err := a.buildViews(func(name string) selection.Renderer {
		return pubsub.NewRenderer(pub, name)
	})
	if err != nil {
		return err
	}

	opts := web.Options{StaticDir: cfg.StaticDir}
	if cfg.Publications.Dir != "" {
		opts.Tables = &dataset.CategoryTables{Dir: cfg.Publications.Dir}
	}
	server := web.NewServer(views, pub, opts)

	// Load in the background so the renderer can connect and follow progress
	go server.LoadAll(ctx)

	if cfg.Watch {
		targets := watcher.Targets{}
		for _, v := range views {
			targets.Add(v.Name(), v.Paths()...)
		}
		fw, err := watcher.NewFileWatcher(targets.Paths())
		if err != nil {
			return err
		}
		if err := fw.Start(ctx); err != nil {
			return err
		}
		debouncer := watcher.NewDebouncer(fw.Events(), watchQuietPeriod, watchMaxWait)
		debouncer.Start(ctx)
		go watcher.Run(ctx, debouncer.Output(), targets, server.Reload)
	}

	if cfg.OpenBrowser {
		url := fmt.Sprintf("http://localhost:%d", cfg.Port)
		go func() {
			// Wait a moment for server to start
			time.Sleep(500 * time.Millisecond)
			openBrowser(url)
		}()
	}

	return server.Start(ctx, cfg.Port)
}

func openBrowser(url string) {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "darwin":
		cmd = "open"
		args = []string{url}
	case "linux":
		cmd = "xdg-open"
		args = []string{url}
	case "windows":
		cmd = "cmd"
		args = []string{"/c", "start", url}
	default:
		logging.Warn("cannot open browser on this platform", "os", runtime.GOOS)
		return
	}

	if err := exec.Command(cmd, args...).Start(); err != nil {
		logging.Warn("failed to open browser", "url", url, "error", err)
	}
}
