package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hostwatch/hostwatch/pkg/types"
	"github.com/hostwatch/hostwatch/viewer/internal/render"
	"github.com/hostwatch/hostwatch/viewer/internal/stream"
)

func main() {
	url := flag.String("url", "ws://127.0.0.1:6969/sync", "hostwatch /sync endpoint")
	verbose := flag.Bool("v", false, "log connection details to stderr")
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var (
		mu   sync.Mutex
		last time.Time
	)
	client, err := stream.New(stream.Config{
		URL: *url,
		OnSample: func(s types.Sample) {
			mu.Lock()
			last = s.TakenAt
			mu.Unlock()
			fmt.Println(render.Line(s))
		},
		OnState: func(st stream.State, err error) {
			if st != stream.StateStale {
				slog.Debug("viewer: state", "state", st.String())
				return
			}
			mu.Lock()
			l := last
			mu.Unlock()
			fmt.Fprintln(os.Stderr, render.Stale(l, time.Now(), err))
		},
	})
	if err != nil {
		slog.Error("viewer: invalid options", "err", err)
		os.Exit(2)
	}

	slog.Info("viewer: streaming", "url", *url)
	if err := client.Run(ctx); err != nil {
		slog.Error("viewer: stopped", "err", err)
		os.Exit(1)
	}
}
