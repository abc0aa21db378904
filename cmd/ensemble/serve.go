package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/ensemblecast/ensemble/capture"
	"github.com/ensemblecast/ensemble/host"
	"github.com/ensemblecast/ensemble/input"
	"github.com/ensemblecast/ensemble/transport"
	"github.com/ensemblecast/ensemble/video"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func demoWindows() []capture.Window {
	return []capture.Window{
		{ID: 1, Title: "Notes", App: "Editor", Width: 640, Height: 480, OnScreen: true},
		{ID: 2, Title: "Inbox", App: "Mail", X: 700, Width: 800, Height: 600, OnScreen: true},
		{ID: 3, App: "Palette", X: 40, Y: 40, Width: 160, Height: 320, Layer: 3, OnScreen: true},
	}
}

func newServeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve synthetic windows to viewers",
		Long: `Listen on the configured transport and run a host for every viewer that connects.
Windows are drawn by a synthetic capture source and input is logged instead of injected.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return a.serve(ctx)
		},
	}
	cmd.Flags().Float64("max-fps", 30, "frames per second cap per window (0 is uncapped)")
	cmd.Flags().Int("preview-width", host.DefaultPreviewWidth, "preview box width")
	cmd.Flags().Int("preview-height", host.DefaultPreviewHeight, "preview box height")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	l, err := transport.ListenOn(a.config.Transport, a.config.Address)
	if err != nil {
		return errors.Wrapf(err, "listen %s %s", a.config.Transport, a.config.Address)
	}
	log := a.log.WithField("transport", a.config.Transport)
	if addr := l.Addr(); addr != nil {
		log = log.WithField("addr", addr.String())
	}
	log.Info("listening")

	go func() {
		<-ctx.Done()
		l.Close()
	}()

	source := capture.NewSynthetic(time.Second/60, demoWindows()...)
	config := host.Config{
		MaxFPS:        a.config.MaxFPS,
		PreviewWidth:  a.config.PreviewWidth,
		PreviewHeight: a.config.PreviewHeight,
		Metrics:       a.hostMetrics,
	}

	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			// The stdio listener has a single connection.
			if a.config.Transport == "stdio" {
				return nil
			}
			return errors.Wrap(err, "accept")
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.host(ctx, conn, source, config, log)
		}()
	}
}

func (a *app) host(ctx context.Context, conn transport.Conn, source capture.Source, config host.Config, log logrus.FieldLogger) {
	h := host.New(conn, source, video.RawCodec{}, input.NewRecorder(log), config, a.peerOptions()...)
	defer h.Close()

	go func() {
		hctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if _, err := h.Handshake(hctx); err != nil {
			h.Log.WithError(err).Warn("handshake")
		}
	}()

	select {
	case <-h.Done():
	case <-ctx.Done():
	}
}
