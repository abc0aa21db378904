package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ensemblecast/ensemble/capture"
	"github.com/ensemblecast/ensemble/host"
	"github.com/ensemblecast/ensemble/input"
	"github.com/ensemblecast/ensemble/mux"
	"github.com/ensemblecast/ensemble/peer"
	"github.com/ensemblecast/ensemble/transport"
	"github.com/ensemblecast/ensemble/video"
	"github.com/ensemblecast/ensemble/viewer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func newBenchCommand(a *app) *cobra.Command {
	var (
		width, height int
		duration      time.Duration
		maxFPS        float64
	)
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Cast in-process and report throughput",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := prometheus.NewRegistry()
			metrics := host.NewMetrics(mux.WithRegistry(registry))
			source := capture.NewSynthetic(time.Millisecond, capture.Window{
				ID: 1, App: "Bench", Width: float64(width), Height: float64(height), OnScreen: true,
			})

			hc, vc := transport.Pipe()
			h := host.New(hc, source, video.RawCodec{}, input.NewRecorder(a.log), host.Config{
				MaxFPS:  maxFPS,
				Metrics: metrics,
			}, peer.WithLogger(a.log))
			defer h.Close()
			v := viewer.New(vc, video.RawCodec{}, peer.WithLogger(a.log))
			defer v.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), duration)
			defer cancel()
			c, err := v.StartCasting(ctx, 1)
			if err != nil {
				return err
			}
			start := time.Now()
			frames := 0
			for {
				if _, err := c.Next(ctx); err != nil {
					break
				}
				frames++
			}
			elapsed := time.Since(start)

			fmt.Fprintf(cmd.OutOrStdout(), "%dx%d: %d frames in %s, %.1f fps\n",
				width, height, frames, elapsed.Round(time.Millisecond), float64(frames)/elapsed.Seconds())
			fmt.Fprintf(cmd.OutOrStdout(), "skipped by viewer: %d, dropped by cap: %.0f, masks omitted: %.0f\n",
				c.Dropped(),
				counterValue(registry, "ensemble_host_frames_dropped_total"),
				counterValue(registry, "ensemble_host_masks_omitted_total"))
			return nil
		},
	}
	cmd.Flags().IntVar(&width, "width", 1280, "window width")
	cmd.Flags().IntVar(&height, "height", 720, "window height")
	cmd.Flags().DurationVarP(&duration, "duration", "d", 3*time.Second, "how long to cast")
	cmd.Flags().Float64Var(&maxFPS, "fps", 0, "frame rate cap (0 is uncapped)")
	return cmd
}

func counterValue(g prometheus.Gatherer, name string) float64 {
	families, err := g.Gather()
	if err != nil {
		return 0
	}
	for _, f := range families {
		if f.GetName() == name {
			var total float64
			for _, m := range f.GetMetric() {
				total += m.GetCounter().GetValue()
			}
			return total
		}
	}
	return 0
}
