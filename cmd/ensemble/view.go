package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/ensemblecast/ensemble/message"
	"github.com/ensemblecast/ensemble/video"
	"github.com/ensemblecast/ensemble/viewer"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newViewCommand(a *app) *cobra.Command {
	var (
		window  uint32
		frames  int
		preview bool
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "view",
		Short: "List a host's windows and optionally cast one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			conn, err := a.dial()
			if err != nil {
				return err
			}
			v := viewer.New(conn, video.RawCodec{}, a.peerOptions()...)
			defer v.Close()

			ok, err := v.Handshake(ctx)
			if err != nil {
				return err
			}
			if !ok {
				return errors.New("host speaks another protocol version")
			}

			out := cmd.OutOrStdout()
			windows, err := v.Windows(ctx)
			if err != nil {
				return err
			}
			printWindows(out, windows)

			if preview {
				for _, w := range windows {
					img, ok, err := v.Preview(ctx, w.ID)
					if err != nil {
						return err
					}
					if ok {
						fmt.Fprintf(out, "preview %d: %dx%d\n", w.ID, img.Width, img.Height)
					} else {
						fmt.Fprintf(out, "preview %d: unavailable\n", w.ID)
					}
				}
			}

			if window == 0 {
				return nil
			}
			return cast(ctx, out, v, window, frames)
		},
	}
	cmd.Flags().Uint32VarP(&window, "window", "w", 0, "window ID to cast")
	cmd.Flags().IntVarP(&frames, "frames", "n", 60, "frames to receive before stopping")
	cmd.Flags().BoolVar(&preview, "preview", false, "fetch a preview of every window")
	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "give up after this long")
	return cmd
}

func printWindows(out io.Writer, windows []message.Window) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tAPP\tTITLE\tSIZE\tLAYER")
	for _, w := range windows {
		title := "-"
		if w.Title != nil {
			title = *w.Title
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.0fx%.0f\t%d\n", w.ID, w.App, title, w.Frame.Width, w.Frame.Height, w.Layer)
	}
	tw.Flush()
}

func cast(ctx context.Context, out io.Writer, v *viewer.Viewer, window uint32, frames int) error {
	c, err := v.StartCasting(ctx, window)
	if err != nil {
		return err
	}
	start := time.Now()
	for i := 0; i < frames; i++ {
		img, err := c.Next(ctx)
		if err != nil {
			c.Close(context.Background())
			return err
		}
		if i == 0 {
			fmt.Fprintf(out, "first frame %dx%d after %s\n", img.Width, img.Height, time.Since(start).Round(time.Millisecond))
		}
	}
	elapsed := time.Since(start)
	fmt.Fprintf(out, "%d frames in %s (%.1f fps), %d skipped\n",
		frames, elapsed.Round(time.Millisecond), float64(frames)/elapsed.Seconds(), c.Dropped())
	return c.Close(ctx)
}
