package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/ensemblecast/ensemble/transport"
	"github.com/ensemblecast/ensemble/video"
	"github.com/ensemblecast/ensemble/viewer"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newCheckCommand(a *app) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "check <command>",
		Short: "Check a host implementation speaking over stdio",
		Long: `Run command with sh, talk to it over its stdin and stdout as a viewer and
exercise the handshake, window listing, previews and a short cast. For example:

  ensemble check "ensemble serve --transport stdio"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := exec.LookPath("sh")
			if err != nil {
				return err
			}
			proc := exec.Command(path, "-c", args[0])
			proc.Stderr = os.Stderr
			wc, err := proc.StdinPipe()
			if err != nil {
				return err
			}
			rc, err := proc.StdoutPipe()
			if err != nil {
				return err
			}
			conn, err := transport.DialIO(wc, rc)
			if err != nil {
				return err
			}
			if err := proc.Start(); err != nil {
				return err
			}
			defer proc.Process.Kill()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			v := viewer.New(conn, video.RawCodec{}, a.peerOptions()...)
			defer v.Close()
			return check(ctx, cmd.OutOrStdout(), v)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "give up after this long")
	return cmd
}

func check(ctx context.Context, out io.Writer, v *viewer.Viewer) error {
	ok, err := v.Handshake(ctx)
	if err != nil {
		return errors.Wrap(err, "viewer handshake")
	}
	if !ok {
		return errors.New("viewer handshake: version mismatch")
	}
	fmt.Fprintln(out, "Handshake: ok")

	windows, err := v.Windows(ctx)
	if err != nil {
		return errors.Wrap(err, "windows")
	}
	fmt.Fprintln(out, "Windows:", len(windows))
	if len(windows) == 0 {
		return nil
	}
	id := windows[0].ID

	img, ok, err := v.Preview(ctx, id)
	if err != nil {
		return errors.Wrap(err, "preview")
	}
	if ok {
		fmt.Fprintf(out, "Preview: %dx%d\n", img.Width, img.Height)
	} else {
		fmt.Fprintln(out, "Preview: unavailable")
	}

	c, err := v.StartCasting(ctx, id)
	if err != nil {
		return errors.Wrap(err, "start casting")
	}
	for i := 0; i < 3; i++ {
		img, err := c.Next(ctx)
		if err != nil {
			return errors.Wrap(err, "cast")
		}
		if err := img.Validate(); err != nil {
			return errors.Wrap(err, "cast")
		}
	}
	fmt.Fprintln(out, "Cast: 3 frames")
	if err := c.Close(ctx); err != nil {
		return errors.Wrap(err, "stop casting")
	}
	fmt.Fprintln(out, "Stop: ok")
	return nil
}
