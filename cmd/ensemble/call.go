package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/ensemblecast/ensemble/codec"
	"github.com/ensemblecast/ensemble/message"
	"github.com/ensemblecast/ensemble/peer"
	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
	"github.com/progrium/clon-go"
	"github.com/spf13/cobra"
)

var replyDec = mustDecMode(cbor.DecOptions{
	DefaultMapType: reflect.TypeOf(map[string]any(nil)),
})

func mustDecMode(opts cbor.DecOptions) cbor.DecMode {
	m, err := opts.DecMode()
	if err != nil {
		panic(err)
	}
	return m
}

func newCallCommand(a *app) *cobra.Command {
	var (
		oneWay  bool
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "call <kind> [args...]",
		Short: "Send one raw message and print its reply",
		Long: `Send a message of the named kind, e.g. "windows" or "windowPreview", with a
payload built from CLON arguments (window=3) encoded as CBOR. Without arguments the
payload is empty. The reply is printed as JSON when it decodes as CBOR, hex otherwise.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, ok := message.Lookup(args[0])
			if !ok {
				return errors.Errorf("unknown message kind %q", args[0])
			}

			var payload []byte
			if len(args) > 1 {
				v, err := clon.Parse(args[1:])
				if err != nil {
					return errors.Wrap(err, "parse arguments")
				}
				if payload, err = codec.MarshalCBOR(v); err != nil {
					return err
				}
			}

			conn, err := a.dial()
			if err != nil {
				return err
			}
			// Hosts greet every connection.
			responder := message.NewRespondMux()
			message.AnswerHandshake(responder, message.HostHandshakeOp, nil)
			p := peer.New(conn, responder, a.peerOptions()...)
			defer p.Close()

			if oneWay {
				return p.Send(kind, payload)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			reply, err := p.SendWithReply(ctx, kind, payload)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatReply(reply))
			return nil
		},
	}
	cmd.Flags().BoolVar(&oneWay, "one-way", false, "send without waiting for a reply")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "reply timeout")
	return cmd
}

func formatReply(b []byte) string {
	if len(b) == 0 {
		return "(empty)"
	}
	var v any
	if err := replyDec.Unmarshal(b, &v); err == nil {
		if out, err := json.MarshalIndent(v, "", "  "); err == nil {
			return string(out)
		}
	}
	return hex.Dump(b)
}
