package main

import (
	"net"
	"net/http"
	"sync"

	"github.com/ensemblecast/ensemble/config"
	"github.com/ensemblecast/ensemble/host"
	"github.com/ensemblecast/ensemble/mux"
	"github.com/ensemblecast/ensemble/peer"
	"github.com/ensemblecast/ensemble/transport"
	"github.com/ensemblecast/ensemble/transport/quic"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Collectors live in the default registry, which takes them once.
var (
	metricsOnce sync.Once
	muxMetrics  *mux.Metrics
	hostMetrics *host.Metrics
)

// app carries what every command shares once flags are parsed.
type app struct {
	v          *viper.Viper
	configFile string

	config      config.Config
	log         *logrus.Logger
	muxMetrics  *mux.Metrics
	hostMetrics *host.Metrics
}

func newRootCommand() *cobra.Command {
	a := &app{v: config.New()}
	root := &cobra.Command{
		Use:           "ensemble",
		Short:         "Cast windows between machines",
		Long:          `ensemble serves a machine's windows to a remote viewer and is a utility for working with the ensemble wire protocol.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default: ensemble.yaml in ., ~/.ensemble, /etc/ensemble)")
	flags.StringP("transport", "t", "tcp", "transport: tcp, unix, ws, quic or stdio")
	flags.StringP("address", "a", "127.0.0.1:7470", "address to listen on or dial")
	flags.Bool("insecure", false, "skip TLS verification when dialing quic")
	flags.String("log-level", "info", "log level")
	flags.String("log-format", "text", "log format: text or json")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address")
	flags.Int("max-concurrency", 0, "envelopes handled at once per session (0 is unbounded)")

	root.AddCommand(newServeCommand(a))
	root.AddCommand(newViewCommand(a))
	root.AddCommand(newCallCommand(a))
	root.AddCommand(newCheckCommand(a))
	root.AddCommand(newBenchCommand(a))
	root.AddCommand(newVersionCommand())
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	if err := config.BindFlags(a.v, cmd.Flags()); err != nil {
		return err
	}
	c, err := config.Load(a.v, a.configFile)
	if err != nil {
		return err
	}
	a.config = c
	if a.log, err = c.Logger(); err != nil {
		return err
	}
	quic.DialTLSConfig.InsecureSkipVerify = c.Insecure

	metricsOnce.Do(func() {
		muxMetrics = mux.NewMetrics()
		hostMetrics = host.NewMetrics()
	})
	a.muxMetrics, a.hostMetrics = muxMetrics, hostMetrics
	if c.MetricsAddr != "" {
		if err := a.serveMetrics(c.MetricsAddr); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) serveMetrics(addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrap(err, "metrics")
	}
	m := http.NewServeMux()
	m.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.Serve(l, m); err != nil {
			a.log.WithError(err).Error("metrics server stopped")
		}
	}()
	a.log.WithField("addr", l.Addr().String()).Info("serving metrics")
	return nil
}

func (a *app) peerOptions() []peer.Option {
	return []peer.Option{
		peer.WithLogger(a.log),
		peer.WithMetrics(a.muxMetrics),
		peer.WithMaxConcurrency(a.config.MaxConcurrency),
	}
}

func (a *app) dial() (transport.Conn, error) {
	conn, err := transport.Dial(a.config.Transport, a.config.Address)
	return conn, errors.Wrapf(err, "dial %s %s", a.config.Transport, a.config.Address)
}
