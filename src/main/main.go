package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"process-mutex/src/config"
	"process-mutex/src/runtimeinit"
	"process-mutex/src/singleinstance"
)

const (
	exitFailure   = 1
	exitBind      = 2
	exitTransport = 3
)

var errNoResident = errors.New("no primary instance is running")

type mainOptions struct {
	host    string
	port    string
	codec   string
	verbose bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := runWithArgs(ctx, normalizeLegacyArgs(os.Args))
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	var bindErr *singleinstance.BindError
	var transportErr *singleinstance.TransportError
	switch {
	case errors.As(err, &bindErr):
		return exitBind
	case errors.As(err, &transportErr):
		return exitTransport
	default:
		return exitFailure
	}
}

// normalizeLegacyArgs maps single-dash long flags (-port 9999, -port=9999)
// to the double-dash form cobra expects.
func normalizeLegacyArgs(args []string) []string {
	out := make([]string, len(args))
	copy(out, args)
	for i := 1; i < len(out); i++ {
		arg := out[i]
		if !strings.HasPrefix(arg, "-") || strings.HasPrefix(arg, "--") {
			continue
		}
		name := strings.SplitN(arg[1:], "=", 2)[0]
		switch name {
		case "host", "port", "codec", "verbose":
			out[i] = "-" + arg
		}
	}
	return out
}

func runWithArgs(ctx context.Context, args []string) error {
	if len(args) == 0 {
		args = []string{"process-mutex"}
	}
	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args[1:])
	return cmd.ExecuteContext(ctx)
}

func newRootCmd(opts *mainOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process-mutex [payload]",
		Short: "Run as the single primary instance or hand a payload to it",
		Long: `Claims the loopback endpoint and stays resident as the primary instance,
printing every payload later launches hand over. If a primary is already
running, the payload (for example armory://tx/abc123) is delivered to it and
this process exits.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := ""
			if len(args) == 1 {
				payload = args[0]
			}
			return runGuard(cmd, *opts, payload)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.host, "host", "", "Loopback host of the endpoint (default 127.0.0.1)")
	cmd.PersistentFlags().StringVar(&opts.port, "port", "", "Port of the endpoint (default 49500)")
	cmd.PersistentFlags().StringVar(&opts.codec, "codec", "", "Notification codec: msgpack or json")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output to stderr")

	cmd.AddCommand(newPingCmd(opts), newSendCmd(opts))
	return cmd
}

func newPingCmd(opts *mainOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "ping",
		Short:         "Report whether a primary instance is running",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := bootstrap(cmd, *opts)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), rt.Config.Timeout)
			defer cancel()
			if !singleinstance.Detect(ctx, rt.Endpoint) {
				return fmt.Errorf("%w on %s", errNoResident, rt.Endpoint)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "primary running on %s\n", rt.Endpoint)
			return nil
		},
	}
}

func newSendCmd(opts *mainOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "send <payload>",
		Short:         "Deliver a payload to the running primary without trying to become it",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := bootstrap(cmd, *opts)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), rt.Config.Timeout)
			defer cancel()
			if err := singleinstance.Notify(ctx, rt.Endpoint, rt.Codec, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "delivered to %s\n", rt.Endpoint)
			return nil
		},
	}
}

func bootstrap(cmd *cobra.Command, opts mainOptions) (*runtimeinit.Runtime, error) {
	level := ""
	if opts.verbose {
		level = "debug"
	}
	return runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions: config.LoadOptions{
			HostOverride:     opts.host,
			PortOverride:     opts.port,
			CodecOverride:    opts.codec,
			LogLevelOverride: level,
		},
		Console: cmd.ErrOrStderr(),
	})
}

// runGuard blocks as primary until the command context ends, or returns
// right after handing payload to an existing primary.
func runGuard(cmd *cobra.Command, opts mainOptions, payload string) error {
	rt, err := bootstrap(cmd, opts)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	printPayload := func(p string) { fmt.Fprintln(out, p) }

	guard := rt.NewGuard(printPayload)
	status, err := guard.Acquire(cmd.Context(), payload)
	if err != nil {
		return err
	}
	if status == singleinstance.Secondary {
		fmt.Fprintf(out, "delegated to primary on %s\n", rt.Endpoint)
		return nil
	}
	defer guard.Close()

	rt.Log.Info().Str("endpoint", rt.Endpoint.Addr()).Msg("primary running, waiting for payloads")
	if payload != "" {
		printPayload(payload)
	}
	<-cmd.Context().Done()
	rt.Log.Info().Int64("received", guard.Received()).Msg("shutting down")
	return nil
}

