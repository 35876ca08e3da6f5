package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"process-mutex/src/singleinstance"
)

type stressOptions struct {
	n        int
	port     string
	payload  string
	deadline time.Duration
}

type stressResult struct {
	launched  int
	primary   int32
	secondary int32
	bindErr   int32
	transport int32
	otherErr  int32
	delivered int64
	elapsed   time.Duration
}

func (r stressResult) String() string {
	return fmt.Sprintf("launched=%d primary=%d secondary=%d bind_err=%d transport_err=%d other_err=%d delivered=%d elapsed=%s",
		r.launched, r.primary, r.secondary, r.bindErr, r.transport, r.otherErr, r.delivered, r.elapsed)
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	opts := &stressOptions{}
	cmd := newRootCmd(opts)
	return cmd.Execute()
}

func newRootCmd(opts *stressOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "stress-launch",
		Short:         "Race many guards for one endpoint and check exactly one wins",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := runWithOptions(cmd.Context(), *opts)
			fmt.Fprintln(cmd.OutOrStdout(), res)
			return err
		},
	}

	cmd.Flags().IntVar(&opts.n, "n", 50, "number of launches to race")
	cmd.Flags().StringVar(&opts.port, "port", "49500", "endpoint port on 127.0.0.1")
	cmd.Flags().StringVar(&opts.payload, "payload", "armory://stress", "payload each secondary hands over")
	cmd.Flags().DurationVar(&opts.deadline, "deadline", 5*time.Second, "per-launch timeout")

	return cmd
}

func runWithOptions(ctx context.Context, opts stressOptions) (stressResult, error) {
	res := stressResult{launched: opts.n}
	ep, err := singleinstance.NewEndpoint(singleinstance.DefaultHost, opts.port)
	if err != nil {
		return res, err
	}

	var delivered atomic.Int64
	onPayload := func(string) { delivered.Add(1) }

	guards := make([]*singleinstance.Guard, opts.n)
	var wg sync.WaitGroup
	start := time.Now()
	for i := range guards {
		guards[i] = singleinstance.New(ep, onPayload, singleinstance.Options{Timeout: opts.deadline})
		wg.Add(1)
		go func(g *singleinstance.Guard) {
			defer wg.Done()
			lctx, cancel := context.WithTimeout(ctx, opts.deadline)
			defer cancel()
			status, err := g.Acquire(lctx, opts.payload)
			var bindErr *singleinstance.BindError
			var transportErr *singleinstance.TransportError
			switch {
			case errors.As(err, &bindErr):
				atomic.AddInt32(&res.bindErr, 1)
			case errors.As(err, &transportErr):
				atomic.AddInt32(&res.transport, 1)
			case err != nil:
				atomic.AddInt32(&res.otherErr, 1)
			case status == singleinstance.Primary:
				atomic.AddInt32(&res.primary, 1)
			case status == singleinstance.Secondary:
				atomic.AddInt32(&res.secondary, 1)
			}
		}(guards[i])
	}
	wg.Wait()
	res.elapsed = time.Since(start)

	// The last ACK can precede its callback; a PING is served after it.
	_ = singleinstance.Detect(ctx, ep)
	res.delivered = delivered.Load()

	for _, g := range guards {
		_ = g.Close()
	}

	if res.primary != 1 {
		return res, fmt.Errorf("expected exactly one primary, got %d", res.primary)
	}
	return res, nil
}

