package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/moneymind/internal/events"
)

func newEventsCmd(st *cliState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect turn events published on NATS",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "tail",
		Short: "Print turn events as JSON lines until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			bus, err := events.Connect(events.Config{
				URL:    st.cfg.NATS.URL,
				Prefix: st.cfg.NATS.Prefix,
				Name:   "moneymind-tail",
			})
			if err != nil {
				return err
			}
			defer func() { _ = bus.Close() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return tailEvents(ctx, bus, cmd.OutOrStdout())
		},
	})

	return cmd
}

// tailEvents writes each event as one JSON line until ctx is done
func tailEvents(ctx context.Context, bus *events.Bus, out io.Writer) error {
	lines := make(chan []byte, 64)
	sub, err := bus.SubscribeTurns(func(ev events.TurnEvent) {
		data, err := json.Marshal(ev)
		if err != nil {
			return
		}
		select {
		case lines <- data:
		default:
		}
	})
	if err != nil {
		return err
	}
	defer func() { _ = sub.Unsubscribe() }()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line := <-lines:
			if _, err := fmt.Fprintln(out, string(line)); err != nil {
				return err
			}
		}
	}
}
