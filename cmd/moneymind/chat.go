package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/moneymind/internal/messaging"
)

const chatBanner = "MoneyMind chat. Type 'exit' to quit."

func newChatCmd(st *cliState) *cobra.Command {
	var (
		userID string
		memory bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to MoneyMind from the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := appOptions{}
			if memory {
				opts.storeOverride = "memory"
			}
			a, err := newApp(cmd.Context(), st.cfg, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			return runChat(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), a.router, userID)
		},
	}

	cmd.Flags().StringVar(&userID, "user", "cli_user", "User id whose record is loaded and saved")
	cmd.Flags().BoolVar(&memory, "memory", false, "Keep records in memory instead of the configured store")

	return cmd
}

// runChat reads one message per line until EOF or "exit"
func runChat(ctx context.Context, in io.Reader, out io.Writer, r messaging.Router, userID string) error {
	fmt.Fprintln(out, chatBanner)
	fmt.Fprintf(out, "MoneyMind: %s\n", r.Route(ctx, userID, ""))

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "You: ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if strings.EqualFold(line, "exit") || strings.EqualFold(line, "quit") {
			fmt.Fprintln(out, "MoneyMind: Goodbye!")
			return nil
		}
		if line == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprintf(out, "MoneyMind: %s\n", r.Route(ctx, userID, line))
	}
}
