package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ajitpratap0/moneymind/internal/config"
)

// cliState is shared by every subcommand once PersistentPreRunE has run
type cliState struct {
	configPath string
	logLevel   string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	st := &cliState{}

	rootCmd := &cobra.Command{
		Use:           "moneymind",
		Short:         "MoneyMind - conversational financial assistant",
		Long:          `MoneyMind answers finance questions, summarises market news, builds a risk profile through a short questionnaire and suggests portfolio allocations.`,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return st.load(cmd.Context())
		},
	}

	rootCmd.PersistentFlags().StringVar(&st.configPath, "config", "", "Configuration file path (default ./configs/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&st.logLevel, "log-level", "", "Override app.log_level")

	rootCmd.AddCommand(newServeCmd(st))
	rootCmd.AddCommand(newChatCmd(st))
	rootCmd.AddCommand(newMigrateCmd(st))
	rootCmd.AddCommand(newEventsCmd(st))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func (st *cliState) load(ctx context.Context) error {
	cfg, err := config.Load(st.configPath)
	if err != nil {
		return err
	}
	if st.logLevel != "" {
		cfg.App.LogLevel = st.logLevel
	}
	config.InitLogger(cfg.App.LogLevel, cfg.App.LogFormat)

	if ctx == nil {
		ctx = context.Background()
	}
	vctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	n, err := config.LoadSecretsFromVault(vctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}
	if n > 0 {
		log.Info().Int("count", n).Msg("Secrets loaded from Vault")
	}

	st.cfg = cfg
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "MoneyMind v%s\n", config.GetVersion())
		},
	}
}
