package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/moneymind/internal/db"
)

func newMigrateCmd(st *cliState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema used by the postgres store",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := db.New(cmd.Context(), db.PoolConfig{URL: st.cfg.Database.GetDSN()})
			if err != nil {
				return err
			}
			defer database.Close()

			applied, err := db.NewMigrator(database.Pool()).Migrate(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s)\n", applied)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := db.New(cmd.Context(), db.PoolConfig{URL: st.cfg.Database.GetDSN()})
			if err != nil {
				return err
			}
			defer database.Close()

			statuses, err := db.NewMigrator(database.Pool()).Status(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "VERSION\tDESCRIPTION\tAPPLIED")
			for _, s := range statuses {
				fmt.Fprintf(w, "%d\t%s\t%t\n", s.Version, s.Description, s.Applied)
			}
			return w.Flush()
		},
	})

	return cmd
}
