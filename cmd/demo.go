package cmd

import (
	"fmt"
	"path/filepath"

	cfgpkg "github.com/KaramelBytes/shipsight/internal/config"
	"github.com/KaramelBytes/shipsight/internal/warehouse"
	"github.com/spf13/cobra"
)

var (
	demoPath string
	demoRows int
	demoSeed int64
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Work with a local demo warehouse",
}

var demoSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create a SQLite database with generated reviews and shipments",
	Example: `  shipsight demo seed --path ./demo.db
  shipsight config set warehouse.driver sqlite
  shipsight config set warehouse.dsn ./demo.db`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if demoRows <= 0 {
			return fmt.Errorf("--rows must be > 0")
		}
		path, err := filepath.Abs(demoPath)
		if err != nil {
			return err
		}
		ctx := commandContext(cmd)
		src, err := warehouse.Open(ctx, cfgpkg.ProfileFixed, cfgpkg.Warehouse{Driver: warehouse.DriverSQLite, DSN: path})
		if err != nil {
			return err
		}
		defer src.Close()
		if err := warehouse.SeedDemo(ctx, src.DB(), demoRows, demoSeed); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "✓ Seeded %d orders into %s\n", demoRows, path)
		fmt.Fprintf(out, "Point ShipSight at it with:\n  shipsight config set warehouse.driver sqlite\n  shipsight config set warehouse.dsn %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(demoCmd)
	demoCmd.AddCommand(demoSeedCmd)
	demoSeedCmd.Flags().StringVar(&demoPath, "path", "shipsight-demo.db", "SQLite file to create or replace")
	demoSeedCmd.Flags().IntVar(&demoRows, "rows", 500, "number of orders to generate")
	demoSeedCmd.Flags().Int64Var(&demoSeed, "seed", 42, "random seed (same seed, same data)")
}
