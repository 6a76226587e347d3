package main

import (
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gridlabs/gridtrader/src/engine"
	"github.com/gridlabs/gridtrader/src/eventpubsub"
	"github.com/gridlabs/gridtrader/src/pricing"
	"github.com/gridlabs/gridtrader/src/simulator"
	"github.com/gridlabs/gridtrader/src/utils"
)

type RunArgs struct {
	ConfigFile  string
	Ticks       int
	StartPrice  float64
	Volatility  float64
	Seed        int64
	CsvOut      string
	SnapshotOut string
	SnapshotIn  string
	Verbose     bool
}

var runCmd = &cobra.Command{
	Use:   "simulator --ticks 5000 --start-price 0.5 --volatility 0.005",
	Short: "Run the grid-trading simulation headless and print the account report",
	Run: func(cmd *cobra.Command, args []string) {
		configFile, err := cmd.Flags().GetString("config")
		if err != nil {
			log.Fatalf("error getting config: %v", err)
		}

		ticks, err := cmd.Flags().GetInt("ticks")
		if err != nil {
			log.Fatalf("error getting ticks: %v", err)
		}

		startPrice, err := cmd.Flags().GetFloat64("start-price")
		if err != nil {
			log.Fatalf("error getting start-price: %v", err)
		}

		volatility, err := cmd.Flags().GetFloat64("volatility")
		if err != nil {
			log.Fatalf("error getting volatility: %v", err)
		}

		seed, err := cmd.Flags().GetInt64("seed")
		if err != nil {
			log.Fatalf("error getting seed: %v", err)
		}

		csvOut, err := cmd.Flags().GetString("csv-out")
		if err != nil {
			log.Fatalf("error getting csv-out: %v", err)
		}

		snapshotOut, err := cmd.Flags().GetString("snapshot-out")
		if err != nil {
			log.Fatalf("error getting snapshot-out: %v", err)
		}

		snapshotIn, err := cmd.Flags().GetString("snapshot-in")
		if err != nil {
			log.Fatalf("error getting snapshot-in: %v", err)
		}

		verbose, err := cmd.Flags().GetBool("verbose")
		if err != nil {
			log.Fatalf("error getting verbose: %v", err)
		}

		if err := Run(RunArgs{
			ConfigFile:  configFile,
			Ticks:       ticks,
			StartPrice:  startPrice,
			Volatility:  volatility,
			Seed:        seed,
			CsvOut:      csvOut,
			SnapshotOut: snapshotOut,
			SnapshotIn:  snapshotIn,
			Verbose:     verbose,
		}); err != nil {
			log.Fatalf("Error: %v", err)
		}
	},
}

func Run(args RunArgs) error {
	if err := utils.InitEnvironmentVariables(); err != nil {
		return fmt.Errorf("error loading environment variables: %w", err)
	}

	if args.Verbose {
		log.SetLevel(log.DebugLevel)
	}

	eventpubsub.Init()

	cfg := engine.DefaultConfig()
	if args.ConfigFile != "" {
		var err error
		cfg, err = engine.LoadConfig(args.ConfigFile)
		if err != nil {
			return err
		}
	}

	orderManager, err := engine.NewOrderManager(cfg)
	if err != nil {
		return err
	}

	walk := pricing.NewRandomWalk(args.Volatility, args.Seed)
	sim := simulator.New(orderManager, walk, args.StartPrice, 50*time.Millisecond)

	if args.SnapshotIn != "" {
		if err := sim.RestoreFromSnapshot(args.SnapshotIn); err != nil {
			return err
		}
		log.Infof("resumed from snapshot %s", args.SnapshotIn)
	}

	started := time.Now()
	sim.RunTicks(args.Ticks)
	log.Infof("processed %d ticks in %v", args.Ticks, time.Since(started))

	PrintReport(os.Stdout, sim)

	if args.CsvOut != "" {
		if err := ExportOrderHistory(args.CsvOut, sim.OrderHistory()); err != nil {
			return err
		}
		log.Infof("exported order history to %s", args.CsvOut)
	}

	if args.SnapshotOut != "" {
		if err := sim.SaveSnapshot(args.SnapshotOut); err != nil {
			return err
		}
		log.Infof("saved snapshot to %s", args.SnapshotOut)
	}

	return nil
}

func main() {
	runCmd.PersistentFlags().String("config", "", "Path to a YAML engine config file.")
	runCmd.PersistentFlags().Int("ticks", 5000, "Number of ticks to simulate.")
	runCmd.PersistentFlags().Float64("start-price", 0.5, "Initial price of the synthetic instrument.")
	runCmd.PersistentFlags().Float64("volatility", 0.005, "Bound of the uniform per-tick price perturbation.")
	runCmd.PersistentFlags().Int64("seed", time.Now().UnixNano(), "Seed for the price random walk.")
	runCmd.PersistentFlags().String("csv-out", "", "Write the executed order history to a CSV file.")
	runCmd.PersistentFlags().String("snapshot-out", "", "Write the engine state to a JSON snapshot after the run.")
	runCmd.PersistentFlags().String("snapshot-in", "", "Resume the engine from a JSON snapshot before the run.")
	runCmd.PersistentFlags().Bool("verbose", false, "Enable per-tick debug logging.")

	runCmd.Execute()
}
