package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gridlabs/gridtrader/src/engine"
	"github.com/gridlabs/gridtrader/src/eventpubsub"
	"github.com/gridlabs/gridtrader/src/pricing"
	"github.com/gridlabs/gridtrader/src/router"
	"github.com/gridlabs/gridtrader/src/simulator"
	"github.com/gridlabs/gridtrader/src/utils"
)

type RunArgs struct {
	Addr       string
	ConfigFile string
	StartPrice float64
	Volatility float64
	Seed       int64
	IntervalMs int
	AutoStart  bool
}

var runCmd = &cobra.Command{
	Use:   "server --addr :8080 --interval-ms 50",
	Short: "Serve the grid-trading simulator over HTTP and WebSocket",
	Run: func(cmd *cobra.Command, args []string) {
		addr, err := cmd.Flags().GetString("addr")
		if err != nil {
			log.Fatalf("error getting addr: %v", err)
		}

		configFile, err := cmd.Flags().GetString("config")
		if err != nil {
			log.Fatalf("error getting config: %v", err)
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

		intervalMs, err := cmd.Flags().GetInt("interval-ms")
		if err != nil {
			log.Fatalf("error getting interval-ms: %v", err)
		}

		autoStart, err := cmd.Flags().GetBool("auto-start")
		if err != nil {
			log.Fatalf("error getting auto-start: %v", err)
		}

		if err := Run(RunArgs{
			Addr:       addr,
			ConfigFile: configFile,
			StartPrice: startPrice,
			Volatility: volatility,
			Seed:       seed,
			IntervalMs: intervalMs,
			AutoStart:  autoStart,
		}); err != nil {
			log.Fatalf("Error: %v", err)
		}
	},
}

func Run(args RunArgs) error {
	if err := utils.InitEnvironmentVariables(); err != nil {
		return fmt.Errorf("error loading environment variables: %w", err)
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
	interval := time.Duration(args.IntervalMs) * time.Millisecond
	sim := simulator.New(orderManager, walk, args.StartPrice, interval)

	if args.AutoStart {
		sim.Start()
	}

	srv := &http.Server{
		Addr:    args.Addr,
		Handler: router.NewRouter(sim),
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-stop
		log.Info("shutting down")

		sim.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Errorf("server shutdown: %v", err)
		}
	}()

	log.Infof("listening on %s", args.Addr)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: %w", err)
	}

	return nil
}

func main() {
	runCmd.PersistentFlags().String("addr", ":8080", "Address to listen on.")
	runCmd.PersistentFlags().String("config", "", "Path to a YAML engine config file.")
	runCmd.PersistentFlags().Float64("start-price", 0.5, "Initial price of the synthetic instrument.")
	runCmd.PersistentFlags().Float64("volatility", 0.005, "Bound of the uniform per-tick price perturbation.")
	runCmd.PersistentFlags().Int64("seed", time.Now().UnixNano(), "Seed for the price random walk.")
	runCmd.PersistentFlags().Int("interval-ms", 50, "Tick interval in milliseconds.")
	runCmd.PersistentFlags().Bool("auto-start", true, "Start the simulation immediately.")

	runCmd.Execute()
}
