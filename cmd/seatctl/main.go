// seatctl is the operator tool for the seating service.
//
//	seatctl simulate   run concurrent customers against an in-memory venue
//	seatctl watch      print seat status events from Kafka
//	seatctl migrate    apply or roll back the PostgreSQL schema
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"ms-seating/internal/config"
	"ms-seating/internal/database/migrations"
	"ms-seating/internal/kafka"
	"ms-seating/internal/logger"
	"ms-seating/internal/models"
	storedb "ms-seating/internal/store/db"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	_ = godotenv.Load()
	if len(args) == 0 {
		printUsage()
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch args[0] {
	case "simulate":
		return runSimulate(ctx, args[1:])
	case "watch":
		return runWatch(ctx, args[1:])
	case "migrate":
		return runMigrate(args[1:])
	case "help", "-h", "--help":
		printUsage()
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func printUsage() {
	fmt.Fprint(os.Stderr, `seatctl: operator tool for the seating service

Usage:
  seatctl simulate [--capacity N] [--rows N] [--plan EQUAL|RANDOM] [--customers N] ...
  seatctl watch [--brokers host:port,...] [--topic T] [--group G]
  seatctl migrate up|down [--dsn DSN] [--dir DIR]

Run "seatctl <command> --help" for the flags of a command.
`)
}

func runSimulate(ctx context.Context, args []string) error {
	opts := defaultSimulation()
	var verbose bool

	flagSet := pflag.NewFlagSet("simulate", pflag.ContinueOnError)
	flagSet.IntVar(&opts.Capacity, "capacity", opts.Capacity, "seats in the venue")
	flagSet.IntVar(&opts.NumRows, "rows", opts.NumRows, "number of rows")
	flagSet.StringVar(&opts.Plan, "plan", opts.Plan, "seating plan: EQUAL or RANDOM")
	flagSet.IntVar(&opts.Customers, "customers", opts.Customers, "concurrent customers")
	flagSet.IntVar(&opts.MaxSeats, "max-seats", opts.MaxSeats, "largest hold a customer asks for")
	flagSet.Float64Var(&opts.ReserveRatio, "reserve-ratio", opts.ReserveRatio, "share of holds that are confirmed")
	flagSet.DurationVar(&opts.HoldExpiry, "hold-expiry", opts.HoldExpiry, "hold expiry used by the final sweep")
	flagSet.Uint64Var(&opts.Seed, "seed", opts.Seed, "random seed (0 picks one)")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "log every hold and reservation")
	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	level := logger.WARN
	if verbose {
		level = logger.DEBUG
	}
	opts.Logger = logger.NewConsoleLogger(os.Stderr, level)

	report, err := Simulate(ctx, opts)
	if err != nil {
		return err
	}
	report.Print(os.Stdout)
	if !report.Consistent() {
		return fmt.Errorf("availability invariant violated: event says %d free, rows say %d",
			report.EventAvailable, report.RowsFree)
	}
	return nil
}

func runWatch(ctx context.Context, args []string) error {
	cfg := config.Load()
	brokers := strings.Join(cfg.Kafka.Brokers, ",")
	topic := cfg.Kafka.Topic
	var group string

	flagSet := pflag.NewFlagSet("watch", pflag.ContinueOnError)
	flagSet.StringVar(&brokers, "brokers", brokers, "comma separated kafka brokers")
	flagSet.StringVar(&topic, "topic", topic, "seat status topic")
	flagSet.StringVar(&group, "group", "", "consumer group (empty reads new messages only)")
	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	log := logger.NewConsoleLogger(os.Stderr, logger.INFO)
	consumer := kafka.NewConsumer(strings.Split(brokers, ","), topic, group, log)
	defer consumer.Close()

	return consumer.Start(ctx, func(event models.SeatStatusEvent) {
		fmt.Fprintf(os.Stdout, "%s %-8s hold=%d reservation=%s customer=%s seats=%d rows=%v\n",
			event.OccurredAt.Format(time.RFC3339), event.Status, event.HoldID, event.ReservationID,
			event.CustomerEmail, event.SeatCount, event.SeatMap.RowIDs())
	})
}

func runMigrate(args []string) error {
	cfg := config.Load()
	dsn := cfg.Database.DSN
	dir := cfg.Database.MigrationsDir

	flagSet := pflag.NewFlagSet("migrate", pflag.ContinueOnError)
	flagSet.StringVar(&dsn, "dsn", dsn, "PostgreSQL DSN")
	flagSet.StringVar(&dir, "dir", dir, "migrations directory (empty uses the built-in migrations)")
	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if flagSet.NArg() != 1 {
		return fmt.Errorf("migrate needs exactly one of: up, down")
	}

	bunDB, err := storedb.Open(storedb.Options{Driver: "postgres", DSN: dsn, MaxOpenConns: 1})
	if err != nil {
		return err
	}
	log := logger.NewConsoleLogger(os.Stderr, logger.INFO)
	runner := migrations.NewRunner(bunDB, migrations.MigrateOptions{MigrationsDir: dir, AutoMigrate: true}, log)
	defer runner.Close()

	switch flagSet.Arg(0) {
	case "up":
		return runner.RunMigrations()
	case "down":
		if err := runner.MigrateDown(); err != nil {
			return err
		}
		log.Info("MIGRATION", "All migrations rolled back")
		return nil
	default:
		return fmt.Errorf("unknown migrate direction %q", flagSet.Arg(0))
	}
}
