package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"anwarfarm/internal/cli"
	"anwarfarm/internal/config"
	"anwarfarm/internal/core"
	"anwarfarm/internal/format"
	"anwarfarm/internal/ledger"
	applog "anwarfarm/internal/log"
	"anwarfarm/internal/report"
	"anwarfarm/internal/services"
)

const commandTimeout = 2 * time.Minute

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	switch os.Args[1] {
	case "export":
		runExport(cfg, logger)
	case "pull":
		runPull(cfg, logger)
	case "push":
		runPush(cfg, logger)
	case "summary":
		runSummary(cfg, logger)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("anwarfarm ledger CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  ledgerctl <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  export    Write CSV and XLSX reports of the local ledger")
	fmt.Println("  pull      Replace the local ledger with the remote document")
	fmt.Println("  push      Overwrite the remote document with the local ledger")
	fmt.Println("  summary   Print totals and the 7-day trend")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'ledgerctl <command> -h' for more information on a command.")
}

func open(ctx context.Context, cfg *config.Config, logger *applog.Logger) *cli.Ledger {
	led, err := cli.OpenLedger(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to open ledger", applog.FieldError, err)
		os.Exit(1)
	}
	return led
}

func parseFilter(fs *flag.FlagSet, args []string) ledger.Filter {
	search := fs.String("search", "", "case-insensitive description substring")
	txType := fs.String("type", "all", "all, income or outcome")
	start := fs.String("start", "", "first date, YYYY-MM-DD")
	end := fs.String("end", "", "last date, YYYY-MM-DD")
	fs.Parse(args)

	f := ledger.Filter{Search: *search, Type: core.ParseTxType(*txType)}
	for _, b := range []struct {
		raw  string
		dst  *core.Date
		name string
	}{{*start, &f.Start, "start"}, {*end, &f.End, "end"}} {
		if b.raw == "" {
			continue
		}
		d, err := core.ParseDate(b.raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: -%s: %v\n", b.name, err)
			os.Exit(2)
		}
		*b.dst = d
	}
	return f
}

func runExport(cfg *config.Config, logger *applog.Logger) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	dir := fs.String("dir", cfg.ReportDir, "output directory")
	f := parseFilter(fs, os.Args[2:])

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	led := open(ctx, cfg, logger)
	defer led.Close()

	view := ledger.BuildView(led.Store.Snapshot(), f)
	paths, err := report.SaveFiles(*dir, view, time.Now())
	if err != nil {
		logger.Error("Export failed", applog.FieldError, err)
		os.Exit(1)
	}
	for _, p := range paths {
		fmt.Println(p)
	}
}

func runPull(cfg *config.Config, logger *applog.Logger) {
	fs := flag.NewFlagSet("pull", flag.ExitOnError)
	fs.Parse(os.Args[2:])

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	led := open(ctx, cfg, logger)
	defer led.Close()

	coord := services.NewSyncCoordinator(led.Store, led.Remote.Store, nil, services.WithSyncLogger(logger))
	if !coord.Enabled() {
		fmt.Fprintln(os.Stderr, "Error: REMOTE_BACKEND is none")
		os.Exit(1)
	}
	if !coord.Pull(ctx) {
		fmt.Fprintf(os.Stderr, "Pull failed: %s\n", coord.Status().LastError)
		os.Exit(1)
	}
	fmt.Printf("Pulled %d transactions from %s\n", led.Store.Len(), coord.Status().Backend)
}

func runPush(cfg *config.Config, logger *applog.Logger) {
	fs := flag.NewFlagSet("push", flag.ExitOnError)
	fs.Parse(os.Args[2:])

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	led := open(ctx, cfg, logger)
	defer led.Close()

	coord := services.NewSyncCoordinator(led.Store, led.Remote.Store, nil, services.WithSyncLogger(logger))
	if !coord.Enabled() {
		fmt.Fprintln(os.Stderr, "Error: REMOTE_BACKEND is none")
		os.Exit(1)
	}
	records := led.Store.Snapshot()
	// The operator running this command holds the admin role.
	if !coord.Push(ctx, core.Admin, records) {
		fmt.Fprintf(os.Stderr, "Push failed: %s\n", coord.Status().LastError)
		os.Exit(1)
	}
	fmt.Printf("Pushed %d transactions to %s\n", len(records), coord.Status().Backend)
}

func runSummary(cfg *config.Config, logger *applog.Logger) {
	fs := flag.NewFlagSet("summary", flag.ExitOnError)
	f := parseFilter(fs, os.Args[2:])

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	led := open(ctx, cfg, logger)
	defer led.Close()

	svc := services.NewLedgerService(led.Store, nil, nil, nil, logger)
	sum := svc.Summary()
	view := svc.View(f)

	fmt.Printf("Transaksi     %d\n", sum.Count)
	fmt.Printf("Uang Masuk    %s (%s)\n", format.Rupiah(sum.Totals.Income), format.Percent(sum.Split.IncomePercent))
	fmt.Printf("Uang Keluar   %s (%s)\n", format.Rupiah(sum.Totals.Outcome), format.Percent(sum.Split.OutcomePercent))
	fmt.Printf("Saldo         %s\n", format.Rupiah(sum.Totals.Net))
	if view.Filtered {
		fmt.Printf("\nFilter: %d transaksi, saldo %s\n", len(view.Rows), format.Rupiah(view.Totals.Net))
	}

	fmt.Println("\nTren:")
	for _, b := range svc.Trend(f) {
		fmt.Printf("  %-18s +%s  -%s\n", format.Date(b.Date), format.Rupiah(b.Income), format.Rupiah(b.Outcome))
	}
}
