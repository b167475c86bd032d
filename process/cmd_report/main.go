package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"plantdx/pkg/config"
	"plantdx/pkg/history"
	"plantdx/process/report"
)

func main() {
	month := flag.String("month", time.Now().UTC().Format("2006-01"), "month to report (YYYY-MM)")
	list := flag.Bool("list", false, "list matching rows")
	flag.Parse()

	config.LoadDotEnv()
	cfg := config.Load()
	if cfg.DB.DSN == "" {
		fmt.Fprintln(os.Stderr, "DB_DSN not set; export DB_DSN and retry")
		os.Exit(2)
	}
	store, err := history.Open(cfg.DB.DSN, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open history: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := report.RunReport(context.Background(), store, *month, *list, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "report failed: %v\n", err)
		os.Exit(1)
	}
}
