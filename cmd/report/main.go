// Package main renders a settled cycle to Markdown and CSV files.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"lossmine/internal/reporting"
	pgstore "lossmine/internal/storage/postgres"
)

func main() {
	postgresDSN := flag.String("postgres-dsn", os.Getenv("LOSSMINE_POSTGRES_DSN"), "PostgreSQL connection string")
	cycleNum := flag.Int64("cycle", 0, "Cycle to report on (default: latest)")
	outputDir := flag.String("output-dir", "output", "Output directory for generated files")
	flag.Parse()

	if *postgresDSN == "" {
		fmt.Fprintln(os.Stderr, "Error: -postgres-dsn is required")
		os.Exit(1)
	}

	ctx := context.Background()

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: connect to postgres: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	gen := reporting.NewGenerator(
		pgstore.NewSnapshotStore(pool),
		pgstore.NewPayoutStore(pool),
	)

	var report *reporting.Report
	if *cycleNum > 0 {
		report, err = gen.Generate(ctx, *cycleNum)
	} else {
		report, err = gen.GenerateLatest(ctx)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: generate report: %v\n", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error: create output directory: %v\n", err)
		os.Exit(1)
	}

	mdPath := filepath.Join(*outputDir, fmt.Sprintf("cycle_%d.md", report.Cycle))
	if err := os.WriteFile(mdPath, []byte(reporting.RenderMarkdown(report)), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error: write markdown: %v\n", err)
		os.Exit(1)
	}

	csvPath := filepath.Join(*outputDir, fmt.Sprintf("cycle_%d_leaderboard.csv", report.Cycle))
	if err := os.WriteFile(csvPath, []byte(reporting.RenderCSV(report)), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error: write csv: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Report for cycle %d written to %s and %s\n", report.Cycle, mdPath, csvPath)
}
