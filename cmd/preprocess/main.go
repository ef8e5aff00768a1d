package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/jengzang/gobike-dashboard/internal/database"
	"github.com/jengzang/gobike-dashboard/internal/preprocess"
	"github.com/jengzang/gobike-dashboard/internal/repository"
)

func main() {
	in := flag.String("in", "data/raw/fordgobike-tripdataFor201902.csv", "raw trip export")
	out := flag.String("out", "data/processed/fordgobike_cleaned.csv", "cleaned CSV output")
	sqlitePath := flag.String("sqlite", "", "also write the cleaned table to this SQLite snapshot")
	referenceYear := flag.Int("reference-year", preprocess.DefaultReferenceYear, "year ages are computed against")
	flag.Parse()

	opts := preprocess.DefaultOptions()
	opts.ReferenceYear = *referenceYear

	trips, report, err := preprocess.CleanFile(*in, opts)
	if err != nil {
		log.Fatal("Failed to clean trips:", err)
	}
	log.Printf("[Preprocess] Gender filled=%d (mode %s), birth year filled=%d (median %d)",
		report.GenderFilled, report.GenderMode, report.BirthYearFilled, report.BirthYearMedian)

	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		log.Fatal("Failed to create output directory:", err)
	}
	if err := preprocess.WriteCSVFile(*out, trips); err != nil {
		log.Fatal(err)
	}

	if *sqlitePath != "" {
		db, err := database.Open(database.Config{Path: *sqlitePath})
		if err != nil {
			log.Fatal("Failed to open database:", err)
		}
		defer db.Close()

		ctx := context.Background()
		repo := repository.NewTripRepository(db)
		if err := repo.SaveTrips(ctx, trips, true, *out); err != nil {
			log.Fatal("Failed to save snapshot:", err)
		}
		stored, err := repo.CountTrips(ctx)
		if err != nil {
			log.Fatal("Failed to verify snapshot:", err)
		}
		if stored != len(trips) {
			log.Fatalf("Snapshot holds %d trips, expected %d", stored, len(trips))
		}
		log.Printf("[Preprocess] Saved %d trips to %s", stored, *sqlitePath)
	}
}
