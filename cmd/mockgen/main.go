package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"parking-analytics/cmd/mockgen/engine"
	"parking-analytics/internal/snapshot"
)

func main() {
	facility := flag.String("facility", "MOCK_0", "Facility ID to generate")
	scenario := flag.String("scenario", "steady", "Scenario to generate: steady, growth, chaos")
	days := flag.Int("days", 60, "Number of days of history")
	capacity := flag.Int("capacity", 80, "Total spots")
	seed := flag.Int64("seed", time.Now().UnixNano(), "Random seed")
	tz := flag.String("tz", "UTC", "IANA timezone of the generated timestamps")
	outDir := flag.String("out", "./cache", "Cache directory for the snapshot file")
	flag.Parse()

	loc, err := time.LoadLocation(*tz)
	if err != nil {
		fmt.Printf("Invalid timezone: %v\n", err)
		os.Exit(1)
	}

	cfg := engine.GeneratorConfig{
		FacilityID: *facility,
		Scenario:   *scenario,
		Days:       *days,
		Capacity:   *capacity,
		Seed:       *seed,
		Now:        time.Now(),
		Location:   loc,
	}

	fmt.Printf("Generating scenario '%s' (Facility: %s, Days: %d, Capacity: %d) to %s...\n", cfg.Scenario, cfg.FacilityID, cfg.Days, cfg.Capacity, *outDir)

	raw := engine.Generate(cfg)

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		fmt.Printf("Failed to create output directory: %v\n", err)
		os.Exit(1)
	}
	if err := snapshot.SaveRaw(*outDir, raw); err != nil {
		fmt.Printf("Failed to save mock data: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Done. %d history rows, %d subscriptions, %d shifts.\n", len(raw.History), len(raw.Subscriptions), len(raw.Shifts))
}
