// Command genmock writes a seeded observation fixture for local
// development and test seeding. It uses the actual synthetic generator
// so fixture values match what the daemon sees in -synthetic runs.
//
// Usage:
//
//	go run ./cmd/genmock -regions 3 -days 60 -seed 7 -out data/mock/fixture.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/kilimoalert/drought-engine/internal/domain"
	"github.com/kilimoalert/drought-engine/internal/synthetic"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	regionCount := flag.Int("regions", 0, "number of built-in regions to include (0 means all)")
	days := flag.Int("days", 60, "days of history per region")
	seed := flag.Int64("seed", 7, "generator seed")
	out := flag.String("out", "", "output path for the JSON fixture")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	// Fix the clock so regenerating the fixture is reproducible.
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2025, time.April, 15, 6, 0, 0, 0, time.UTC),
	))
	defer domain.SetClock(nil)

	ds := synthetic.Generate(synthetic.Options{Days: *days, Seed: *seed})
	if *regionCount > 0 && *regionCount < len(ds.Regions) {
		keep := ds.Regions[:*regionCount]
		ds = synthetic.Generate(synthetic.Options{Regions: keep, Days: *days, Seed: *seed})
	}

	if err := writeJSON(*out, ds); err != nil {
		return fmt.Errorf("writing fixture: %w", err)
	}
	log.Printf("wrote fixture: %s", *out)

	printStats(ds)
	return nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(ds synthetic.Dataset) {
	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Regions: %d\n", len(ds.Regions))
	fmt.Printf("Observations: ndvi=%d, soil=%d, weather=%d\n",
		len(ds.NDVI), len(ds.SoilMoisture), len(ds.Weather))

	perRegion := map[string]*regionStats{}
	for _, obs := range ds.Weather {
		s := perRegion[obs.RegionID]
		if s == nil {
			s = &regionStats{}
			perRegion[obs.RegionID] = s
		}
		s.totalPrecip += obs.PrecipitationMM
		if obs.PrecipitationMM > 0 {
			s.rainDays++
		}
		s.tempSum += obs.TemperatureAvgC
		s.days++
	}
	for _, obs := range ds.NDVI {
		perRegion[obs.RegionID].ndviSum += obs.Value
	}

	for _, region := range ds.Regions {
		s := perRegion[region.ID]
		if s == nil || s.days == 0 {
			continue
		}
		fmt.Printf("  %s: rain_days=%d total_precip=%.1fmm avg_temp=%.1fC avg_ndvi=%.3f\n",
			region.ID, s.rainDays, s.totalPrecip,
			s.tempSum/float64(s.days), s.ndviSum/float64(s.days))
	}
}

type regionStats struct {
	totalPrecip float64
	rainDays    int
	tempSum     float64
	ndviSum     float64
	days        int
}
