// Command snapshot fetches the live epidemic feed and saves the payload with
// its JSONP wrapper removed. The saved file is what cmd/validate and the
// fixture-based tests read.
//
// Usage:
//
//	go run ./cmd/snapshot -out internal/domain/testdata/payload_live.json
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/mgw2168/2019-nCoV/internal/adapter/sina"
	"github.com/mgw2168/2019-nCoV/internal/config"
	"github.com/mgw2168/2019-nCoV/internal/domain"
	"github.com/mgw2168/2019-nCoV/internal/observability"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	url := flag.String("url", config.DefaultSourceURL, "feed endpoint")
	out := flag.String("out", "", "output path for the unwrapped JSON payload")
	timeout := flag.Duration("timeout", 15*time.Second, "request timeout")
	year := flag.Int("year", domain.DefaultSeriesYear, "year attached to history dates")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout+5*time.Second)
	defer cancel()

	client := sina.NewClient(*url, *timeout, sharedobs.NewLogger("warn", "text"), observability.NewMetrics())
	raw, err := client.FetchRaw(ctx)
	if err != nil {
		return fmt.Errorf("fetch feed: %w", err)
	}

	payload, err := domain.ParsePayload(raw)
	if err != nil {
		return fmt.Errorf("parse feed: %w", err)
	}

	if err := writeJSON(*out, raw); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	log.Printf("wrote snapshot: %s (%d bytes)", *out, len(raw))

	return printStats(payload, *year)
}

func writeJSON(path string, raw json.RawMessage) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return err
	}
	buf.WriteByte('\n')
	return os.WriteFile(path, buf.Bytes(), 0o600)
}

func printStats(payload *domain.Payload, year int) error {
	ts, err := domain.ExtractTimeSeries(payload, year)
	if err != nil {
		return fmt.Errorf("extract series: %w", err)
	}
	counts, err := domain.ExtractRegionCounts(payload)
	if err != nil {
		return fmt.Errorf("extract regions: %w", err)
	}

	fmt.Printf("\nhistory: %d days", ts.Len())
	if ts.Len() > 0 {
		fmt.Printf(" (%s to %s)", ts.Dates[ts.Len()-1].Format("2006-01-02"), ts.Dates[0].Format("2006-01-02"))
		fmt.Printf("\nlatest:  confirmed=%d suspected=%d deaths=%d cured=%d",
			ts.Confirmed[0], ts.Suspected[0], ts.Deaths[0], ts.Cured[0])
	}
	fmt.Printf("\nregions: %d, total confirmed %d\n", len(counts), counts.Total())

	buckets := make(map[domain.Severity]int)
	for _, n := range counts {
		buckets[domain.Bucket(n)]++
	}
	for _, sev := range domain.Severities() {
		fmt.Printf("  %-12s %d\n", sev.Label(), buckets[sev])
	}

	if _, unmatched := domain.IndexByProvince(counts); len(unmatched) > 0 {
		fmt.Printf("regions outside the province table: %v\n", unmatched)
	}
	return nil
}
