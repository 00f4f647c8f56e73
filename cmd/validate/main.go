// Command validate checks a saved feed payload, and optionally the province
// shapefile, for the conditions the chart pipelines rely on: parallel series
// of equal length, well-formed dates, region names that resolve to provinces,
// shapes for every reported province, and a sane bucket distribution.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -payload internal/domain/testdata/payload_live.json \
//	  -shapefile china-shapefiles-master/china -encoding utf-8
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/mgw2168/2019-nCoV/internal/adapter/shapefile"
	"github.com/mgw2168/2019-nCoV/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	payloadPath := flag.String("payload", "", "path to a saved payload (JSON or JSONP)")
	shapePath := flag.String("shapefile", "", "optional province shapefile to check coverage against")
	encoding := flag.String("encoding", "utf-8", "shapefile attribute encoding (utf-8 or gbk)")
	year := flag.Int("year", domain.DefaultSeriesYear, "year attached to history dates")
	flag.Parse()

	if *payloadPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(*payloadPath, *shapePath, *encoding, *year))
}

func run(payloadPath, shapePath, encoding string, year int) int {
	fmt.Println("=== 2019-nCoV Payload Validation ===")
	fmt.Println()

	payload, err := loadPayload(payloadPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load payload: %v\n", err)
		return 1
	}

	var shapes []domain.Shape
	if shapePath != "" {
		loader, err := shapefile.NewLoader(encoding, slog.New(slog.NewTextHandler(io.Discard, nil)))
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
			return 1
		}
		if shapes, err = loader.Load(shapePath); err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load shapefile: %v\n", err)
			return 1
		}
	}

	ts, seriesErr := domain.ExtractTimeSeries(payload, year)
	counts, regionErr := domain.ExtractRegionCounts(payload)

	phases := []*phase{
		validateSeriesParity(payload, ts, seriesErr),
		validateDates(ts, seriesErr),
		validateRegionNames(counts, regionErr),
	}
	if shapePath != "" {
		phases = append(phases, validateShapeCoverage(counts, shapes))
	}
	phases = append(phases, validateBuckets(ts, counts, regionErr))

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d history days, %d regions, %d shapes\n", ts.Len(), len(counts), len(shapes))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// loadPayload reads a snapshot written by cmd/snapshot or a raw JSONP
// response saved from the feed.
func loadPayload(path string) (*domain.Payload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	body := bytes.TrimSpace(data)
	if len(body) > 0 && body[0] != '{' {
		if body, err = domain.UnwrapJSONP(body); err != nil {
			return nil, err
		}
	}
	return domain.ParsePayload(body)
}

// ── Phases ──

func validateSeriesParity(payload *domain.Payload, ts domain.TimeSeries, extractErr error) *phase {
	p := &phase{name: "Series parity"}
	if extractErr != nil {
		p.errorf("extract series: %v", extractErr)
		return p
	}
	if ts.Len() == 0 {
		p.errorf("historylist is empty")
		return p
	}

	series := []struct {
		name   string
		values []int
	}{
		{"confirmed", ts.Confirmed},
		{"suspected", ts.Suspected},
		{"deaths", ts.Deaths},
		{"cured", ts.Cured},
	}
	for _, sr := range series {
		name, s := sr.name, sr.values
		if len(s) != ts.Len() {
			p.errorf("%s has %d values for %d dates", name, len(s), ts.Len())
		}
		for i, v := range s {
			if v < 0 {
				p.errorf("%s[%d] is negative: %d", name, i, v)
			}
		}
	}

	missing := 0
	for _, h := range payload.Data.HistoryList {
		if !h.Suspected.Valid {
			missing++
		}
	}
	if missing > 0 {
		fmt.Printf("note: %d history entries have no suspected count and were padded\n", missing)
	}
	return p
}

func validateDates(ts domain.TimeSeries, extractErr error) *phase {
	p := &phase{name: "Date sanity"}
	if extractErr != nil {
		p.errorf("extract series: %v", extractErr)
		return p
	}

	seen := make(map[string]int, ts.Len())
	for i, d := range ts.Dates {
		key := d.Format("2006-01-02")
		if j, dup := seen[key]; dup {
			p.errorf("date %s appears at %d and %d", key, j, i)
		}
		seen[key] = i
	}

	// The feed lists days newest first; either strict order is accepted.
	if ts.Len() > 1 {
		desc := ts.Dates[0].After(ts.Dates[1])
		for i := 1; i < ts.Len(); i++ {
			if ts.Dates[i-1].After(ts.Dates[i]) != desc || ts.Dates[i-1].Equal(ts.Dates[i]) {
				p.errorf("dates out of order at %d: %s then %s", i,
					ts.Dates[i-1].Format("01-02"), ts.Dates[i].Format("01-02"))
				break
			}
		}
	}
	return p
}

func validateRegionNames(counts domain.RegionCounts, extractErr error) *phase {
	p := &phase{name: "Region names in province table"}
	if extractErr != nil {
		p.errorf("extract regions: %v", extractErr)
		return p
	}
	if len(counts) == 0 {
		p.errorf("list is empty")
	}
	_, unmatched := domain.IndexByProvince(counts)
	for _, name := range unmatched {
		p.errorf("region %q does not match any province", name)
	}
	return p
}

func validateShapeCoverage(counts domain.RegionCounts, shapes []domain.Shape) *phase {
	p := &phase{name: "Shapefile covers reported provinces"}

	covered := make(map[string]bool)
	for i, s := range shapes {
		if !s.IsTopLevel() {
			continue
		}
		owner := s.Attr(domain.AttrOwner)
		short, ok := domain.CanonicalProvince(owner)
		if !ok {
			p.errorf("shape %d has unknown owner %q", i, owner)
			continue
		}
		covered[short] = true
	}

	indexed, _ := domain.IndexByProvince(counts)
	var missing []string
	for name := range indexed {
		if !covered[name] {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	for _, name := range missing {
		p.errorf("no top-level shape for reported province %s", name)
	}
	return p
}

func validateBuckets(ts domain.TimeSeries, counts domain.RegionCounts, extractErr error) *phase {
	p := &phase{name: "Bucket distribution"}
	if extractErr != nil {
		p.errorf("extract regions: %v", extractErr)
		return p
	}

	dist := make(map[domain.Severity]int)
	for name, n := range counts {
		if n < 0 {
			p.errorf("region %s has negative count %d", name, n)
		}
		dist[domain.Bucket(n)]++
	}
	for _, sev := range domain.Severities() {
		fmt.Printf("  %-12s %d\n", sev.Label(), dist[sev])
	}

	if ts.Len() > 0 {
		latest := ts.Confirmed[0]
		if ts.Dates[ts.Len()-1].After(ts.Dates[0]) {
			latest = ts.Confirmed[ts.Len()-1]
		}
		if total := counts.Total(); total > latest {
			p.errorf("region total %d exceeds latest national confirmed %d", total, latest)
		}
	}
	return p
}
