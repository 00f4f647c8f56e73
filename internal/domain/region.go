package domain

import (
	"fmt"
	"sort"
	"strings"
)

// RegionCounts maps a region name, as published by the feed, to its
// confirmed count.
type RegionCounts map[string]int

// ExtractRegionCounts builds the per-region mapping from data.list. A name
// that appears more than once keeps its last value.
func ExtractRegionCounts(p *Payload) (RegionCounts, error) {
	if p == nil || p.Data == nil {
		return nil, fmt.Errorf("%w: data", ErrMissingKey)
	}
	list := p.Data.List
	if list == nil {
		return nil, fmt.Errorf("%w: data.list", ErrMissingKey)
	}

	counts := make(RegionCounts, len(list))
	for i, entry := range list {
		name := strings.TrimSpace(entry.Name)
		if name == "" {
			return nil, fmt.Errorf("list[%d]: %w: name", i, ErrMissingKey)
		}
		if !entry.Value.Valid {
			return nil, fmt.Errorf("list[%d] %s: %w: value", i, name, ErrMissingKey)
		}
		counts[name] = entry.Value.Value
	}
	return counts, nil
}

// Names returns the region names in sorted order.
func (rc RegionCounts) Names() []string {
	names := make([]string, 0, len(rc))
	for name := range rc {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Total sums all region counts.
func (rc RegionCounts) Total() int {
	total := 0
	for _, n := range rc {
		total += n
	}
	return total
}
