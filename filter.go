package gitdict

import (
	"fmt"
	"sort"
	"strings"
)

// SortMode selects how the filtered list is ordered for display
type SortMode string

const (
	SortByCategory SortMode = "category"
	SortByName     SortMode = "name"
)

// ParseSortMode accepts "category" or "name"; empty means category
func ParseSortMode(s string) (SortMode, error) {
	switch SortMode(s) {
	case "", SortByCategory:
		return SortByCategory, nil
	case SortByName:
		return SortByName, nil
	}
	return "", fmt.Errorf("unknown sort mode: %q", s)
}

// Bounds of the "max items" control
const (
	MinMaxItems     = 5
	MaxMaxItems     = 50
	MaxItemsStep    = 5
	DefaultMaxItems = 20
)

// FilterConfig holds everything that narrows the term list
type FilterConfig struct {
	Category        Category `json:"category"`
	IncludeAdvanced bool     `json:"include_advanced"`
	Query           string   `json:"query"`
	MaxItems        int      `json:"max_items"` // <= 0 means unbounded
	Sort            SortMode `json:"sort"`
}

// DefaultFilterConfig matches the initial state of the sidebar
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		Category:        CategoryAll,
		IncludeAdvanced: true,
		MaxItems:        DefaultMaxItems,
		Sort:            SortByCategory,
	}
}

// ClampMaxItems snaps n into the slider range, rounding down to the step
func ClampMaxItems(n int) int {
	if n < MinMaxItems {
		return MinMaxItems
	}
	if n > MaxMaxItems {
		return MaxMaxItems
	}
	return n - n%MaxItemsStep
}

// Filter narrows terms according to cfg. The result is a subsequence of terms
// unless cfg.Sort is SortByName, in which case survivors are sorted by name
// before truncation. The input slice is never modified.
func Filter(terms []Term, cfg FilterConfig) []Term {
	q := strings.ToLower(cfg.Query)
	out := make([]Term, 0, len(terms))
	for _, t := range terms {
		if cfg.Category != "" && cfg.Category != CategoryAll && t.Category != cfg.Category {
			continue
		}
		if !cfg.IncludeAdvanced && t.Category.Advanced() {
			continue
		}
		if q != "" && !matchesQuery(t, q) {
			continue
		}
		out = append(out, t)
	}

	if cfg.Sort == SortByName {
		sortByName(out)
	}

	if cfg.MaxItems > 0 && len(out) > cfg.MaxItems {
		out = out[:cfg.MaxItems]
	}
	return out
}

func matchesQuery(t Term, lowerQuery string) bool {
	return strings.Contains(strings.ToLower(t.Name), lowerQuery) ||
		strings.Contains(strings.ToLower(t.ShortDescription), lowerQuery)
}

// SortTermsByName returns a copy of terms ordered by display name
func SortTermsByName(terms []Term) []Term {
	out := append([]Term(nil), terms...)
	sortByName(out)
	return out
}

func sortByName(terms []Term) {
	sort.SliceStable(terms, func(i, j int) bool {
		return terms[i].Name < terms[j].Name
	})
}

// TermGroup is one category header and its terms
type TermGroup struct {
	Category Category
	Terms    []Term
}

// GroupByCategory groups terms following the category enumeration order.
// Each group keeps the input order and empty groups are omitted.
func GroupByCategory(terms []Term) []TermGroup {
	var groups []TermGroup
	for _, cat := range Categories {
		var members []Term
		for _, t := range terms {
			if t.Category == cat {
				members = append(members, t)
			}
		}
		if len(members) == 0 {
			continue
		}
		groups = append(groups, TermGroup{Category: cat, Terms: members})
	}
	return groups
}
