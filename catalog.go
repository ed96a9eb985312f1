package gitdict

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed terms.yaml
var defaultTermsYAML []byte

// DefaultTermID is the term shown when nothing has been selected yet
const DefaultTermID = "repository"

// Catalog is an immutable, ordered list of glossary terms
type Catalog struct {
	terms []Term
	index map[string]int
}

var (
	defaultCatalog     *Catalog
	defaultCatalogOnce sync.Once
)

// DefaultCatalog returns the glossary embedded in the binary.
// It panics if the embedded data is invalid, which can only happen at build time.
func DefaultCatalog() *Catalog {
	defaultCatalogOnce.Do(func() {
		c, err := ParseCatalog(defaultTermsYAML)
		if err != nil {
			panic(fmt.Sprintf("embedded glossary is invalid: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// ParseCatalog decodes a YAML list of terms and validates it
func ParseCatalog(data []byte) (*Catalog, error) {
	var terms []Term
	if err := yaml.Unmarshal(data, &terms); err != nil {
		return nil, fmt.Errorf("failed to parse glossary: %w", err)
	}
	return NewCatalog(terms)
}

// NewCatalog builds a catalog from terms, keeping their order.
// Ids must be unique and non-empty and every category must be a concrete one.
func NewCatalog(terms []Term) (*Catalog, error) {
	c := &Catalog{
		terms: make([]Term, len(terms)),
		index: make(map[string]int, len(terms)),
	}
	for i, t := range terms {
		if t.ID == "" {
			return nil, fmt.Errorf("term %d has no id", i)
		}
		if t.Name == "" {
			return nil, fmt.Errorf("term %q has no name", t.ID)
		}
		if !t.Category.Valid() {
			return nil, fmt.Errorf("term %q has unknown category %q", t.ID, t.Category)
		}
		if _, dup := c.index[t.ID]; dup {
			return nil, fmt.Errorf("duplicate term id %q", t.ID)
		}
		c.index[t.ID] = i
		c.terms[i] = cloneTerm(t)
	}
	return c, nil
}

// Terms returns a copy of all terms in catalog order
func (c *Catalog) Terms() []Term {
	out := make([]Term, len(c.terms))
	for i, t := range c.terms {
		out[i] = cloneTerm(t)
	}
	return out
}

// Len returns the number of terms
func (c *Catalog) Len() int {
	return len(c.terms)
}

// Lookup finds a term by id
func (c *Catalog) Lookup(id string) (Term, bool) {
	i, ok := c.index[id]
	if !ok {
		return Term{}, false
	}
	return cloneTerm(c.terms[i]), true
}

// First returns the first term, or the zero Term for an empty catalog
func (c *Catalog) First() Term {
	if len(c.terms) == 0 {
		return Term{}
	}
	return cloneTerm(c.terms[0])
}

// Related returns the terms referenced by t in catalog order.
// References to ids that are not in the catalog are skipped.
func (c *Catalog) Related(t Term) []Term {
	if len(t.RelatedTerms) == 0 {
		return nil
	}
	wanted := make(map[string]bool, len(t.RelatedTerms))
	for _, id := range t.RelatedTerms {
		wanted[id] = true
	}
	var related []Term
	for _, term := range c.terms {
		if wanted[term.ID] {
			related = append(related, cloneTerm(term))
		}
	}
	return related
}

// CategoryCount returns the number of distinct categories in use
func (c *Catalog) CategoryCount() int {
	seen := make(map[Category]bool)
	for _, t := range c.terms {
		seen[t.Category] = true
	}
	return len(seen)
}

func cloneTerm(t Term) Term {
	if t.Examples != nil {
		t.Examples = append([]string(nil), t.Examples...)
	}
	if t.RelatedTerms != nil {
		t.RelatedTerms = append([]string(nil), t.RelatedTerms...)
	}
	return t
}
