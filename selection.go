package gitdict

// Selection tracks the term shown in the detail view
type Selection struct {
	id string
}

// NewSelection starts at DefaultTermID
func NewSelection() Selection {
	return Selection{id: DefaultTermID}
}

// Select sets the held id, even if the catalog does not contain it
func (s *Selection) Select(id string) {
	s.id = id
}

// ID returns the held id
func (s Selection) ID() string {
	return s.id
}

// Resolve returns the selected term, falling back to the first catalog entry
// when the held id is unknown. It never fails.
func (s Selection) Resolve(c *Catalog) Term {
	if c == nil {
		return Term{}
	}
	if t, ok := c.Lookup(s.id); ok {
		return t
	}
	return c.First()
}
