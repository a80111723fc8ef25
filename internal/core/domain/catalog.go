package domain

// TagRule describes one tag of the vocabulary.
type TagRule struct {
	Tag          string   `json:"tag" yaml:"tag"`
	MainCategory string   `json:"hovedkategori" yaml:"main_category"`
	SubCategory  string   `json:"underkategori,omitempty" yaml:"sub_category,omitempty"`
	Description  string   `json:"description,omitempty" yaml:"description,omitempty"`
	Examples     []string `json:"examples,omitempty" yaml:"examples,omitempty"`
	DisplayName  string   `json:"display_name" yaml:"display_name"`
}

// Catalog is the ordered tag vocabulary. It is read-only after construction.
type Catalog struct {
	rules []TagRule
	index map[string]int
}

// NewCatalog builds a catalog. Later rules with a duplicate tag replace earlier ones
// but keep the first position.
func NewCatalog(rules []TagRule) *Catalog {
	c := &Catalog{
		rules: make([]TagRule, 0, len(rules)),
		index: make(map[string]int, len(rules)),
	}

	for _, r := range rules {
		if r.Tag == "" {
			continue
		}

		if pos, ok := c.index[r.Tag]; ok {
			c.rules[pos] = r

			continue
		}

		c.index[r.Tag] = len(c.rules)
		c.rules = append(c.rules, r)
	}

	return c
}

// Has reports whether tag is part of the vocabulary.
func (c *Catalog) Has(tag string) bool {
	if c == nil {
		return false
	}

	_, ok := c.index[tag]

	return ok
}

// Rule returns the rule for tag.
func (c *Catalog) Rule(tag string) (TagRule, bool) {
	if c == nil {
		return TagRule{}, false
	}

	pos, ok := c.index[tag]
	if !ok {
		return TagRule{}, false
	}

	return c.rules[pos], true
}

// Tags returns the tag names in catalog order.
func (c *Catalog) Tags() []string {
	if c == nil {
		return nil
	}

	tags := make([]string, len(c.rules))
	for i, r := range c.rules {
		tags[i] = r.Tag
	}

	return tags
}

// Rules returns a copy of the rules in catalog order.
func (c *Catalog) Rules() []TagRule {
	if c == nil {
		return nil
	}

	out := make([]TagRule, len(c.rules))
	copy(out, c.rules)

	return out
}

// Len returns the number of tags.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}

	return len(c.rules)
}
