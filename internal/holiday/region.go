package holiday

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// RegionFilter drops regional holidays that do not apply to the configured regions
type RegionFilter struct {
	ExcludeRegional bool     `mapstructure:"exclude_regional"`
	Codes           []string `mapstructure:"codes"` // exact codes or glob patterns, e.g. "NZ-W*"
}

// regionMatcher is a compiled RegionFilter
type regionMatcher struct {
	exclude  bool
	patterns []glob.Glob
}

// compile turns the configured codes into matchers. Codes are case-insensitive.
func (f RegionFilter) compile() (*regionMatcher, error) {
	m := &regionMatcher{exclude: f.ExcludeRegional}
	for _, code := range f.Codes {
		code = strings.ToUpper(strings.TrimSpace(code))
		if code == "" {
			continue
		}
		g, err := glob.Compile(code)
		if err != nil {
			return nil, fmt.Errorf("%w: region code %q: %v", ErrInvalidConfiguration, code, err)
		}
		m.patterns = append(m.patterns, g)
	}
	return m, nil
}

// Allows reports whether the filter keeps the entry
func (f RegionFilter) Allows(e Entry) bool {
	m, err := f.compile()
	if err != nil {
		return e.Global || !f.ExcludeRegional
	}
	return m.allows(e)
}

func (m *regionMatcher) allows(e Entry) bool {
	if !m.exclude || e.Global {
		return true
	}
	for _, region := range e.Regions {
		region = strings.ToUpper(region)
		for _, p := range m.patterns {
			if p.Match(region) {
				return true
			}
		}
	}
	return false
}

// Validate checks that every code compiles as a pattern
func (f RegionFilter) Validate() error {
	_, err := f.compile()
	return err
}
