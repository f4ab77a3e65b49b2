package tenancy

import "strings"

// ReservedSet is the set of infrastructure subdomains that must never
// resolve to a tenant, even if a same-named tenant row exists. Loaded once
// at startup, read-only afterwards.
type ReservedSet struct {
	slugs map[string]struct{}
}

// NewReservedSet builds the set; membership is case-insensitive.
func NewReservedSet(slugs []string) *ReservedSet {
	set := make(map[string]struct{}, len(slugs))
	for _, s := range slugs {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			set[s] = struct{}{}
		}
	}
	return &ReservedSet{slugs: set}
}

// Contains reports whether the slug is reserved.
func (r *ReservedSet) Contains(slug string) bool {
	_, ok := r.slugs[strings.ToLower(slug)]
	return ok
}
