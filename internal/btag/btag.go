// internal/btag/btag.go

// Package btag handles battle tags, the platform identity strings players
// register with ("Name#1234").
package btag

import (
	"fmt"
	"strings"
)

// Btag is a parsed battle tag.
type Btag struct {
	Name          string
	Discriminator string
}

// Parse splits a raw tag into name and discriminator. Anything without
// exactly one '#' separating two non-empty halves is rejected.
func Parse(s string) (Btag, error) {
	name, disc, ok := strings.Cut(strings.TrimSpace(s), "#")
	if !ok || name == "" || disc == "" || strings.Contains(disc, "#") {
		return Btag{}, fmt.Errorf("btag: %q is not of the form Name#1234", s)
	}
	return Btag{Name: name, Discriminator: disc}, nil
}

// String returns the tag as players write it.
func (b Btag) String() string {
	return b.Name + "#" + b.Discriminator
}

// ForAPI returns the tag formatted for the stats API path.
func (b Btag) ForAPI() string {
	return b.Name + "-" + b.Discriminator
}
