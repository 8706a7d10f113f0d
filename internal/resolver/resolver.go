// Package resolver normalizes free-form item names into the lookup candidates
// a snapshot store should try, in order. The auction house and the bazaar use
// different casing and separator conventions for the same conceptual item, so
// each store runs the same candidate sequence against its own keys.
package resolver

import "strings"

// EnchantmentPrefix marks product keys where underscores are structural
// (ENCHANTMENT_ULTIMATE_WISE_5) rather than word separators, so they must
// never be rewritten to spaces.
const EnchantmentPrefix = "ENCHANTMENT_"

// Candidate is one lookup attempt. Key is the name to match; Fold means the
// comparison should be case-insensitive.
type Candidate struct {
	Key  string
	Fold bool
}

// Candidates returns the ordered lookup attempts for a raw item name:
// exact, underscores-as-spaces, case-insensitive, case-insensitive with
// underscores as spaces. The spaced variants are skipped for names without
// underscores and for enchantment keys.
func Candidates(name string) []Candidate {
	out := []Candidate{{Key: name}}

	spaced := ""
	if strings.Contains(name, "_") && !strings.HasPrefix(name, EnchantmentPrefix) {
		spaced = strings.ReplaceAll(name, "_", " ")
		out = append(out, Candidate{Key: spaced})
	}

	out = append(out, Candidate{Key: name, Fold: true})
	if spaced != "" {
		out = append(out, Candidate{Key: spaced, Fold: true})
	}
	return out
}
