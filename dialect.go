package authflow

import "strings"

// Dialect identifies one of the Arabic variants the hub teaches. Values are
// stable wire names: they appear in profile metadata and in the provider's
// stored account data, so renaming one is a breaking change.
type Dialect string

const (
	DialectDarija      Dialect = "darija"
	DialectTunisian    Dialect = "tunisian"
	DialectEgyptian    Dialect = "egyptian"
	DialectSudanese    Dialect = "sudanese"
	DialectLebanese    Dialect = "lebanese"
	DialectSyrian      Dialect = "syrian"
	DialectPalestinian Dialect = "palestinian"
	DialectJordanian   Dialect = "jordanian"
	DialectIraqi       Dialect = "iraqi"
	DialectGulf        Dialect = "gulf"
	DialectHijazi      Dialect = "hijazi"
	DialectYemeni      Dialect = "yemeni"
	DialectMSA         Dialect = "msa"
)

// String returns the wire name.
func (d Dialect) String() string {
	return string(d)
}

// DefaultDialects returns the dialect set offered when the config does not
// override it, in display order.
func DefaultDialects() []Dialect {
	return []Dialect{
		DialectDarija,
		DialectTunisian,
		DialectEgyptian,
		DialectSudanese,
		DialectLebanese,
		DialectSyrian,
		DialectPalestinian,
		DialectJordanian,
		DialectIraqi,
		DialectGulf,
		DialectHijazi,
		DialectYemeni,
		DialectMSA,
	}
}

// ParseDialect normalizes s and matches it against the default dialect set.
// The boolean reports whether s named a known dialect.
func ParseDialect(s string) (Dialect, bool) {
	d := Dialect(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range DefaultDialects() {
		if d == known {
			return d, true
		}
	}
	return "", false
}

func dialectAllowed(d Dialect, allowed []Dialect) bool {
	for _, a := range allowed {
		if d == a {
			return true
		}
	}
	return false
}
