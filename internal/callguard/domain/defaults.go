package domain

const (
	defaultLabelIntl  = "Démarchage téléphonique"
	defaultLabelLocal = "Démarchage téléphonique (format local)"
)

// defaultBlocks are the number blocks reserved for telemarketing in France.
var defaultBlocks = []string{"162", "163", "270", "271", "377", "378", "424", "425"}

// DefaultRules returns the built-in rule set: every telemarketing block in its
// international form, followed by the same blocks in local form. All rules are
// enabled and unassigned.
func DefaultRules(createdAt int64) []PrefixRule {
	out := make([]PrefixRule, 0, 2*len(defaultBlocks))
	for _, b := range defaultBlocks {
		out = append(out, PrefixRule{Pattern: intlCountryCode + b, Label: defaultLabelIntl, Enabled: true, CreatedAt: createdAt})
	}
	for _, b := range defaultBlocks {
		out = append(out, PrefixRule{Pattern: "0" + b, Label: defaultLabelLocal, Enabled: true, CreatedAt: createdAt})
	}
	return out
}
