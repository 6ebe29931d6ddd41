package validate

import (
	"regexp"
	"strings"
	"unicode"

	"insiderkg/pkg/common"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// deaccent strips combining marks so "Società" and "Societa" derive the
// same identifier.
var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

var (
	reNonWord    = regexp.MustCompile(`[^a-z0-9]+`)
	reApostrophe = regexp.MustCompile(`['\x{2019}]`)
)

// legalSuffixes are company-name tokens dropped from derived identifiers.
var legalSuffixes = map[string]bool{
	"spa": true,
	"plc": true,
	"inc": true,
	"nv":  true,
}

// slug folds a free-text value into the identifier alphabet: diacritics
// stripped, apostrophes and every other separator collapsed to single
// underscores.
func slug(s string) string {
	if folded, _, err := transform.String(deaccent, s); err == nil {
		s = folded
	}
	s = strings.ToLower(s)
	s = reApostrophe.ReplaceAllString(s, "_")
	s = reNonWord.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

// slugTokens returns the slug split into its underscore-separated tokens.
func slugTokens(s string) []string {
	sl := slug(s)
	if sl == "" {
		return nil
	}
	return strings.Split(sl, "_")
}

func dropTokens(tokens []string, drop map[string]bool) []string {
	out := tokens[:0]
	for _, t := range tokens {
		if !drop[t] {
			out = append(out, t)
		}
	}
	return out
}

// companySlug derives the company part shared by several identifier
// patterns: the name with legal suffixes omitted.
func companySlug(name string) string {
	return strings.Join(dropTokens(slugTokens(name), legalSuffixes), "_")
}

// boardType maps a free-text board description onto one of the two
// canonical board types. Descriptions mentioning statutory auditors (or
// the Italian "collegio sindacale") classify as the statutory board.
func boardType(raw string) string {
	lower := strings.ToLower(raw)
	if strings.Contains(lower, "statutory") || strings.Contains(lower, "sindac") {
		return "board_of_statutory_auditors"
	}
	return "board_of_directors"
}

// deriveID recomputes a node's canonical identifier from its label and
// key properties. It returns "" when the required properties are missing,
// in which case the extraction-time id is kept.
func deriveID(n *common.Node, companyName string) string {
	switch n.Label {
	case common.LabelPerson:
		if name := slug(n.Properties["name"]); name != "" {
			return "person_" + name
		}
	case common.LabelCompany:
		if name := companySlug(n.Properties["name"]); name != "" {
			return "company_" + name
		}
	case common.LabelBoard:
		company := companySlug(companyName)
		if company != "" {
			return boardType(n.Properties["type"]) + "_" + company
		}
	case common.LabelCommittee:
		name := strings.Join(dropTokens(slugTokens(n.Properties["name"]), map[string]bool{"committee": true}), "_")
		company := companySlug(companyName)
		if name != "" && company != "" {
			return "committee_" + name + "_" + company
		}
	case common.LabelAuditor:
		if name := strings.Join(dropTokens(slugTokens(n.Properties["name"]), legalSuffixes), "_"); name != "" {
			return "auditor_" + name
		}
	case common.LabelAddress:
		city := slug(n.Properties["city"])
		street := strings.Join(slugTokens(n.Properties["street"]), "")
		if city != "" && street != "" {
			return "address_" + city + "_" + street
		}
	}
	return ""
}
