package fusion

import (
	"regexp"
	"sort"
	"strings"

	"insiderkg/pkg/common"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
)

var (
	rePunct      = regexp.MustCompile(`[^\w\s]`)
	reWhitespace = regexp.MustCompile(`\s+`)
)

// Normalize canonicalizes text for comparison: lowercase, punctuation to
// spaces, whitespace runs collapsed, trimmed.
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = rePunct.ReplaceAllString(s, " ")
	s = reWhitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// comparisonKey derives the label-specific normalized text used to decide
// whether two drafts describe the same entity. Entities identified by name
// compare on name, boards compare on their type, everything else on the
// concatenation of all property values.
func comparisonKey(n *common.Node) string {
	switch n.Label {
	case common.LabelPerson, common.LabelCompany, common.LabelCommittee, common.LabelAuditor:
		return Normalize(n.Properties["name"])
	case common.LabelBoard:
		return Normalize(n.Properties["type"])
	default:
		keys := make([]string, 0, len(n.Properties))
		for k := range n.Properties {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var values []string
		for _, k := range keys {
			if v := n.Properties[k]; v != "" {
				values = append(values, v)
			}
		}
		return Normalize(strings.Join(values, " "))
	}
}

// matchScore scores a draft against an existing canonical node on a 0-100
// scale: the token-order-insensitive similarity of the ids dominates, the
// similarity of the comparison keys corrects for id wording drift.
func matchScore(draftID, draftKey, canonicalID, canonicalKey string) int {
	idScore := fuzzy.TokenSortRatio(Normalize(draftID), Normalize(canonicalID))

	normScore := 0
	if draftKey != "" && canonicalKey != "" {
		normScore = fuzzy.TokenSetRatio(draftKey, canonicalKey)
	}

	combined := 0.7*float64(idScore) + 0.3*float64(normScore)
	return int(combined + 0.5)
}

// qualifierTerms are role qualifiers ignored when comparing edge property
// values: "Independent Director" and "Director" describe the same seat.
var qualifierTerms = []string{
	"non-independent",
	"non-executive",
	"independent",
	"executive",
}

func stripQualifiers(s string) string {
	lower := strings.ToLower(s)
	for _, term := range qualifierTerms {
		lower = strings.ReplaceAll(lower, term, " ")
	}
	return Normalize(lower)
}

// valuesMatch reports whether two edge property values describe the same
// fact: normalized equality, equality after stripping qualifier terms, or
// high fuzzy token-set similarity.
func valuesMatch(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	if na == nb {
		return true
	}
	if stripQualifiers(a) == stripQualifiers(b) {
		return true
	}
	return fuzzy.TokenSetRatio(na, nb) >= edgeValueSimilarity
}
