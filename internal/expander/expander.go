package expander

import (
	"regexp"
	"sort"
	"strings"
)

// Expansion is the result of widening a question before retrieval.
type Expansion struct {
	Query    string   // Question with missing synonyms appended
	DocTypes []string // Document types the question hints at, sorted
	Terms    []string // All matched synonym terms, sorted
}

// clubNames is stripped from the question before matching so the club's
// own name does not bias every lookup toward the same documents.
var clubNames = regexp.MustCompile(`\basker fotball\b|\basker fk\b|\bføyka\b`)

// synGroup is one synonym family. docType links the family to the
// classifier label it hints at; empty when the family carries no hint.
type synGroup struct {
	key     string
	docType string
	words   []string
}

var synGroups = []synGroup{
	{"billett", "billett", []string{"billett", "billetter", "sesongkort", "sesong-kort", "sesongabonnement", "foyka+", "foyka plus", "pris", "priser", "kostnad", "inngang", "adgang"}},
	{"kamp", "terminliste", []string{"kamp", "kamper", "terminliste", "kampdag", "kampdager", "avspark", "match", "program", "kampstart"}},
	{"parkering", "", []string{"parkering", "parkere", "p-plass", "p-plasser", "parkeringsplass", "easypark", "bil"}},
	{"stadion", "stadion", []string{"stadion", "arena", "føyka", "foyka", "anlegg", "tribune", "stadio", "fotballhuset"}},
	{"medlemskap", "", []string{"medlemskap", "medlem", "kontingent", "medlemskontingent", "innmelding", "bli medlem"}},
	{"kontakt", "kontakt", []string{"kontakt", "telefon", "tlf", "mail", "e-post", "email", "adresse", "epost"}},
	{"åpningstider", "", []string{"åpningstider", "åpner", "åpent", "stengt", "åpningstid"}},
	{"sponsor", "", []string{"sponsor", "sponsorer", "partner", "partnere", "marked", "bedriftsnettverk"}},
	{"samfunn", "samfunn", []string{"samfunn", "gatelag", "asker united", "community", "sammen for fotball", "aktiviteter"}},
	{"historie", "historie", []string{"historie", "historisk", "grunnlagt", "stiftet", "rekord", "legender", "fakta"}},
	{"lag", "lag", []string{"lag", "spillere", "spillertropp", "trener", "keeper", "forsvar", "midtbane", "angrep", "a-lag"}},
	{"marked", "marked", []string{"marked", "partner", "sponsor", "sponsorer", "nettverk", "synlighet"}},
	{"aktivitet", "aktivitet", []string{"aktivitet", "akademi", "camp", "kurs", "leir", "trening", "lek"}},
}

// Expand widens a question with domain synonyms and derives doc-type
// hints from the matched families. Matching runs to a fixpoint over the
// synonym table and already-present terms are never re-appended, so
// expanding an expanded question changes nothing.
func Expand(question string) Expansion {
	ql := strings.ToLower(question)
	ql = clubNames.ReplaceAllString(ql, " ")
	ql = strings.TrimSpace(ql)

	matched := make(map[string]bool)
	terms := make(map[string]struct{})
	search := ql

	// Added synonyms can trigger further families (e.g. a market
	// family adding "sponsor"); iterate until no new family matches.
	for changed := true; changed; {
		changed = false
		for _, g := range synGroups {
			if matched[g.key] {
				continue
			}
			for _, w := range g.words {
				if strings.Contains(search, w) {
					matched[g.key] = true
					changed = true
					for _, add := range g.words {
						if _, ok := terms[add]; !ok {
							terms[add] = struct{}{}
							search += " " + add
						}
					}
					break
				}
			}
		}
	}

	var docTypes []string
	seen := make(map[string]struct{})
	for _, g := range synGroups {
		if matched[g.key] && g.docType != "" {
			if _, ok := seen[g.docType]; !ok {
				seen[g.docType] = struct{}{}
				docTypes = append(docTypes, g.docType)
			}
		}
	}
	sort.Strings(docTypes)

	// Presence is checked against the unstripped question so a synonym
	// that happens to be a club name is not re-appended on every call.
	qlRaw := strings.ToLower(question)
	allTerms := make([]string, 0, len(terms))
	var missing []string
	for t := range terms {
		allTerms = append(allTerms, t)
		if !strings.Contains(qlRaw, t) {
			missing = append(missing, t)
		}
	}
	sort.Strings(allTerms)
	sort.Strings(missing)

	query := question
	if len(missing) > 0 {
		query += " " + strings.Join(missing, " ")
	}
	return Expansion{Query: query, DocTypes: docTypes, Terms: allTerms}
}
