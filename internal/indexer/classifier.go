package indexer

import "strings"

// DefaultDocType is assigned when no rule matches.
const DefaultDocType = "annet"

// classifyPrefix bounds how much document text the classifier looks at.
const classifyPrefix = 400

// docRule maps a document type to its trigger phrases. Rules are
// evaluated in order and the first match wins, so more specific
// categories must come before broader ones.
type docRule struct {
	docType  string
	triggers []string
}

var docRules = []docRule{
	{"billett", []string{"billett", "billetter", "sesongkort", "foyka+", "foyka plus", "pris", "kostnad", "inngang", "adgang"}},
	{"terminliste", []string{"terminliste", "kamp", "kamper", "resultat", "resultater", "tabell", "serie", "postnord"}},
	{"kontakt", []string{"kontakt", "telefon", "tlf", "mail", "e-post", "epost", "adresse", "kirkeveien", "postadresse"}},
	{"samfunn", []string{"samfunn", "gatelag", "asker united", "hæppe", "brobygger", "samfunnslag", "aktivt lokalsamfunn", "sammen for fotball"}},
	{"historie", []string{"historie", "historisk", "stiftet", "grunnlagt", "rekord", "adelskalender", "fakta", "spillere", "topp", "legender"}},
	{"stadion", []string{"stadion", "føyka", "foyka", "fotballhuset", "tribune", "kapasitet", "parkering", "vip", "medie"}},
	{"lag", []string{"a-lag", "spillere", "keeper", "forsvar", "midtbane", "angrep", "trener", "spillertropp", "lag"}},
	{"marked", []string{"marked", "partner", "sponsor", "synlighet", "nettverk", "sponsoravtale"}},
	{"aktivitet", []string{"akademi", "camp", "obos", "trening", "aktivitet", "kurs", "leir"}},
}

// Classify assigns a document-type label from the document name and the
// beginning of its text. Matching is case-insensitive substring
// matching over an ordered rule table; the first matching rule wins and
// DefaultDocType is returned when nothing matches. Pure function: the
// same input always yields the same label.
func Classify(name, text string) string {
	runes := []rune(text)
	if len(runes) > classifyPrefix {
		runes = runes[:classifyPrefix]
	}
	low := strings.ToLower(name + " " + string(runes))
	for _, rule := range docRules {
		for _, t := range rule.triggers {
			if strings.Contains(low, t) {
				return rule.docType
			}
		}
	}
	return DefaultDocType
}
