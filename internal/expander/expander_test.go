package expander

import (
	"reflect"
	"strings"
	"testing"
)

func TestExpand_TicketQuestion(t *testing.T) {
	got := Expand("Hva koster billetter til hjemmekamp?")

	if !strings.Contains(got.Query, "sesongkort") {
		t.Errorf("Query = %q, want ticket synonyms appended", got.Query)
	}
	if !strings.HasPrefix(got.Query, "Hva koster billetter til hjemmekamp?") {
		t.Errorf("Query = %q, must keep the original question first", got.Query)
	}
	found := false
	for _, dt := range got.DocTypes {
		if dt == "billett" {
			found = true
		}
	}
	if !found {
		t.Errorf("DocTypes = %v, want billett hinted", got.DocTypes)
	}
}

func TestExpand_NoMatch(t *testing.T) {
	clean := Expand("Hvordan er været i dag?")
	if clean.Query != "Hvordan er været i dag?" {
		t.Errorf("Query = %q, want unchanged when nothing matches", clean.Query)
	}
	if len(clean.DocTypes) != 0 || len(clean.Terms) != 0 {
		t.Errorf("DocTypes = %v, Terms = %v, want empty", clean.DocTypes, clean.Terms)
	}
}

func TestExpand_Idempotent(t *testing.T) {
	questions := []string{
		"Hva koster billetter?",
		"Når er neste kamp på stadion?",
		"Hvordan blir jeg medlem?",
		"Hvem er sponsorene til klubben?",
		"Hvor kan jeg parkere?",
	}
	for _, q := range questions {
		t.Run(q, func(t *testing.T) {
			once := Expand(q)
			twice := Expand(once.Query)
			if twice.Query != once.Query {
				t.Errorf("Expand(Expand(q)).Query = %q, want %q", twice.Query, once.Query)
			}
			if !reflect.DeepEqual(twice.Terms, once.Terms) {
				t.Errorf("Expand(Expand(q)).Terms = %v, want %v", twice.Terms, once.Terms)
			}
			if !reflect.DeepEqual(twice.DocTypes, once.DocTypes) {
				t.Errorf("Expand(Expand(q)).DocTypes = %v, want %v", twice.DocTypes, once.DocTypes)
			}
		})
	}
}

func TestExpand_StripsClubName(t *testing.T) {
	got := Expand("Hvor ligger Asker Fotball?")

	// The club name alone must not pull in any synonym family.
	if len(got.Terms) != 0 {
		t.Errorf("Terms = %v, want none from the club name alone", got.Terms)
	}

	// Stripping is also why "føyka" by itself yields no stadium hint.
	bare := Expand("føyka")
	for _, dt := range bare.DocTypes {
		if dt == "stadion" {
			t.Error("club ground name alone should not hint stadion")
		}
	}
}

func TestExpand_TransitiveFamilies(t *testing.T) {
	// "synlighet" only appears in the market family, whose words
	// include "sponsor"; the sponsor family must then join too.
	got := Expand("Hva får vi i synlighet som partner?")

	hasBedrift := false
	for _, term := range got.Terms {
		if term == "bedriftsnettverk" {
			hasBedrift = true
		}
	}
	if !hasBedrift {
		t.Errorf("Terms = %v, want the sponsor family pulled in transitively", got.Terms)
	}

	// And the expansion must still be stable.
	twice := Expand(got.Query)
	if twice.Query != got.Query {
		t.Errorf("transitive expansion not idempotent: %q vs %q", twice.Query, got.Query)
	}
}

func TestExpand_SortedOutput(t *testing.T) {
	got := Expand("billetter og kamper på stadion")
	for i := 1; i < len(got.Terms); i++ {
		if got.Terms[i-1] > got.Terms[i] {
			t.Errorf("Terms not sorted: %v", got.Terms)
		}
	}
	for i := 1; i < len(got.DocTypes); i++ {
		if got.DocTypes[i-1] > got.DocTypes[i] {
			t.Errorf("DocTypes not sorted: %v", got.DocTypes)
		}
	}
}
