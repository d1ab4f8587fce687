package kb

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoader_Load(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "billetter.md", "# Billetter og sesongkort\n\nEn voksenbillett koster 150 kroner.\n")
	writeFile(t, dir, "stadion/foyka.md", "## Føyka stadion\n\nFøyka har plass til 2200 tilskuere.\n")
	writeFile(t, dir, "kontakt.txt", "Telefon: 66 90 11 22\nE-post: post@askerfotball.no\n")
	writeFile(t, dir, "notes.json", "{\"ignored\": true}")

	docs, err := NewLoader(dir).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("Load() returned %d documents, want 3", len(docs))
	}

	// Path-sorted order keeps rebuilds deterministic.
	wantPaths := []string{"billetter.md", "kontakt.txt", "stadion/foyka.md"}
	for i, want := range wantPaths {
		if docs[i].Path != want {
			t.Errorf("docs[%d].Path = %q, want %q", i, docs[i].Path, want)
		}
	}

	if docs[0].Title != "Billetter og sesongkort" {
		t.Errorf("markdown title = %q, want first heading", docs[0].Title)
	}
	if !strings.Contains(docs[0].Text, "150 kroner") {
		t.Errorf("markdown text = %q, missing body content", docs[0].Text)
	}
	if docs[1].Title != "kontakt" {
		t.Errorf("txt title = %q, want filename stem", docs[1].Title)
	}
	if docs[2].Title != "Føyka stadion" {
		t.Errorf("h2 fallback title = %q, want %q", docs[2].Title, "Føyka stadion")
	}
}

func TestLoader_Load_MissingDir(t *testing.T) {
	docs, err := NewLoader(filepath.Join(t.TempDir(), "nope")).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() on missing dir should not error, got %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("Load() on missing dir returned %d documents, want 0", len(docs))
	}
}

func TestLoader_Load_SkipsEmptyAndCodeOnly(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "empty.md", "")
	writeFile(t, dir, "code.md", "```\nfmt.Println(\"ikke tekst\")\n```\n")
	writeFile(t, dir, "real.md", "# Terminliste\n\nSerieåpning mot Skeid 1. april.\n")

	docs, err := NewLoader(dir).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("Load() returned %d documents, want 1", len(docs))
	}
	if docs[0].Path != "real.md" {
		t.Errorf("kept document = %q, want real.md", docs[0].Path)
	}
	if strings.Contains(docs[0].Text, "Println") {
		t.Error("code block content leaked into flattened text")
	}
}

func TestTitleFromFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"om-klubben.md", "om klubben"},
		{"spiller_tropp.txt", "spiller tropp"},
		{"a.md", "a"},
	}
	for _, tt := range tests {
		if got := titleFromFilename(tt.in); got != tt.want {
			t.Errorf("titleFromFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
