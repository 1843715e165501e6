package utils

import "testing"

var supportedLocales = []string{"en", "es"}

func TestDetermineLocale_ExplicitWins(t *testing.T) {
	got := DetermineLocale("es-MX", "en", "en_US.UTF-8", supportedLocales, "en")
	if got != "es" {
		t.Fatalf("want es, got %s", got)
	}
}

func TestDetermineLocale_LanguageList(t *testing.T) {
	got := DetermineLocale("", "fr:es:en", "en_US.UTF-8", supportedLocales, "en")
	if got != "es" {
		t.Fatalf("want es, got %s", got)
	}
}

func TestDetermineLocale_Lang(t *testing.T) {
	got := DetermineLocale("", "", "es_ES.UTF-8", supportedLocales, "en")
	if got != "es" {
		t.Fatalf("want es, got %s", got)
	}
}

func TestDetermineLocale_DefaultFallback(t *testing.T) {
	got := DetermineLocale("", "", "C.UTF-8", supportedLocales, "en")
	if got != "en" {
		t.Fatalf("want en fallback, got %s", got)
	}
	if got := DetermineLocale("fr", "", "", supportedLocales, "de"); got != "en" {
		t.Fatalf("want first supported, got %s", got)
	}
}
