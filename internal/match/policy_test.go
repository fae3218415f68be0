package match

import (
	"testing"

	"github.com/sisolabs/go-community-backend/internal/domain"
)

func entry(userID, language string) domain.QueueEntry {
	return domain.QueueEntry{UserID: userID, Language: language}
}

func TestSelect_EmptyOrSoloQueue_NoMatch(t *testing.T) {
	if _, ok := Select(nil, "u1", "Te", true); ok {
		t.Fatalf("empty queue must not match")
	}
	if _, ok := Select([]domain.QueueEntry{entry("u1", "Te")}, "u1", "Te", true); ok {
		t.Fatalf("solo queue must not match")
	}
}

func TestSelect_SameLanguage_PicksEarliest(t *testing.T) {
	queue := []domain.QueueEntry{
		entry("a", "Ta"),
		entry("b", "Te"),
		entry("me", "Te"),
		entry("c", "Te"),
	}
	p, ok := Select(queue, "me", "Te", false)
	if !ok {
		t.Fatalf("expected a match")
	}
	if p.UserID != "b" {
		t.Fatalf("partner = %q; want b (earliest same-language)", p.UserID)
	}
}

func TestSelect_ConcreteStrict_NoSameLanguage_NoMatch(t *testing.T) {
	queue := []domain.QueueEntry{
		entry("a", "Ta"),
		entry("me", "Te"),
		entry("b", "Hi"),
	}
	if p, ok := Select(queue, "me", "Te", false); ok {
		t.Fatalf("strict search must not pair cross-language; got %q", p.UserID)
	}
}

func TestSelect_ConcreteWithFallback_PrefersSameThenConcrete(t *testing.T) {
	// Same-language candidate wins even when an older cross-language one exists.
	queue := []domain.QueueEntry{
		entry("a", "Ta"),
		entry("b", "Te"),
		entry("me", "Te"),
	}
	p, ok := Select(queue, "me", "Te", true)
	if !ok || p.UserID != "b" {
		t.Fatalf("expected same-language partner b; got %v ok=%v", p, ok)
	}

	// Without a same-language candidate, the earliest concrete one is chosen.
	queue = []domain.QueueEntry{
		entry("w", "any"),
		entry("a", "Ta"),
		entry("me", "Te"),
	}
	p, ok = Select(queue, "me", "Te", true)
	if !ok || p.UserID != "a" {
		t.Fatalf("expected concrete partner a over wildcard; got %v ok=%v", p, ok)
	}
}

func TestSelect_Wildcard_PrefersConcretePartner(t *testing.T) {
	queue := []domain.QueueEntry{
		entry("w", "any"),
		entry("a", "Hi"),
		entry("me", "any"),
	}
	p, ok := Select(queue, "me", LanguageAny, true)
	if !ok || p.UserID != "a" {
		t.Fatalf("wildcard should prefer concrete partner a; got %v ok=%v", p, ok)
	}
}

func TestSelect_WildcardOnlyQueue_PairsWildcards(t *testing.T) {
	queue := []domain.QueueEntry{
		entry("w1", "any"),
		entry("me", "any"),
	}
	p, ok := Select(queue, "me", LanguageAny, true)
	if !ok || p.UserID != "w1" {
		t.Fatalf("expected any-any pairing with w1; got %v ok=%v", p, ok)
	}
}

func TestSelect_NeverPairsSelf(t *testing.T) {
	queue := []domain.QueueEntry{
		entry("me", "Te"),
		entry("me", "Te"), // duplicate row for the same user
	}
	if p, ok := Select(queue, "me", "Te", true); ok {
		t.Fatalf("must never pair a user with themselves; got %q", p.UserID)
	}
}

func TestValidLanguage(t *testing.T) {
	for _, code := range []string{"Te", "Ta", "En", "Hi", "Ka", "any"} {
		if !ValidLanguage(code) {
			t.Errorf("ValidLanguage(%q) = false; want true", code)
		}
	}
	for _, code := range []string{"", "te", "XX", "Any"} {
		if ValidLanguage(code) {
			t.Errorf("ValidLanguage(%q) = true; want false", code)
		}
	}
}

func TestLanguageName(t *testing.T) {
	if got := LanguageName("Te"); got != "Telugu" {
		t.Fatalf("LanguageName(Te) = %q", got)
	}
	if got := LanguageName("zz"); got != "zz" {
		t.Fatalf("unknown code should pass through, got %q", got)
	}
}
