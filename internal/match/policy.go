// Package match implements the call matchmaking policy: a pure decision
// procedure that selects a partner for a user from a snapshot of the waiting
// queue. The policy holds no state and performs no I/O, which keeps it
// trivially testable against simulated queue snapshots.
package match

import "github.com/sisolabs/go-community-backend/internal/domain"

// LanguageAny is the wildcard language code. A user searching with
// LanguageAny has no concrete language preference.
const LanguageAny = "any"

// Select picks a partner for userID from queue, which must be ordered by
// creation time ascending (oldest first) and contain only waiting entries.
//
// Selection rules, first matching rule wins, scanning in queue order:
//  1. When language is a concrete code (not "any"): the earliest other entry
//     with the same language. If none exists and allowAny is false, there is
//     no match at all.
//  2. When allowAny is true: the earliest other entry with a concrete
//     (non-"any") language, preferring a concrete-language partner over a
//     fellow wildcard.
//  3. Fallback: the earliest other entry regardless of language.
//
// A match requires at least two entries in the snapshot (the user plus one
// candidate). The boolean result is false when no partner exists.
func Select(queue []domain.QueueEntry, userID, language string, allowAny bool) (*domain.QueueEntry, bool) {
	if len(queue) < 2 {
		return nil, false
	}

	if language != LanguageAny {
		if e := firstOther(queue, userID, func(e *domain.QueueEntry) bool {
			return e.Language == language
		}); e != nil {
			return e, true
		}
		// Strict preference: without the opt-in there is nobody eligible.
		if !allowAny {
			return nil, false
		}
	}

	if allowAny {
		if e := firstOther(queue, userID, func(e *domain.QueueEntry) bool {
			return e.Language != LanguageAny
		}); e != nil {
			return e, true
		}
	}

	// Any-any pairing.
	if e := firstOther(queue, userID, nil); e != nil {
		return e, true
	}
	return nil, false
}

// firstOther returns the earliest entry that is not userID's own and that
// satisfies pred (a nil pred accepts every entry).
func firstOther(queue []domain.QueueEntry, userID string, pred func(*domain.QueueEntry) bool) *domain.QueueEntry {
	for i := range queue {
		e := &queue[i]
		if e.UserID == userID {
			continue
		}
		if pred == nil || pred(e) {
			return e
		}
	}
	return nil
}
