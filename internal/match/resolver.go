package match

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"time"

	"gymops/internal/cache"
)

// Policy selects what callers do with a resolution miss. Commission and EFT
// attribution drops unresolved names; workout and reprogram counting buckets
// them under OtherBucket. The choice is made per call site, never inside
// the resolver.
type Policy int

const (
	PolicyDrop Policy = iota
	PolicyBucketOther
)

// OtherBucket is the label unresolved names fall into under PolicyBucketOther.
const OtherBucket = "Other"

// DefaultThreshold is the minimum score a roster entry must reach before a
// fuzzy match is accepted. Below it the caller gets the normalized input
// back, signalling "unresolved".
const DefaultThreshold = 15

// Roster is an ordered list of canonical staff names. Order matters: when
// two entries score identically the first one wins, so providers must return
// a stable order.
type Roster struct {
	Names   []string
	version string
}

// NewRoster builds a roster and fingerprints it for cache keying.
func NewRoster(names []string) Roster {
	sum := md5.New()
	for _, n := range names {
		sum.Write([]byte(n))
		sum.Write([]byte{0})
	}
	return Roster{Names: names, version: hex.EncodeToString(sum.Sum(nil))[:8]}
}

type resolution struct {
	name    string
	matched bool
}

// Resolver scores normalized candidate names against a roster. Resolution
// is deterministic; the cache is a memoization of (name, roster version)
// pairs, not a correctness requirement.
type Resolver struct {
	Threshold int
	cache     *cache.LRUCache[resolution]
}

// NewResolver returns a resolver with the compatibility threshold and a
// small memoization cache.
func NewResolver() *Resolver {
	return &Resolver{
		Threshold: DefaultThreshold,
		cache:     cache.NewLRUCache[resolution](512, 10*time.Minute),
	}
}

// Resolve maps a free-text name to the best-matching roster entry. The
// second return reports whether a roster entry cleared the threshold; on a
// miss the normalized input comes back unchanged. Empty input resolves to
// ("", false).
func (r *Resolver) Resolve(raw string, roster Roster) (string, bool) {
	n := NormalizeName(raw)
	if n == "" {
		return "", false
	}

	var key string
	if r.cache != nil {
		key = roster.version + "\x00" + n
		if res, ok := r.cache.Get(key); ok {
			return res.name, res.matched
		}
	}

	name, matched := resolve(n, roster.Names, r.Threshold)
	if r.cache != nil {
		r.cache.Set(key, resolution{name: name, matched: matched})
	}
	return name, matched
}

// Attribute applies an unmatched-bucket policy on top of Resolve. Under
// PolicyDrop a miss returns ("", false); under PolicyBucketOther it returns
// (OtherBucket, true) so the caller still gets a bucket to count into.
func (r *Resolver) Attribute(raw string, roster Roster, policy Policy) (string, bool) {
	name, matched := r.Resolve(raw, roster)
	if matched {
		return name, true
	}
	if policy == PolicyBucketOther {
		return OtherBucket, true
	}
	return "", false
}

// resolve is the scoring core. The point values are load-bearing: attribution
// data accumulated under this exact scheme must keep resolving the same way.
func resolve(normalized string, official []string, threshold int) (string, bool) {
	for _, o := range official {
		if strings.ToLower(o) == normalized {
			return o, true
		}
	}

	parts := strings.Fields(normalized)
	bestScore := 0
	bestMatch := ""

	for _, officialName := range official {
		officialParts := strings.Fields(strings.ToLower(officialName))
		score := 0
		allPartsFound := true

		for _, part := range parts {
			if len(part) < 2 {
				continue
			}
			partFound := false
			for _, op := range officialParts {
				if part == op {
					score += 10
					partFound = true
					break
				}
				if len(part) == 1 && strings.HasPrefix(op, part) {
					score += 5
					partFound = true
					break
				}
				if len(part) >= 3 && strings.HasPrefix(op, part) {
					score += 7
					partFound = true
					break
				}
			}
			if !partFound && len(part) >= 3 {
				allPartsFound = false
			}
		}

		// Surname heuristic: matching last tokens outweigh everything else.
		if len(parts) > 0 && len(officialParts) > 0 &&
			parts[len(parts)-1] == officialParts[len(officialParts)-1] {
			score += 15
		}

		if allPartsFound || score > 0 {
			reverseMatch := true
			for _, op := range officialParts {
				if len(op) == 1 {
					continue
				}
				found := false
				for _, part := range parts {
					if op == part ||
						(len(part) >= 3 && strings.HasPrefix(op, part)) ||
						(len(op) >= 3 && strings.HasPrefix(part, op)) {
						found = true
						break
					}
				}
				if !found && len(op) >= 3 {
					reverseMatch = false
				}
			}
			if reverseMatch {
				score += 5
			}
		}

		// Strictly-greater keeps ties resolving to the first roster entry
		// in iteration order.
		if score > bestScore {
			bestScore = score
			bestMatch = officialName
		}
	}

	if bestScore >= threshold && bestMatch != "" {
		return bestMatch, true
	}
	return normalized, false
}
