// internal/service/resolver.go
package service

import (
	"context"
	"log"
	"strings"
	"time"
	"unicode"
)

// ResolutionKind tags the outcome of a contact resolution.
type ResolutionKind int

const (
	// ResolutionNotFound means every source was exhausted (or required inputs
	// were missing) and no usable email exists.
	ResolutionNotFound ResolutionKind = iota
	// ResolutionFound carries a usable email address.
	ResolutionFound
	// ResolutionCooldown means a usable contact exists but was reached within
	// the cooldown window and must not be re-contacted yet.
	ResolutionCooldown
)

// Resolution is the tagged result of Resolver.Resolve. Callers must treat
// Cooldown and NotFound as distinct skip reasons.
type Resolution struct {
	Kind  ResolutionKind
	Email string
}

// DirectoryContact is the CRM's view of an agent.
type DirectoryContact struct {
	Email          string
	LastOutreachAt *time.Time
}

// ContactUpsert is the contact payload synced to the CRM after a send.
type ContactUpsert struct {
	Email            string
	FirstName        string
	LastName         string
	FullName         string
	Phone            string
	City             string
	State            string
	PropertyAddress  string
	PropertyValue    float64
	EstimatedRevenue float64
	LastOutreachAt   time.Time
}

// ContactDirectory is the CRM collaborator. Lookups return (nil, nil) when no
// contact matches.
type ContactDirectory interface {
	FindByPhone(ctx context.Context, phoneVariants []string) (*DirectoryContact, error)
	FindByEmail(ctx context.Context, email string) (*DirectoryContact, error)
	UpsertContact(ctx context.Context, c ContactUpsert) error
}

// EnrichedEmail is one email candidate from the enrichment provider.
type EnrichedEmail struct {
	Address   string
	Validated bool
}

// EnrichedPerson is one candidate identity from the enrichment provider.
type EnrichedPerson struct {
	Emails        []EnrichedEmail
	Phones        []string
	Cities        []string
	IdentityScore float64
}

// Enricher is the external identity-enrichment collaborator.
type Enricher interface {
	Enrich(ctx context.Context, firstName, lastName, state string) ([]EnrichedPerson, error)
}

// PastContactStore searches prior campaigns for an email already used.
type PastContactStore interface {
	FindPastEmailByPhone(phone string) (string, error)
}

// DefaultCooldown is the minimum interval between sends to the same contact.
const DefaultCooldown = 30 * 24 * time.Hour

// Resolver turns an agent's name/phone/locality into an email decision by
// consulting local campaign history, the CRM, and the enrichment provider in
// order. A failure in any single source is treated as "no result from this
// source" so the chain can continue.
type Resolver struct {
	History   PastContactStore
	Directory ContactDirectory
	Enricher  Enricher
	Cooldown  time.Duration
}

func (r *Resolver) cooldown() time.Duration {
	if r.Cooldown > 0 {
		return r.Cooldown
	}
	return DefaultCooldown
}

func (r *Resolver) Resolve(ctx context.Context, name, phone, city, state string) Resolution {
	if name == "" || phone == "" {
		log.Println("missing agent name or phone, skipping lookup")
		return Resolution{Kind: ResolutionNotFound}
	}

	// 1. Local history: a real email we already sent to is trusted as-is and
	// bypasses the cooldown check.
	if email, err := r.History.FindPastEmailByPhone(phone); err != nil {
		log.Println("⚠️ error checking campaign history for existing contact:", err)
	} else if email != "" {
		log.Println("found existing email in campaign history:", email)
		return Resolution{Kind: ResolutionFound, Email: email}
	}

	// 2. CRM lookup by phone, trying country-code variants.
	if contact, err := r.Directory.FindByPhone(ctx, PhoneVariants(phone)); err != nil {
		log.Println("⚠️ error checking CRM for existing contact:", err)
	} else if contact != nil && contact.Email != "" {
		log.Println("found existing email in CRM:", contact.Email)
		if r.withinCooldown(contact.LastOutreachAt) {
			return Resolution{Kind: ResolutionCooldown, Email: contact.Email}
		}
		return Resolution{Kind: ResolutionFound, Email: contact.Email}
	}

	// 3. External enrichment by name + state.
	return r.resolveViaEnrichment(ctx, name, phone, city, state)
}

func (r *Resolver) resolveViaEnrichment(ctx context.Context, name, phone, city, state string) Resolution {
	firstName, lastName := SplitName(name)
	if firstName == "" || lastName == "" || state == "" {
		log.Println("missing fields for enrichment search, skipping")
		return Resolution{Kind: ResolutionNotFound}
	}

	persons, err := r.Enricher.Enrich(ctx, firstName, lastName, state)
	if err != nil {
		log.Println("⚠️ enrichment provider error:", err)
		return Resolution{Kind: ResolutionNotFound}
	}
	if len(persons) == 0 {
		log.Println("no enrichment matches for", name)
		return Resolution{Kind: ResolutionNotFound}
	}

	best, bestScore := pickBestCandidate(persons, phone, city)
	if best == nil {
		log.Println("no enrichment candidates with emails")
		return Resolution{Kind: ResolutionNotFound}
	}

	email := preferValidatedEmail(best.Emails)
	if email == "" {
		return Resolution{Kind: ResolutionNotFound}
	}
	log.Printf("selected best match email: %s (score: %.1f)\n", email, bestScore)

	// Re-check cooldown against the CRM record for the selected email. A
	// lookup failure is ignored: a risked duplicate beats a missed contact.
	if contact, err := r.Directory.FindByEmail(ctx, email); err != nil {
		log.Println("⚠️ error checking CRM for recent contact:", err)
	} else if contact != nil && r.withinCooldown(contact.LastOutreachAt) {
		return Resolution{Kind: ResolutionCooldown, Email: email}
	}

	return Resolution{Kind: ResolutionFound, Email: email}
}

func (r *Resolver) withinCooldown(lastOutreachAt *time.Time) bool {
	if lastOutreachAt == nil {
		return false
	}
	return time.Since(*lastOutreachAt) < r.cooldown()
}

// pickBestCandidate scores each candidate and returns the highest scorer.
// Candidates without emails are skipped. Ties keep the first candidate seen.
func pickBestCandidate(persons []EnrichedPerson, phone, city string) (*EnrichedPerson, float64) {
	agentDigits := DigitsOnly(phone)

	var best *EnrichedPerson
	bestScore := -1.0

	for i := range persons {
		p := &persons[i]
		if len(p.Emails) == 0 {
			continue
		}

		score := 10.0 // base score for having emails

		if city != "" {
			for _, c := range p.Cities {
				if strings.EqualFold(c, city) {
					score += 50
					break
				}
			}
		}

		if agentDigits != "" {
			for _, number := range p.Phones {
				if DigitsOnly(number) == agentDigits {
					score += 50
					break
				}
			}
		}

		for _, e := range p.Emails {
			if e.Validated {
				score += 20
				break
			}
		}

		// Provider identity confidence adds up to 10 points.
		score += p.IdentityScore / 10

		if score > bestScore {
			bestScore = score
			best = p
		}
	}

	return best, bestScore
}

// preferValidatedEmail returns the first validated email, falling back to the
// first email of any kind.
func preferValidatedEmail(emails []EnrichedEmail) string {
	for _, e := range emails {
		if e.Validated {
			return e.Address
		}
	}
	if len(emails) > 0 {
		return emails[0].Address
	}
	return ""
}

// PhoneVariants normalizes a phone number to digits and returns the
// country-code variants the CRM is searched with.
func PhoneVariants(phone string) []string {
	digits := DigitsOnly(phone)
	return []string{digits, "+1" + digits, "1" + digits, "+" + digits}
}

// DigitsOnly strips every non-digit rune.
func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SplitName splits a full name on the first space into first and last name.
func SplitName(name string) (string, string) {
	parts := strings.SplitN(strings.TrimSpace(name), " ", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}
