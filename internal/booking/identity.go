package booking

import (
	"context"
	"strings"

	"github.com/brlvenue/table-reservation/internal/model"
)

// Contact carries the channels a booking request arrived with.  Any
// subset may be present.
type Contact struct {
	Name  string
	Email string
	Phone string
}

// Confidence grades how strongly a matcher tied the contact to an
// existing customer record.
type Confidence int

const (
	ConfidenceNone  Confidence = iota
	ConfidenceFuzzy            // name + partial phone agreement
	ConfidenceExact            // exact email or phone match
)

// CustomerStore is the customer-lookup collaborator.  Lookups return
// (nil, nil) when no record matches; errors are reserved for store
// failures.
type CustomerStore interface {
	FindByEmail(ctx context.Context, email string) (*model.Customer, error)
	FindByPhone(ctx context.Context, phone string) (*model.Customer, error)
	FindByNameAndPhoneSuffix(ctx context.Context, name, phoneSuffix string) (*model.Customer, error)
}

// IdentityMatch is the result of running the matcher chain.  Channels
// lists which contact channels tied to an existing record ("email",
// "phone"); Confidence reflects the strongest matcher that fired.
type IdentityMatch struct {
	Identified bool
	Customer   *model.Customer
	Channels   []string
	Confidence Confidence
}

// matcher is one identity-matching strategy.  Strategies are ranked:
// the chain runs them in order and keeps the first customer found,
// but still records every channel that matched so callers can see
// cross-platform agreement.
type matcher interface {
	channel() string
	confidence() Confidence
	match(ctx context.Context, store CustomerStore, c Contact) (*model.Customer, error)
}

type emailMatcher struct{}

func (emailMatcher) channel() string        { return "email" }
func (emailMatcher) confidence() Confidence { return ConfidenceExact }
func (emailMatcher) match(ctx context.Context, store CustomerStore, c Contact) (*model.Customer, error) {
	email := strings.ToLower(strings.TrimSpace(c.Email))
	if email == "" {
		return nil, nil
	}
	return store.FindByEmail(ctx, email)
}

type phoneMatcher struct{}

func (phoneMatcher) channel() string        { return "phone" }
func (phoneMatcher) confidence() Confidence { return ConfidenceExact }
func (phoneMatcher) match(ctx context.Context, store CustomerStore, c Contact) (*model.Customer, error) {
	phone := normalisePhone(c.Phone)
	if phone == "" {
		return nil, nil
	}
	return store.FindByPhone(ctx, phone)
}

// namePhoneMatcher is the lowest-ranked strategy: folded-case name
// plus the last seven phone digits.  It catches guests who re-book
// with a different country-code formatting of the same number.
type namePhoneMatcher struct{}

func (namePhoneMatcher) channel() string        { return "phone" }
func (namePhoneMatcher) confidence() Confidence { return ConfidenceFuzzy }
func (namePhoneMatcher) match(ctx context.Context, store CustomerStore, c Contact) (*model.Customer, error) {
	phone := normalisePhone(c.Phone)
	name := strings.ToLower(strings.TrimSpace(c.Name))
	if len(phone) < 7 || name == "" {
		return nil, nil
	}
	return store.FindByNameAndPhoneSuffix(ctx, name, phone[len(phone)-7:])
}

// defaultMatchers is the ranked strategy list.  Order matters: exact
// strategies run before fuzzy ones so the strongest match wins.
var defaultMatchers = []matcher{emailMatcher{}, phoneMatcher{}, namePhoneMatcher{}}

// normalisePhone strips everything but digits so "+44 20 7946 0358"
// and "020 7946 0358" compare on their shared suffix.
func normalisePhone(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
