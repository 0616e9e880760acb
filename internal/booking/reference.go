package booking

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strconv"
	"time"
)

// Reference layout: BRL-<year>-<5 digits>.  Standard bookings draw
// the suffix from [10000, 79999]; gold and platinum bookings from the
// reserved [80000, 99999] band so door staff can spot a VIP party
// from the reference alone.
const (
	referencePrefix = "BRL"
	stdSuffixMin    = 10000
	stdSuffixMax    = 79999
	vipSuffixMin    = 80000
	vipSuffixMax    = 99999

	// referenceEpochYear is the first season the venue issued
	// references in this format.  ValidateReference rejects years
	// before it.
	referenceEpochYear = 2020

	checkInCodeLen      = 6
	checkInCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var referencePattern = regexp.MustCompile(`^BRL-(\d{4})-(\d{5})$`)

// ReferenceStore is the slice of the booking store the generator
// needs: existence checks against already persisted references and
// check-in codes.  The storage layer's unique indexes remain the
// owner of the uniqueness constraint; these checks only keep the
// expected number of write-time collisions near zero.
type ReferenceStore interface {
	ReferenceExists(ctx context.Context, ref string) (bool, error)
	CheckInCodeExists(ctx context.Context, code string) (bool, error)
}

// Rand is the random source the generator draws candidates from.  It
// is an explicit dependency so tests can supply a deterministic
// sequence and exercise the retry-on-collision path.
type Rand interface {
	IntN(n int) int
}

// Generator mints booking references and check-in codes using a
// generate-then-verify protocol: draw a candidate, check it against
// persisted state, and hand it to the caller for the final commit.
// A duplicate-key error at write time is recoverable; callers redraw
// and retry within the same attempt budget.
type Generator struct {
	store       ReferenceStore
	rand        Rand
	now         func() time.Time
	maxAttempts int
}

// NewGenerator returns a Generator backed by the given store.  When
// rnd is nil, a PCG source seeded from crypto/rand is used.  The
// attempt budget bounds both the exists-check loop and the caller's
// write-retry loop before ErrGenerationExhausted is surfaced.
func NewGenerator(store ReferenceStore, rnd Rand, maxAttempts int) *Generator {
	if rnd == nil {
		var seed [16]byte
		if _, err := crand.Read(seed[:]); err != nil {
			panic("booking: cannot seed reference generator: " + err.Error())
		}
		rnd = rand.New(rand.NewPCG(
			binary.LittleEndian.Uint64(seed[:8]),
			binary.LittleEndian.Uint64(seed[8:]),
		))
	}
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &Generator{store: store, rand: rnd, now: time.Now, maxAttempts: maxAttempts}
}

// MaxAttempts returns the attempt budget, shared with callers that
// retry the final unique-index commit.
func (g *Generator) MaxAttempts() int { return g.maxAttempts }

// BookingReference returns a unique reference for a standard booking.
func (g *Generator) BookingReference(ctx context.Context) (string, error) {
	return g.reference(ctx, stdSuffixMin, stdSuffixMax)
}

// VIPBookingReference returns a unique reference whose numeric suffix
// falls inside the VIP band.
func (g *Generator) VIPBookingReference(ctx context.Context) (string, error) {
	return g.reference(ctx, vipSuffixMin, vipSuffixMax)
}

func (g *Generator) reference(ctx context.Context, lo, hi int) (string, error) {
	year := g.now().UTC().Year()
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		suffix := lo + g.rand.IntN(hi-lo+1)
		ref := fmt.Sprintf("%s-%d-%05d", referencePrefix, year, suffix)
		exists, err := g.store.ReferenceExists(ctx, ref)
		if err != nil {
			return "", err
		}
		if !exists {
			return ref, nil
		}
	}
	return "", fmt.Errorf("booking reference space saturated after %d attempts: %w", g.maxAttempts, ErrGenerationExhausted)
}

// CheckInCode returns a unique 6-character uppercase alphanumeric
// code for door-staff verification.
func (g *Generator) CheckInCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		buf := make([]byte, checkInCodeLen)
		for i := range buf {
			buf[i] = checkInCodeAlphabet[g.rand.IntN(len(checkInCodeAlphabet))]
		}
		code := string(buf)
		exists, err := g.store.CheckInCodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("check-in code space saturated after %d attempts: %w", g.maxAttempts, ErrGenerationExhausted)
}

// ValidateReference checks the format and year range of a reference
// without touching the store.  The year must fall between the first
// season the format was issued and next year (bookings can be taken
// across a year boundary).
func (g *Generator) ValidateReference(ref string) bool {
	m := referencePattern.FindStringSubmatch(ref)
	if m == nil {
		return false
	}
	year, err := strconv.Atoi(m[1])
	if err != nil {
		return false
	}
	return year >= referenceEpochYear && year <= g.now().UTC().Year()+1
}
