package booking_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brlvenue/table-reservation/internal/booking"
	"github.com/brlvenue/table-reservation/internal/model"
)

// fakeCustomerStore indexes a fixed set of customers the way the real
// store does: by exact email, exact phone digits and name plus phone
// suffix.
type fakeCustomerStore struct {
	byEmail      map[string]*model.Customer
	byPhone      map[string]*model.Customer
	byNameSuffix map[string]*model.Customer
}

func (f *fakeCustomerStore) FindByEmail(_ context.Context, email string) (*model.Customer, error) {
	return f.byEmail[email], nil
}

func (f *fakeCustomerStore) FindByPhone(_ context.Context, phone string) (*model.Customer, error) {
	return f.byPhone[phone], nil
}

func (f *fakeCustomerStore) FindByNameAndPhoneSuffix(_ context.Context, name, suffix string) (*model.Customer, error) {
	return f.byNameSuffix[name+"/"+suffix], nil
}

func TestIdentifyByEmail(t *testing.T) {
	alice := &model.Customer{ID: 1, Name: "Alice Moore", Email: "alice@example.com", Tier: model.TierStandard}
	store := &fakeCustomerStore{
		byEmail:      map[string]*model.Customer{"alice@example.com": alice},
		byPhone:      map[string]*model.Customer{},
		byNameSuffix: map[string]*model.Customer{},
	}
	e := booking.NewEnforcer(store, &fakeHistory{}, testPolicy(), nil)

	m, err := e.Identify(context.Background(), booking.Contact{Name: "Alice Moore", Email: "Alice@Example.com"})
	require.NoError(t, err)
	assert.True(t, m.Identified)
	require.NotNil(t, m.Customer)
	assert.Equal(t, uint64(1), m.Customer.ID)
	assert.Equal(t, booking.ConfidenceExact, m.Confidence)
	assert.Contains(t, m.Channels, "email")
}

func TestIdentifyMergesChannels(t *testing.T) {
	alice := &model.Customer{ID: 1, Name: "Alice Moore", Tier: model.TierGold}
	store := &fakeCustomerStore{
		byEmail:      map[string]*model.Customer{"alice@example.com": alice},
		byPhone:      map[string]*model.Customer{"442079460358": alice},
		byNameSuffix: map[string]*model.Customer{},
	}
	e := booking.NewEnforcer(store, &fakeHistory{}, testPolicy(), nil)

	// The same guest booked by email once and by phone once; both
	// channels agree on one record.
	m, err := e.Identify(context.Background(), booking.Contact{
		Name:  "Alice Moore",
		Email: "alice@example.com",
		Phone: "+44 20 7946 0358",
	})
	require.NoError(t, err)
	assert.True(t, m.Identified)
	assert.ElementsMatch(t, []string{"email", "phone"}, m.Channels)
	assert.Equal(t, booking.ConfidenceExact, m.Confidence)
}

func TestIdentifyByNameAndPhoneSuffix(t *testing.T) {
	ben := &model.Customer{ID: 2, Name: "Ben Osei", Tier: model.TierStandard}
	store := &fakeCustomerStore{
		byEmail: map[string]*model.Customer{},
		byPhone: map[string]*model.Customer{},
		// Record was stored with a domestic 0-prefixed number; the
		// request arrives with the international form.  Only the
		// last seven digits agree.
		byNameSuffix: map[string]*model.Customer{"ben osei/9460358": ben},
	}
	e := booking.NewEnforcer(store, &fakeHistory{}, testPolicy(), nil)

	m, err := e.Identify(context.Background(), booking.Contact{Name: "Ben Osei", Phone: "+44 20 7946 0358"})
	require.NoError(t, err)
	assert.True(t, m.Identified)
	require.NotNil(t, m.Customer)
	assert.Equal(t, uint64(2), m.Customer.ID)
	assert.Equal(t, booking.ConfidenceFuzzy, m.Confidence)
}

func TestIdentifyNoMatch(t *testing.T) {
	store := &fakeCustomerStore{
		byEmail:      map[string]*model.Customer{},
		byPhone:      map[string]*model.Customer{},
		byNameSuffix: map[string]*model.Customer{},
	}
	e := booking.NewEnforcer(store, &fakeHistory{}, testPolicy(), nil)

	m, err := e.Identify(context.Background(), booking.Contact{Name: "First Timer", Email: "new@example.com"})
	require.NoError(t, err)
	assert.False(t, m.Identified)
	assert.Nil(t, m.Customer)
	assert.Equal(t, booking.ConfidenceNone, m.Confidence)
}
