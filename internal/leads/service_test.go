package leads

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridgelineexteriors/lead-intake/internal/observability"
)

type stubResolver struct {
	contactID string
	err       error
	phones    []string
}

func (r *stubResolver) ResolveByPhone(_ context.Context, phone string) (string, error) {
	r.phones = append(r.phones, phone)
	if r.err != nil {
		return "", r.err
	}
	return r.contactID, nil
}

type stubAlerter struct {
	subjects []string
	bodies   []string
}

func (a *stubAlerter) Alert(_ context.Context, subject, body string) {
	a.subjects = append(a.subjects, subject)
	a.bodies = append(a.bodies, body)
}

func newTestService(resolver ContactResolver, alerter Alerter) *Service {
	return NewService(resolver, alerter, slog.New(slog.NewTextHandler(io.Discard, nil)), observability.NewMetricsForTesting())
}

func TestService_Submit(t *testing.T) {
	resolver := &stubResolver{contactID: "contact-42"}
	alerter := &stubAlerter{}
	svc := newTestService(resolver, alerter)

	lead, err := svc.Submit(context.Background(), Lead{
		Name:    "Jane Doe",
		Phone:   "+1 (616) 555-0123",
		Address: "123 N Main St",
		Notes:   "hail damage",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, lead.ID)
	assert.Equal(t, "contact-42", lead.ContactID)
	assert.Equal(t, "6165550123", lead.Phone, "phone stored normalized")
	assert.Equal(t, "website", lead.Source)
	assert.Equal(t, []string{"6165550123"}, resolver.phones)

	require.Len(t, alerter.bodies, 1)
	assert.Equal(t, "New lead", alerter.subjects[0])
	assert.Equal(t, "New lead: Jane Doe, 6165550123, 123 N Main St. Notes: hail damage", alerter.bodies[0])
}

func TestService_SubmitValidation(t *testing.T) {
	tests := []struct {
		name string
		lead Lead
	}{
		{name: "missing name", lead: Lead{Phone: "6165550123"}},
		{name: "missing phone", lead: Lead{Name: "Jane"}},
		{name: "phone with no digits", lead: Lead{Name: "Jane", Phone: "---"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(&stubResolver{}, nil)
			_, err := svc.Submit(context.Background(), tt.lead)
			assert.ErrorIs(t, err, ErrInvalidLead)
		})
	}
}

func TestService_SubmitResolverError(t *testing.T) {
	resolver := &stubResolver{err: errors.New("crm down")}
	alerter := &stubAlerter{}
	svc := newTestService(resolver, alerter)

	_, err := svc.Submit(context.Background(), Lead{Name: "Jane", Phone: "6165550123"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resolve contact")
	assert.Empty(t, alerter.bodies, "no alert when the CRM sync fails")
}

func TestService_SubmitWithoutAlerter(t *testing.T) {
	svc := newTestService(&stubResolver{contactID: "c1"}, nil)

	lead, err := svc.Submit(context.Background(), Lead{Name: "Jane", Phone: "6165550123"})
	require.NoError(t, err)
	assert.Equal(t, "c1", lead.ContactID)
}
