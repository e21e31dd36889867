package payment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/nevelline/storefront/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePaymentsAPI struct {
	mu      sync.Mutex
	paths   []string
	replies []func(w http.ResponseWriter)
}

func (f *fakePaymentsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.paths = append(f.paths, r.Method+" "+r.URL.Path)
	var reply func(w http.ResponseWriter)
	if len(f.replies) > 0 {
		reply = f.replies[0]
		if len(f.replies) > 1 {
			f.replies = f.replies[1:]
		}
	}
	f.mu.Unlock()

	if reply == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	reply(w)
}

func (f *fakePaymentsAPI) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.paths...)
}

func jsonReply(status int, body string) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func slowReply(d time.Duration, status int, body string) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		time.Sleep(d)
		jsonReply(status, body)(w)
	}
}

const successBody = `{
	"success": true,
	"message": "Verification successful",
	"data": {
		"status": "success",
		"reference": "ORDER-NV-1001-1",
		"amount": 1120000,
		"customer": {"email": "ada@example.com", "first_name": "Ada", "last_name": "Obi"},
		"metadata": {"custom_fields": [{"display_name": "Customer Name", "variable_name": "customer_name", "value": "Ada Obi"}]}
	}
}`

func newTestVerifier(t *testing.T, api *fakePaymentsAPI, opts ...Option) *Verifier {
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	opts = append([]Option{WithRetryDelay(time.Millisecond)}, opts...)
	return NewVerifier(NewClient(srv.URL+"/api", time.Second), opts...)
}

func TestVerify_Success(t *testing.T) {
	api := &fakePaymentsAPI{replies: []func(http.ResponseWriter){jsonReply(http.StatusOK, successBody)}}
	v := newTestVerifier(t, api)

	got, err := v.Verify(context.Background(), "ORDER-NV-1001-1")
	require.NoError(t, err)

	assert.Equal(t, domain.PaymentOutcomeSuccess, got.Outcome)
	assert.Equal(t, int64(1120000), got.Amount)
	assert.Equal(t, "Ada Obi", got.Customer.FullName())
	assert.Contains(t, got.Metadata, "custom_fields")
	assert.Equal(t, []string{"GET /api/payments/verify/ORDER-NV-1001-1"}, api.calls())
}

func TestVerify_Outcomes(t *testing.T) {
	tests := []struct {
		status string
		want   domain.PaymentOutcome
	}{
		{"success", domain.PaymentOutcomeSuccess},
		{"failed", domain.PaymentOutcomeFailed},
		{"abandoned", domain.PaymentOutcomePending},
		{"ongoing", domain.PaymentOutcomePending},
		{"", domain.PaymentOutcomePending},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			body := `{"success":true,"data":{"status":"` + tt.status + `","amount":500}}`
			api := &fakePaymentsAPI{replies: []func(http.ResponseWriter){jsonReply(http.StatusOK, body)}}

			got, err := newTestVerifier(t, api).Verify(context.Background(), "ref-1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Outcome)
			assert.Equal(t, "ref-1", got.Reference)
			assert.Len(t, api.calls(), 1, "pending is not polled")
		})
	}
}

func TestVerify_EmptyReference(t *testing.T) {
	api := &fakePaymentsAPI{}
	v := newTestVerifier(t, api)

	_, err := v.Verify(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrMissingReference)
	assert.Empty(t, api.calls())
}

func TestVerify_NotFoundRetriedOnce(t *testing.T) {
	api := &fakePaymentsAPI{replies: []func(http.ResponseWriter){jsonReply(http.StatusNotFound, `{"message":"not found"}`)}}
	v := newTestVerifier(t, api)

	_, err := v.Verify(context.Background(), "ref-404")

	var verr *VerificationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, 2, verr.Attempts)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.Len(t, api.calls(), 2)
}

func TestVerify_RecoversOnRetry(t *testing.T) {
	api := &fakePaymentsAPI{replies: []func(http.ResponseWriter){
		jsonReply(http.StatusBadGateway, `upstream error`),
		jsonReply(http.StatusOK, successBody),
	}}

	got, err := newTestVerifier(t, api).Verify(context.Background(), "ORDER-NV-1001-1")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentOutcomeSuccess, got.Outcome)
	assert.Len(t, api.calls(), 2)
}

func TestVerify_UnsuccessfulBody(t *testing.T) {
	api := &fakePaymentsAPI{replies: []func(http.ResponseWriter){
		jsonReply(http.StatusOK, `{"success":false,"message":"Transaction reference not found"}`),
	}}

	_, err := newTestVerifier(t, api).Verify(context.Background(), "ref-x")

	var verr *VerificationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Transaction reference not found", verr.Message)
	assert.Len(t, api.calls(), 2)
}

func TestVerify_UndecodableBody(t *testing.T) {
	api := &fakePaymentsAPI{replies: []func(http.ResponseWriter){jsonReply(http.StatusOK, `<html>`)}}

	_, err := newTestVerifier(t, api).Verify(context.Background(), "ref-x")

	var verr *VerificationError
	assert.ErrorAs(t, err, &verr)
}

func TestVerify_TracksLinkFirst(t *testing.T) {
	api := &fakePaymentsAPI{replies: []func(http.ResponseWriter){
		jsonReply(http.StatusInternalServerError, `tracking down`),
		jsonReply(http.StatusOK, successBody),
	}}
	v := newTestVerifier(t, api, WithLinkTracking(true))

	got, err := v.Verify(context.Background(), "ORDER-NV-1001-1")
	require.NoError(t, err, "tracking failures are ignored")
	assert.Equal(t, domain.PaymentOutcomeSuccess, got.Outcome)
	assert.Equal(t, []string{
		"POST /api/payments/link/track/ORDER-NV-1001-1",
		"GET /api/payments/verify/ORDER-NV-1001-1",
	}, api.calls())
}

func TestVerify_ContextCancelledDuringRetryDelay(t *testing.T) {
	api := &fakePaymentsAPI{replies: []func(http.ResponseWriter){jsonReply(http.StatusServiceUnavailable, ``)}}
	srv := httptest.NewServer(api)
	defer srv.Close()
	v := NewVerifier(NewClient(srv.URL, time.Second), WithRetryDelay(time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := v.Verify(ctx, "ref-x")

	var verr *VerificationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, 1, verr.Attempts)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestVerify_HungAttemptIsRetriedWithinBudget(t *testing.T) {
	api := &fakePaymentsAPI{replies: []func(http.ResponseWriter){
		slowReply(600*time.Millisecond, http.StatusOK, successBody),
		jsonReply(http.StatusOK, successBody),
	}}
	srv := httptest.NewServer(api)
	defer srv.Close()
	v := NewVerifier(NewClient(srv.URL, time.Second),
		WithAttemptTimeout(200*time.Millisecond),
		WithRetryDelay(10*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), v.Budget())
	defer cancel()
	got, err := v.Verify(ctx, "ORDER-NV-1001-1")
	require.NoError(t, err)

	assert.Equal(t, domain.PaymentOutcomeSuccess, got.Outcome)
	assert.Len(t, api.calls(), 2)
}

func TestVerifier_Budget(t *testing.T) {
	v := NewVerifier(NewClient("http://payments.invalid", time.Second),
		WithAttemptTimeout(2*time.Second),
		WithRetryDelay(time.Second))
	assert.Equal(t, 5*time.Second, v.Budget())

	v = NewVerifier(NewClient("http://payments.invalid", time.Second),
		WithAttemptTimeout(2*time.Second),
		WithRetryDelay(time.Second),
		WithLinkTracking(true))
	assert.Equal(t, 7*time.Second, v.Budget())
}

func TestReferenceFromQuery(t *testing.T) {
	assert.Equal(t, "a", ReferenceFromQuery(url.Values{"reference": {"a"}, "trxref": {"b"}}))
	assert.Equal(t, "b", ReferenceFromQuery(url.Values{"trxref": {"b"}}))
	assert.Equal(t, "b", ReferenceFromQuery(url.Values{"reference": {""}, "trxref": {"b"}}))
	assert.Equal(t, "", ReferenceFromQuery(url.Values{}))
}
