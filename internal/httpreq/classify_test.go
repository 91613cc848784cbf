package httpreq

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEndpointTokenMatchesOffsets(t *testing.T) {
	one := staticToken("GET /one")
	two := staticToken("POST /two")

	tok, offset := endpointToken([]byte("GET /one HTTP1.1"))
	require.Equal(t, one, tok)
	require.Equal(t, 9, offset)

	tok, offset = endpointToken([]byte("POST /two?d=x"))
	require.Equal(t, two, tok)
	require.Equal(t, 10, offset)
}

func TestClassifyPayment(t *testing.T) {
	req := []byte("POST /payments HTTP/1.1\r\nHost: x\r\n\r\n" +
		`{"amount": 19.90, "correlationId": "4a7b1e2c-3d4f-5e6a-7b8c-9d0e1f2a3b4c"}`)

	got := Classify(req)
	require.Equal(t, KindPayment, got.Kind)
	require.Equal(t, uint64(1990), got.AmountCents)
	require.Equal(t, "4a7b1e2c-3d4f-5e6a-7b8c-9d0e1f2a3b4c", string(got.CorrelationID[:]))
}

func TestClassifyPaymentKeysOutOfOrder(t *testing.T) {
	req := []byte("POST /payments HTTP/1.1\r\n\r\n" +
		`{"correlationId": "4a7b1e2c-3d4f-5e6a-7b8c-9d0e1f2a3b4c", "amount": 19.90}`)

	got := Classify(req)
	require.Equal(t, KindPayment, got.Kind)
	require.Equal(t, uint64(1990), got.AmountCents)
}

func TestClassifyPaymentExtraKeysIgnored(t *testing.T) {
	req := []byte("POST /payments HTTP/1.1\r\n\r\n" +
		`{"amount": 10.05, "note": "hi", "correlationId": "00000000000000000000000000000000aaaa"}`)

	got := Classify(req)
	require.Equal(t, KindPayment, got.Kind)
	require.Equal(t, uint64(1005), got.AmountCents)
}

func TestClassifyPaymentMissingCorrelationIDIsBadRequest(t *testing.T) {
	req := []byte("POST /payments HTTP/1.1\r\n\r\n" + `{"amount": 10}`)
	got := Classify(req)
	require.Equal(t, KindBadRequest, got.Kind)
}

func TestClassifyPaymentBadCorrelationIDLengthIsBadRequest(t *testing.T) {
	req := []byte("POST /payments HTTP/1.1\r\n\r\n" +
		`{"amount": 1.00, "correlationId": "too-short"}`)
	got := Classify(req)
	require.Equal(t, KindBadRequest, got.Kind)
}

func TestClassifySummary(t *testing.T) {
	req := []byte("GET /payments-summary?from=2020-07-10T12%3A34%3A56.000Z&to=2020-07-10T12%3A35%3A56.000Z HTTP/1.1\r\n\r\n")
	got := Classify(req)
	require.Equal(t, KindSummary, got.Kind)
	require.NotZero(t, got.From)
	require.NotZero(t, got.To)
}

func TestClassifySummaryMissingKeysAreZero(t *testing.T) {
	req := []byte("GET /payments-summary?to=2020-07-10T12%3A35%3A56.000Z HTTP/1.1\r\n\r\n")
	got := Classify(req)
	require.Equal(t, KindSummary, got.Kind)
	require.Zero(t, got.From)
	require.NotZero(t, got.To)
}

func TestClassifyUnknownRouteIsNotFound(t *testing.T) {
	req := []byte("GET /unknown HTTP/1.1\r\n\r\n")
	got := Classify(req)
	require.Equal(t, KindNotFound, got.Kind)
}

// FuzzClassify probes the byte-sum route hash with arbitrary request
// prefixes. Collisions with a recognized route are accepted — the hash
// trades exactness for speed — so the only hard requirements are that
// classification never panics and that a collision is still handled as
// the colliding endpoint would be (a parse failure degrades to
// BadRequest, never to a crash).
func FuzzClassify(f *testing.F) {
	f.Add([]byte("GET /payments-summary?from=a&to=b HTTP/1.1\r\n\r\n"))
	f.Add([]byte("POST /payments HTTP/1.1\r\n\r\n{}"))
	f.Add([]byte("GET /unknown HTTP/1.1\r\n\r\n"))
	f.Add([]byte{})

	f.Fuzz(func(t *testing.T, data []byte) {
		got := Classify(data)
		switch got.Kind {
		case KindNotFound, KindBadRequest, KindSummary, KindPayment:
		default:
			t.Fatalf("impossible kind %d", got.Kind)
		}
	})
}
