// Package httpreq classifies a raw HTTP/1.1 request prefix into one of
// the two endpoints this gateway recognizes, without running a general
// HTTP parser. See the weak route hash and scan-based body parser in
// parse.go for the mechanics.
package httpreq

// Kind discriminates the classified request.
type Kind int

const (
	KindNotFound Kind = iota
	KindBadRequest
	KindSummary
	KindPayment
)

// Request is the typed result of Classify.
type Request struct {
	Kind          Kind
	From          uint32
	To            uint32
	AmountCents   uint64
	CorrelationID [36]byte
}

// staticToken computes the same wrapping byte-sum hash at init time
// that endpointToken computes per-request; a u32 wraparound collision
// between the two recognized routes and an unrelated request is
// accepted by design — see endpointToken.
func staticToken(s string) uint32 {
	var token uint32
	for i := 0; i < len(s); i++ {
		token += uint32(s[i])
	}
	return token
}

var (
	summaryToken = staticToken("GET /payments-summary")
	paymentToken = staticToken("POST /payments")
)

// endpointToken sums every byte of the method, the single space, and
// the path up to (but not including) the first space or '?' following
// the first '/'. It returns the running sum and the offset of the
// byte right after the terminator, so callers can resume scanning from
// there. This is a deliberate weak hash, not a route matcher: two
// different request lines that happen to sum to the same u32 are
// indistinguishable and will be classified identically. Fuzzing this
// function is the right way to explore that surface.
func endpointToken(b []byte) (token uint32, offset int) {
	parsingRoute := false
	for _, c := range b {
		offset++
		if c == '/' {
			parsingRoute = true
		}
		if parsingRoute && (c == ' ' || c == '?') {
			break
		}
		token += uint32(c)
	}
	return token, offset
}

// Classify turns a raw request prefix (up to the gateway's inbound
// buffer size) into a typed Request.
func Classify(b []byte) Request {
	token, offset := endpointToken(b)
	if offset > len(b) {
		offset = len(b)
	}

	switch token {
	case paymentToken:
		amount, corr, ok := parseBody(b[offset:])
		if !ok {
			return Request{Kind: KindBadRequest}
		}
		return Request{Kind: KindPayment, AmountCents: amount, CorrelationID: corr}
	case summaryToken:
		params, _ := parseParams(b[offset:])
		return Request{
			Kind: KindSummary,
			From: weightedTimestamp(params["from"]),
			To:   weightedTimestamp(params["to"]),
		}
	default:
		return Request{Kind: KindNotFound}
	}
}

// weightedTimestamp folds a query value into an opaque u32 ordinal: for
// a string of length L, the byte at index i contributes byte*(L-i).
// Missing keys (empty string) yield 0. The result has no meaning
// outside this gateway — interpretation belongs to the back-end.
func weightedTimestamp(s string) uint32 {
	if s == "" {
		return 0
	}
	n := len(s)
	var t uint32
	for i := 0; i < n; i++ {
		weight := uint32(n - i)
		t += uint32(s[i]) * weight
	}
	return t
}
