package httpreq

// Canned response buffers. These are the only HTTP responses this
// gateway ever produces; all four are process-wide immutable byte
// strings and the only package-level state in the request path.
var (
	NotFound = []byte("HTTP/1.1 404 Not Found\r\nContent-Length: 0\r\n\r\n")

	BadRequest = []byte("HTTP/1.1 400 Bad Request\r\nContent-Length: 0\r\n\r\n")

	PaymentOK = []byte("HTTP/1.1 200 OK\r\nConnection: Keep-Alive\r\nKeep-Alive: timeout=30, max=500\r\nContent-Length: 0\r\n\r\n")

	// SummaryOK's body is always the zeroed literal: the gateway never
	// waits on a worker round trip before responding (see dispatch
	// package doc), so it cannot report real totals. Content-Length
	// must stay 98 — if this literal is ever edited, recount it.
	SummaryOK = []byte("HTTP/1.1 200 OK\r\nContent-Length: 98\r\n\r\n" +
		`{"default":{"totalRequests": 0,"totalAmount": 0},"fallback":{"totalRequests": 0,"totalAmount": 0}}`)
)

// ResponseFor returns the canned response bytes for a classified
// request's kind.
func ResponseFor(k Kind) []byte {
	switch k {
	case KindSummary:
		return SummaryOK
	case KindPayment:
		return PaymentOK
	case KindBadRequest:
		return BadRequest
	default:
		return NotFound
	}
}
