package httpreq

import "strconv"

// parseParams splits the request-line query string (already positioned
// just past the route) on '&' and '=' into a key→value map. It stops at
// the first space (end of the request line). Percent-encoding is left
// untouched — the caller only ever folds the raw value through
// weightedTimestamp, which treats it as an opaque byte string.
func parseParams(b []byte) (map[string]string, int) {
	params := make(map[string]string, 4)
	offset := 0
	parsingKey := true
	var key, value []byte

	for _, c := range b {
		offset++
		if c == ' ' {
			break
		}
		if c == '&' {
			params[string(key)] = string(value)
			key, value = nil, nil
			parsingKey = true
			continue
		}
		if c == '=' {
			parsingKey = false
			continue
		}
		if parsingKey {
			key = append(key, c)
		} else {
			value = append(value, c)
		}
	}

	if len(value) > 0 || len(key) > 0 {
		params[string(key)] = string(value)
	}

	return params, offset
}

// findHeaderEnd scans for the first "\n\n" or "\r\n\r\n" terminator and
// returns the index right after the byte it matched on — i.e. where
// the caller should resume scanning the body. Never reads past len(b).
func findHeaderEnd(b []byte) (int, bool) {
	for i := 0; i < len(b); i++ {
		switch b[i] {
		case '\n':
			if i+1 < len(b) && b[i+1] == '\n' {
				return i + 1, true
			}
		case '\r':
			if i+4 <= len(b) && b[i+1] == '\n' && b[i+2] == '\r' && b[i+3] == '\n' {
				return i + 1, true
			}
		}
	}
	return 0, false
}

// hasFoldedPrefix reports whether b[at:at+len(s)] equals s, ignoring
// ASCII case, without panicking when the slice would run past len(b).
func hasFoldedPrefix(b []byte, at int, s string) bool {
	if at < 0 || at+len(s) > len(b) {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := b[at+i]
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		want := s[i]
		if 'A' <= want && want <= 'Z' {
			want += 'a' - 'A'
		}
		if c != want {
			return false
		}
	}
	return true
}

// parseBody scans a payment request body for "amount" and
// "correlationId" keys in any order, ignoring any other keys between
// them. Both must be found for ok to be true: a missing or malformed
// field is a 400, never a partially-populated frame.
func parseBody(b []byte) (amountCents uint64, correlationID [36]byte, ok bool) {
	headerEnd, found := findHeaderEnd(b)
	if !found {
		return 0, correlationID, false
	}

	var amountOK, corrOK bool
	cursor := headerEnd
	for cursor < len(b) {
		c := b[cursor]
		cursor++
		if c != '"' {
			continue
		}

		switch {
		case !amountOK && hasFoldedPrefix(b, cursor, "amount"):
			cursor += len("amount")
			if v, valid := parseAmount(b, &cursor); valid {
				amountCents = v
				amountOK = true
			}
		case !corrOK && hasFoldedPrefix(b, cursor, "correlationId"):
			cursor += len("correlationId")
			if id, valid := parseCorrelationID(b, &cursor); valid {
				correlationID = id
				corrOK = true
			}
		}

		if amountOK && corrOK {
			break
		}
	}

	return amountCents, correlationID, amountOK && corrOK
}

// parseAmount reads "<ws>:<ws>[-]<digits>[.<cents up to 2 digits>]"
// starting at *cursor (positioned right after the "amount" key) and
// advances *cursor past what it consumed. Only two fractional digits
// are ever kept; further cents digits stop the scan rather than being
// silently folded in. A leading '-' before any digit marks the value
// invalid (negative amounts are rejected, not wrapped).
func parseAmount(b []byte, cursor *int) (uint64, bool) {
	const (
		beforeColon = iota
		integerPart
		centsPart
	)

	step := beforeColon
	var intDigits, centsDigits []byte
	negative := false

	for *cursor < len(b) {
		c := b[*cursor]
		*cursor++

		if c == ':' {
			step = integerPart
			continue
		}
		if step == beforeColon {
			continue
		}
		if c == '.' {
			step = centsPart
			continue
		}

		switch step {
		case integerPart:
			switch {
			case c >= '0' && c <= '9':
				intDigits = append(intDigits, c)
			case c == '-' && len(intDigits) == 0:
				negative = true
			case len(intDigits) == 0:
				// skip whitespace/sign noise before the first digit
			default:
				// end of the integer part with no decimal point
				*cursor--
				goto done
			}
		case centsPart:
			if len(centsDigits) == 2 {
				*cursor--
				goto done
			}
			if c >= '0' && c <= '9' {
				centsDigits = append(centsDigits, c)
			} else {
				*cursor--
				goto done
			}
		}
	}

done:
	if len(intDigits) == 0 || negative {
		return 0, false
	}
	value, err := strconv.ParseUint(string(intDigits), 10, 64)
	if err != nil {
		return 0, false
	}
	var cents uint64
	if len(centsDigits) > 0 {
		c, err := strconv.ParseUint(string(centsDigits), 10, 8)
		if err != nil {
			return 0, false
		}
		cents = c
	}
	return value*100 + cents, true
}

// parseCorrelationID reads '<ws>:<ws>"<exactly 36 bytes>"' starting at
// *cursor (positioned right after the "correlationId" key). Exactly 36
// bytes must appear before the closing quote; fewer or more is a
// malformed request, not a zero-padded or truncated value.
func parseCorrelationID(b []byte, cursor *int) ([36]byte, bool) {
	var id [36]byte

	step := 0 // 0: waiting for ':', 1: waiting for opening '"', 2: copying
	for *cursor < len(b) && step < 2 {
		c := b[*cursor]
		*cursor++
		switch {
		case step == 0 && c == ':':
			step = 1
		case step == 1 && c == '"':
			step = 2
		}
	}
	if step != 2 {
		return id, false
	}

	n := 0
	for *cursor < len(b) {
		c := b[*cursor]
		*cursor++
		if c == '"' {
			return id, n == 36
		}
		if n < len(id) {
			id[n] = c
		}
		n++
	}
	return id, false
}
