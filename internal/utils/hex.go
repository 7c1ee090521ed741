package utils

const hexDigits = "0123456789ABCDEF"

// HexPreview renders up to max bytes of b as uppercase hex, appending "…"
// when b is longer. Used to log payloads that failed to parse.
func HexPreview(b []byte, max int) string {
	truncated := false
	if max >= 0 && len(b) > max {
		b = b[:max]
		truncated = true
	}
	out := make([]byte, 0, len(b)*2+3)
	for _, x := range b {
		out = append(out, hexDigits[x>>4], hexDigits[x&0x0F])
	}
	if truncated {
		out = append(out, "…"...)
	}
	return string(out)
}
