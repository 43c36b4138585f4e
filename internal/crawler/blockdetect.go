package crawler

import (
	"bytes"
	"strings"
)

// SignatureDetector implements BlockDetector from a configurable set of body
// signatures and challenge status codes. The defaults cover the common
// browser-check interstitials; they are expected to rot and must stay
// replaceable through configuration alone.
type SignatureDetector struct {
	signatures  [][]byte
	statusCodes map[int]struct{}
}

// DefaultBlockSignatures are the body markers recognized out of the box.
var DefaultBlockSignatures = []string{
	"cf-browser-verification",
	"challenge-platform",
	"just a moment...",
	"attention required!",
	"ddos protection by",
	"verify you are human",
}

// DefaultBlockStatusCodes are statuses treated as anti-automation blocks when
// returned for a page the crawler is otherwise allowed to fetch.
var DefaultBlockStatusCodes = []int{403}

// NewSignatureDetector builds a detector. Signatures are matched
// case-insensitively against the response body; an empty signature list
// leaves only the status-code check.
func NewSignatureDetector(signatures []string, statusCodes []int) *SignatureDetector {
	lowered := make([][]byte, 0, len(signatures))
	for _, sig := range signatures {
		sig = strings.TrimSpace(strings.ToLower(sig))
		if sig == "" {
			continue
		}
		lowered = append(lowered, []byte(sig))
	}
	codes := make(map[int]struct{}, len(statusCodes))
	for _, code := range statusCodes {
		codes[code] = struct{}{}
	}
	return &SignatureDetector{signatures: lowered, statusCodes: codes}
}

// Blocked reports whether the response looks like an anti-automation
// challenge: either a configured challenge status, or a body carrying a known
// challenge marker regardless of status (challenges are often served as 200s).
func (d *SignatureDetector) Blocked(statusCode int, body []byte) bool {
	if _, ok := d.statusCodes[statusCode]; ok {
		return true
	}
	if len(body) == 0 || len(d.signatures) == 0 {
		return false
	}
	lower := bytes.ToLower(body)
	for _, sig := range d.signatures {
		if bytes.Contains(lower, sig) {
			return true
		}
	}
	return false
}
