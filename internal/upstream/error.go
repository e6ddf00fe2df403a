package upstream

import (
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
)

// Error is the structured failure surface of upstream calls. Status is
// the HTTP status, or 0 for transport-level failures. RawBody keeps the
// upstream payload for the error mappers.
type Error struct {
	Status      int
	Message     string
	RawBody     string
	APIReported bool
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("upstream status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("upstream: %s", e.Message)
}

// RateLimited reports whether the retry layer should take this one.
func (e *Error) RateLimited() bool {
	return e.Status == http.StatusTooManyRequests
}

// newAPIError builds an Error from an upstream error body, pulling out
// error.message when the body carries the standard Google envelope.
func newAPIError(status int, body []byte) *Error {
	msg := gjson.GetBytes(body, "error.message").String()
	reported := msg != ""
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &Error{
		Status:      status,
		Message:     msg,
		RawBody:     string(body),
		APIReported: reported,
	}
}

// QuotaExhaustedReset extracts the QUOTA_EXHAUSTED reset timestamp from
// a 429 body, empty when the detail is absent.
func (e *Error) QuotaExhaustedReset() string {
	if e.Status != http.StatusTooManyRequests {
		return ""
	}
	var reset string
	gjson.Get(e.RawBody, "error.details").ForEach(func(_, detail gjson.Result) bool {
		if detail.Get("reason").String() == "QUOTA_EXHAUSTED" {
			reset = detail.Get("metadata.quotaResetTimeStamp").String()
			return reset == ""
		}
		return true
	})
	return reset
}
