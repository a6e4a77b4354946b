package delivery

import "time"

// ResponseBodyLimit bounds how much of a subscriber response is kept on
// the attempt row.
const ResponseBodyLimit = 4096

/* Attempt is one row of the append-only delivery audit trail
 * Attempt numbers form a gapless ascending sequence per webhook event,
 * starting at 1 and bounded by the configured maximum
 */
type Attempt struct {
	ID             string
	SubscriptionID string
	WebhookEventID string
	AttemptNumber  int
	StatusCode     *int
	ResponseBody   *string
	ErrorMessage   *string
	Success        bool
	CreatedAt      time.Time
}

// Outcome carries the result of one outbound call, recorded exactly once
// on the attempt row that was persisted before the call went out.
type Outcome struct {
	StatusCode   *int
	ResponseBody *string
	ErrorMessage *string
	Success      bool
}

// TruncateBody bounds a subscriber response body to ResponseBodyLimit.
func TruncateBody(body []byte) string {
	if len(body) > ResponseBodyLimit {
		return string(body[:ResponseBodyLimit])
	}
	return string(body)
}
