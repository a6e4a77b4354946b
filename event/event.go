package event

import (
	"encoding/json"
	"time"
)

/* Event represents an ingested webhook event awaiting delivery
 * Created once by ingestion; the delivery engine only ever updates the
 * informational lifecycle status, the authoritative outcome lives in the
 * delivery attempt log
 */
type Event struct {
	ID             string
	SubscriptionID string
	EventType      string
	Payload        json.RawMessage
	Status         Status
	CreatedAt      time.Time
}
