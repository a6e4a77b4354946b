package subscription

import (
	"fmt"
	"net/url"
	"regexp"
	"time"
)

/* Subscription represents a subscriber-registered endpoint
 * Uses value semantics as it represents data, not behavior
 */
type Subscription struct {
	ID         string
	TargetURL  string
	Secret     string
	EventTypes []string
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

const (
	MinSecretLength = 8
	MaxSecretLength = 64
	MaxEventTypes   = 10
	MaxEventTypeLen = 64
)

var (
	// secretPattern restricts secrets to alphanumerics, underscores and hyphens
	secretPattern = regexp.MustCompile(`^[a-zA-Z0-9_\-]+$`)

	// eventTypePattern additionally allows full stops for hierarchical types
	// Examples: "user.created", "order.updated"
	eventTypePattern = regexp.MustCompile(`^[a-zA-Z0-9_\-.]+$`)
)

// Validate checks the subscription against the registration rules.
func (s Subscription) Validate() error {
	if err := ValidateTargetURL(s.TargetURL); err != nil {
		return err
	}
	if err := ValidateSecret(s.Secret); err != nil {
		return err
	}
	return ValidateEventTypes(s.EventTypes)
}

// AllowsEventType reports whether the subscription accepts the given event type.
func (s Subscription) AllowsEventType(eventType string) bool {
	for _, t := range s.EventTypes {
		if t == eventType {
			return true
		}
	}
	return false
}

// ValidateTargetURL checks that the target is an absolute http(s) URL.
func ValidateTargetURL(target string) error {
	if target == "" {
		return fmt.Errorf("target_url cannot be empty")
	}
	u, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("parsing target_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("target_url must use http or https scheme: %s", target)
	}
	if u.Host == "" {
		return fmt.Errorf("target_url must be absolute: %s", target)
	}
	return nil
}

// ValidateSecret checks the signing secret length and charset.
func ValidateSecret(secret string) error {
	if len(secret) < MinSecretLength || len(secret) > MaxSecretLength {
		return fmt.Errorf("secret must be between %d and %d characters", MinSecretLength, MaxSecretLength)
	}
	if !secretPattern.MatchString(secret) {
		return fmt.Errorf("secret must contain only alphanumeric characters, underscores, and hyphens")
	}
	return nil
}

// ValidateEventType checks a single event type format.
func ValidateEventType(eventType string) error {
	if eventType == "" {
		return fmt.Errorf("event type cannot be empty")
	}
	if len(eventType) > MaxEventTypeLen {
		return fmt.Errorf("event type cannot exceed %d characters: %s", MaxEventTypeLen, eventType)
	}
	if !eventTypePattern.MatchString(eventType) {
		return fmt.Errorf("event type must contain only alphanumeric characters, underscores, hyphens, and dots: %s", eventType)
	}
	return nil
}

// ValidateEventTypes checks the allowed-types set as a whole.
func ValidateEventTypes(eventTypes []string) error {
	if len(eventTypes) == 0 {
		return fmt.Errorf("at least one event type is required")
	}
	if len(eventTypes) > MaxEventTypes {
		return fmt.Errorf("at most %d event types are allowed (got %d)", MaxEventTypes, len(eventTypes))
	}
	for _, t := range eventTypes {
		if err := ValidateEventType(t); err != nil {
			return err
		}
	}
	return nil
}
