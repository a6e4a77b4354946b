package subscription_test

import (
	"strings"
	"testing"

	"github.com/marcelsud/webhook-dispatch/subscription"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSubscription() subscription.Subscription {
	return subscription.Subscription{
		ID:         "sub-1",
		TargetURL:  "https://example.com/hooks",
		Secret:     "my_secure_secret_123",
		EventTypes: []string{"user.created", "user.deleted"},
		Active:     true,
	}
}

func TestValidate(t *testing.T) {
	t.Run("valid subscription", func(t *testing.T) {
		require.NoError(t, validSubscription().Validate())
	})

	t.Run("invalid target url", func(t *testing.T) {
		sub := validSubscription()
		sub.TargetURL = "not-a-url"
		assert.Error(t, sub.Validate())
	})

	t.Run("invalid secret", func(t *testing.T) {
		sub := validSubscription()
		sub.Secret = "short"
		assert.Error(t, sub.Validate())
	})

	t.Run("no event types", func(t *testing.T) {
		sub := validSubscription()
		sub.EventTypes = nil
		assert.Error(t, sub.Validate())
	})
}

func TestValidateTargetURL(t *testing.T) {
	tests := []struct {
		name    string
		target  string
		wantErr bool
	}{
		{"https url", "https://example.com/hooks", false},
		{"http url", "http://localhost:8080/receive", false},
		{"with query", "https://example.com/hooks?tenant=42", false},
		{"empty", "", true},
		{"relative path", "/hooks", true},
		{"missing scheme", "example.com/hooks", true},
		{"ftp scheme", "ftp://example.com/hooks", true},
		{"scheme only", "https://", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := subscription.ValidateTargetURL(tt.target)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateSecret(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		wantErr bool
	}{
		{"minimum length", "abcd1234", false},
		{"maximum length", strings.Repeat("a", subscription.MaxSecretLength), false},
		{"underscores and hyphens", "my_secret-key_01", false},
		{"too short", "abc1234", true},
		{"too long", strings.Repeat("a", subscription.MaxSecretLength+1), true},
		{"empty", "", true},
		{"spaces", "my secret key", true},
		{"special characters", "secret!@#$%^&*", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := subscription.ValidateSecret(tt.secret)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateEventTypes(t *testing.T) {
	t.Run("hierarchical names", func(t *testing.T) {
		assert.NoError(t, subscription.ValidateEventTypes([]string{"user.created", "order.payment.captured"}))
	})

	t.Run("empty set", func(t *testing.T) {
		assert.Error(t, subscription.ValidateEventTypes([]string{}))
	})

	t.Run("too many types", func(t *testing.T) {
		types := make([]string, subscription.MaxEventTypes+1)
		for i := range types {
			types[i] = "user.created"
		}
		assert.Error(t, subscription.ValidateEventTypes(types))
	})

	t.Run("empty type inside the set", func(t *testing.T) {
		assert.Error(t, subscription.ValidateEventTypes([]string{"user.created", ""}))
	})

	t.Run("type too long", func(t *testing.T) {
		assert.Error(t, subscription.ValidateEventTypes([]string{strings.Repeat("a", subscription.MaxEventTypeLen+1)}))
	})

	t.Run("illegal characters", func(t *testing.T) {
		assert.Error(t, subscription.ValidateEventTypes([]string{"user created"}))
		assert.Error(t, subscription.ValidateEventTypes([]string{"user/created"}))
	})
}

func TestAllowsEventType(t *testing.T) {
	sub := validSubscription()

	assert.True(t, sub.AllowsEventType("user.created"))
	assert.True(t, sub.AllowsEventType("user.deleted"))
	assert.False(t, sub.AllowsEventType("user.updated"))
	assert.False(t, sub.AllowsEventType("user"), "matching is exact, not prefix")
}
