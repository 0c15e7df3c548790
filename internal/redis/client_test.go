package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotificationChannel(t *testing.T) {
	assert.Equal(t, "notifications:acc-1", NotificationChannel("acc-1"))
}

func TestRateLimitKey(t *testing.T) {
	assert.Equal(t, "account:acc-1", RateLimitKey("account", "acc-1"))
}

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := NewClient("not-a-redis-url")
	assert.Error(t, err)
}
