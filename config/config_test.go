package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		FeeRate:                     0.15,
		ReservationTTLMinutes:       30,
		VoucherGraceMinutes:         4320,
		PayoutDelayDays:             map[string]int{"DEFAULT": 7, "PT": 7, "BR": 14},
		PayoutSafetyDelayHours:      0,
		DefaultSlotIntervalMinutes:  30,
		DefaultBookingWindowDays:    14,
		DefaultMinimumNoticeMinutes: 120,
	}
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	t.Run("fee rate at one", func(t *testing.T) {
		c := validConfig()
		c.FeeRate = 1
		assert.Error(t, c.Validate())
	})
	t.Run("missing default payout delay", func(t *testing.T) {
		c := validConfig()
		c.PayoutDelayDays = map[string]int{"PT": 7}
		assert.Error(t, c.Validate())
	})
	t.Run("non ISO country key", func(t *testing.T) {
		c := validConfig()
		c.PayoutDelayDays["PRT"] = 7
		assert.Error(t, c.Validate())
	})
	t.Run("negative delay", func(t *testing.T) {
		c := validConfig()
		c.PayoutDelayDays["BR"] = -1
		assert.Error(t, c.Validate())
	})
	t.Run("slot interval outside allowed set", func(t *testing.T) {
		c := validConfig()
		c.DefaultSlotIntervalMinutes = 7
		assert.Error(t, c.Validate())
	})
	t.Run("reservation ttl must be positive", func(t *testing.T) {
		c := validConfig()
		c.ReservationTTLMinutes = 0
		assert.Error(t, c.Validate())
	})
}

func TestPayoutDelayFor(t *testing.T) {
	c := validConfig()
	assert.Equal(t, 14, c.PayoutDelayFor("BR"))
	assert.Equal(t, 14, c.PayoutDelayFor("br"))
	assert.Equal(t, 7, c.PayoutDelayFor("US")) // falls back to DEFAULT
}

func TestRejectUnknownKeys(t *testing.T) {
	assert.NoError(t, rejectUnknownKeys(map[string]any{"app_port": "8080", "fee_rate": 0.2}))
	assert.Error(t, rejectUnknownKeys(map[string]any{"app_prot": "8080"}))
}
