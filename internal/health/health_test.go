package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ok(context.Context) error { return nil }

func TestCheckAllHealthy(t *testing.T) {
	c := NewChecker("test")
	c.Register("store", ok)
	c.Register("ledger", ok)

	r := c.Check(context.Background())
	assert.Equal(t, Healthy, r.Status)
	require.Len(t, r.Components, 2)
	assert.Equal(t, "ledger", r.Components[0].Name)
	assert.Equal(t, "store", r.Components[1].Name)
	assert.Equal(t, "test", r.Version)
}

func TestOptionalFailureDegrades(t *testing.T) {
	c := NewChecker("test")
	c.Register("store", ok)
	c.RegisterOptional("keys", func(context.Context) error { return errors.New("missing vk") })

	r := c.Check(context.Background())
	assert.Equal(t, Degraded, r.Status)
	assert.Equal(t, "missing vk", r.Components[0].Message)
}

func TestRequiredFailureIsUnhealthy(t *testing.T) {
	c := NewChecker("test")
	c.RegisterOptional("keys", func(context.Context) error { return errors.New("missing vk") })
	c.Register("store", func(context.Context) error { return errors.New("locked") })

	r := c.Check(context.Background())
	assert.Equal(t, Unhealthy, r.Status)
	assert.Equal(t, Degraded, r.Components[0].Status)
	assert.Equal(t, Unhealthy, r.Components[1].Status)
}
