package trigger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContinuous_FiresEveryFrame(t *testing.T) {
	p := New(Continuous, 0)
	for i := 0; i < 5; i++ {
		assert.True(t, p.Fire())
	}
	p.Request()
	assert.False(t, p.Pending())
}

func TestOnDemand_OneRequestOneFiring(t *testing.T) {
	p := New(OnDemand, 0)
	assert.False(t, p.Fire())

	p.Request()
	p.Request()
	assert.True(t, p.Pending())
	assert.True(t, p.Fire())
	assert.False(t, p.Fire())
	assert.False(t, p.Pending())
}

func TestOverBudget(t *testing.T) {
	p := New(Continuous, 50*time.Millisecond)
	assert.False(t, p.OverBudget(10*time.Millisecond))
	assert.True(t, p.OverBudget(80*time.Millisecond))

	assert.False(t, New(Continuous, 0).OverBudget(time.Hour))
	assert.False(t, New(OnDemand, time.Millisecond).OverBudget(time.Second))
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{
		"continuous": Continuous,
		"on_demand":  OnDemand,
		"On-Demand":  OnDemand,
		"ondemand":   OnDemand,
	} {
		t.Run(in, func(t *testing.T) {
			m, err := ParseMode(in)
			require.NoError(t, err)
			assert.Equal(t, want, m)
		})
	}
	_, err := ParseMode("sometimes")
	assert.Error(t, err)
	assert.Equal(t, "on_demand", OnDemand.String())
}
