package entity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/intersection-ctl-oss/entity"
)

func TestStreet(t *testing.T) {
	assert.Equal(t, "V", entity.StreetV.String())
	assert.Equal(t, "H", entity.StreetH.String())
	assert.Equal(t, entity.StreetH, entity.StreetV.Other())
	assert.Equal(t, entity.StreetV, entity.StreetH.Other())
	assert.True(t, entity.StreetV.Valid())
	assert.False(t, entity.Street(2).Valid())

	s, err := entity.ParseStreet("v")
	require.NoError(t, err)
	assert.Equal(t, entity.StreetV, s)
	s, err = entity.ParseStreet("H")
	require.NoError(t, err)
	assert.Equal(t, entity.StreetH, s)
	_, err = entity.ParseStreet("X")
	assert.Error(t, err)
}

func TestParseMode(t *testing.T) {
	for want, name := range map[entity.Mode]string{
		entity.ModeNormal:      "NORMAL",
		entity.ModeNight:       "NIGHT",
		entity.ModeMaintenance: "MAINTENANCE",
		entity.ModeEmergency:   "EMERGENCY",
	} {
		m, err := entity.ParseMode(name)
		require.NoError(t, err)
		assert.Equal(t, want, m)
	}
	_, err := entity.ParseMode("normal")
	assert.Error(t, err)
}

func TestSignalAssignmentDiff(t *testing.T) {
	var prev, next entity.SignalAssignment
	prev.Set(entity.ChannelVGreen, true)
	prev.Set(entity.ChannelHRed, true)
	next.Set(entity.ChannelVYellow, true)
	next.Set(entity.ChannelHRed, true)

	assert.Equal(t, []entity.SignalChange{
		{Channel: entity.ChannelVYellow, On: true},
		{Channel: entity.ChannelVGreen, On: false},
	}, next.Diff(prev))

	// test: 无变化
	assert.Empty(t, next.Diff(next))
}

func TestSignalAssignmentString(t *testing.T) {
	var a entity.SignalAssignment
	assert.Equal(t, "OFF", a.String())
	a.Set(entity.ChannelVRed, true)
	a.Set(entity.ChannelHPedStop, true)
	assert.Equal(t, "V_RED|H_PED_STOP", a.String())
}
