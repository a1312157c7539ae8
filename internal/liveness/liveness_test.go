package liveness

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStartsUnknown(t *testing.T) {
	m := New(10 * time.Second)
	assert.Equal(t, Unknown, m.State())
	assert.Equal(t, "", m.State().String())
}

func TestUnknownExpiresToDeadOnFirstDeadline(t *testing.T) {
	m := New(10 * time.Second)
	changed := m.CheckExpired()
	assert.True(t, changed, "no input at all still reaches a deadline and must publish alive=0")
	assert.Equal(t, Dead, m.State())

	changed = m.CheckExpired()
	assert.False(t, changed, "already dead, no transition")
}

func TestTouchGoesAlive(t *testing.T) {
	m := New(10 * time.Second)
	changed := m.Touch()
	assert.True(t, changed)
	assert.Equal(t, Alive, m.State())
	assert.Equal(t, "1", m.State().String())

	changed = m.Touch()
	assert.False(t, changed, "already alive, no transition")
}

func TestExpiryAfterTouchGoesDead(t *testing.T) {
	m := New(10 * time.Second)
	m.Touch()
	changed := m.CheckExpired()
	assert.True(t, changed)
	assert.Equal(t, Dead, m.State())
	assert.Equal(t, "0", m.State().String())

	changed = m.CheckExpired()
	assert.False(t, changed, "already dead, no transition")
}

func TestTouchRevivesFromDead(t *testing.T) {
	m := New(10 * time.Second)
	m.Touch()
	m.CheckExpired()
	changed := m.Touch()
	assert.True(t, changed)
	assert.Equal(t, Alive, m.State())
}

func TestSetDeadAfterUpdatesDeadline(t *testing.T) {
	m := New(10 * time.Second)
	m.SetDeadAfter(5 * time.Second)
	assert.Equal(t, 5*time.Second, m.Deadline())
}
