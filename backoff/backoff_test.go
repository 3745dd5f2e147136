package backoff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDecideAuthentication(t *testing.T) {
	p := Policy{}

	for attempts := uint(1); attempts < 10; attempts++ {
		d := p.Decide(ClassAuthentication, attempts)
		assert.True(t, d.Retry)
		assert.Equal(t, 5*time.Minute, d.Delay)
	}
}

func TestDecideTooManyConnections(t *testing.T) {
	p := Policy{}

	d := p.Decide(ClassTooManyConnections, 1)
	assert.True(t, d.Retry)
	assert.Equal(t, 2*time.Minute, d.Delay)
}

func TestDecideTransientBackoff(t *testing.T) {
	p := Policy{}

	expected := []time.Duration{
		5 * time.Second,
		10 * time.Second,
		20 * time.Second,
		40 * time.Second,
		time.Minute,
		time.Minute,
	}

	for i, want := range expected {
		d := p.Decide(ClassTransient, uint(i+1))
		assert.True(t, d.Retry)
		assert.Equal(t, want, d.Delay, "attempt %d", i+1)
	}
}

func TestDecideExhaustion(t *testing.T) {
	p := Policy{}

	for _, class := range []ErrorClass{ClassTransient, ClassTooManyConnections, ClassAuthentication} {
		d := p.Decide(class, 10)
		assert.False(t, d.Retry, "class %v", class)

		d = p.Decide(class, 11)
		assert.False(t, d.Retry, "class %v", class)
	}
}

func TestDecideMaxAttemptsOverride(t *testing.T) {
	p := Policy{MaxAttempts: 3}

	assert.True(t, p.Decide(ClassTransient, 2).Retry)
	assert.False(t, p.Decide(ClassTransient, 3).Retry)
}
