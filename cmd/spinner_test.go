package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSpinner_StartStop(t *testing.T) {
	var buf bytes.Buffer
	s := newSpinner(&buf)

	s.Start("Upload")
	time.Sleep(2 * spinInterval)
	s.Stop()

	assert.Nil(t, s.bar)
	assert.Equal(t, 0, s.depth)
}

func TestSpinner_Nested(t *testing.T) {
	s := newSpinner(&bytes.Buffer{})

	s.Start("Customer Analysis")
	s.Start("Risk Identification")
	s.Stop()
	assert.NotNil(t, s.bar, "outer call still in flight")
	s.Stop()
	assert.Nil(t, s.bar)
}

func TestSpinner_StopWithoutStart(t *testing.T) {
	s := newSpinner(&bytes.Buffer{})
	assert.NotPanics(t, func() { s.Stop() })
}
