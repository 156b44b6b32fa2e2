package logging

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLevel("debug"))
	assert.Equal(t, WarnLevel, ParseLevel("warn"))
	assert.Equal(t, FatalLevel, ParseLevel("fatal"))
	assert.Equal(t, InfoLevel, ParseLevel("nonsense"))
	assert.Equal(t, InfoLevel, ParseLevel(""))
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", DebugLevel.String())
	assert.Equal(t, "ERROR", ErrorLevel.String())
	assert.Equal(t, "UNKNOWN", Level(99).String())
}

func TestFormatMessage(t *testing.T) {
	l := NewDefaultLoggerNoColor()

	msg := l.formatMessage(InfoLevel, nil, "hello")
	assert.Equal(t, "[INFO] hello", msg)

	msg = l.formatMessage(ErrorLevel, errors.New("boom"), "failed")
	assert.Equal(t, "[ERROR] failed: boom", msg)

	msg = l.formatMessage(InfoLevel, nil, "hop", Fields{"count": 3})
	assert.Contains(t, msg, "count:3")
}

func TestWithFieldsMerges(t *testing.T) {
	base := NewDefaultLoggerNoColor().WithFields(Fields{"component": "engine"})
	child, ok := base.WithFields(Fields{"hop": 7}).(*DefaultLogger)
	assert.True(t, ok)

	msg := child.formatMessage(InfoLevel, nil, "tick")
	assert.Contains(t, msg, "component:engine")
	assert.Contains(t, msg, "hop:7")
}

func TestGlobalLoggerSwap(t *testing.T) {
	original := GetGlobalLogger()
	defer SetGlobalLogger(original)

	noop := &NoOpLogger{}
	SetGlobalLogger(noop)
	assert.Same(t, noop, GetGlobalLogger())

	// Package helpers must route through the swapped logger without panic
	Debug("quiet")
	Info("quiet")
	Error(errors.New("x"), "quiet")
}
