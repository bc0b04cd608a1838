package main

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/oddscope/matchpulse/internal/config"
)

func TestSetupLogging(t *testing.T) {
	setupLogging(&config.Config{LogLevel: "debug"})
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())

	// Unknown levels fall back to info instead of failing startup.
	setupLogging(&config.Config{LogLevel: "shout"})
	assert.Equal(t, logrus.InfoLevel, logrus.GetLevel())

	setupLogging(&config.Config{LogLevel: "info"})
}
