package logger

import (
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestLevelFromEnv(t *testing.T) {
	assert.Equal(t, log.DebugLevel, levelFromEnv(""))
	assert.Equal(t, log.WarnLevel, levelFromEnv("warn"))
	assert.Equal(t, log.DebugLevel, levelFromEnv("loud"))
}

func TestGetLoggerAnnotatesCaller(t *testing.T) {
	entry := GetLogger()
	assert.Equal(t, "story-syndication", entry.Data["service"])
	assert.Contains(t, entry.Data["function"], "TestGetLoggerAnnotatesCaller")
}
