package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringValue(t *testing.T) {
	s := "x"
	assert.Equal(t, "x", StringValue(&s))
	assert.Equal(t, "", StringValue(nil))
}

func TestGetCurrentTimeIsUTC(t *testing.T) {
	assert.Equal(t, "UTC", GetCurrentTime().Location().String())
}
