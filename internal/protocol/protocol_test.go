package protocol

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

var hex32 = regexp.MustCompile(`^[0-9a-fA-F]{32}$`)

func TestNewSessionIDIsThirtyTwoHexChars(t *testing.T) {
	id := NewSessionID()
	assert.Regexp(t, hex32, id)
}

func TestNewSessionIDIsUniqueAcrossCalls(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewSessionID()
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestIsSupportedVersion(t *testing.T) {
	assert.True(t, IsSupportedVersion(VersionLatest))
	assert.True(t, IsSupportedVersion(VersionLegacy))
	assert.False(t, IsSupportedVersion("1999-01-01"))
}

func TestNewResponseDefaultsEmptyResult(t *testing.T) {
	resp := NewResponse(1, nil)
	assert.Equal(t, struct{}{}, resp.Result)
	assert.Nil(t, resp.Error)
}
