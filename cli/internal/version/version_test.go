package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShortIncludesVersionAndPlatform(t *testing.T) {
	s := Short()
	assert.Contains(t, s, "driftlock")
	assert.Contains(t, s, Version)
}

func TestDetailIncludesBuildMetadata(t *testing.T) {
	d := Detail()
	assert.Contains(t, d, Short())
	assert.Contains(t, d, Commit)
	assert.Contains(t, d, BuildDate)
}
