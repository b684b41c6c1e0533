package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	Version, GitCommit = "1.2.3", "abc123"
	t.Cleanup(func() { Version, GitCommit = "0.1.0", "unknown" })

	s := String()
	assert.Contains(t, s, "plant-rover 1.2.3")
	assert.Contains(t, s, "commit abc123")
}
