//go:build !debug

package invariant

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheck_Holds(t *testing.T) {
	assert.True(t, Check(true, "always"))
}

func TestCheck_ReleaseReturnsFalse(t *testing.T) {
	assert.False(t, Enabled)
	assert.NotPanics(t, func() {
		assert.False(t, Check(false, "order count", "n", 20))
	})
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "weights", describe("weights"))
	assert.Equal(t, "weights [sum 0.9]", describe("weights", "sum", 0.9))
}
