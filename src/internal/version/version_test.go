// FILE: logweave/src/internal/version/version_test.go
package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersionStrings(t *testing.T) {
	assert.Equal(t, "dev", Short())
	assert.Equal(t, "logweave/dev", UserAgent())
	assert.Contains(t, String(), "commit: unknown")
}
