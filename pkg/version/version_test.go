package version_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/typimports/pkg/version"
)

func TestInitBinaryVersion(t *testing.T) {
	t.Parallel()

	version.InitBinaryVersion()
	version.InitBinaryVersion()

	assert.NotEmpty(t, version.Version)
	assert.Contains(t, version.String(), "commit: ")
	assert.Contains(t, version.String(), version.Version)
}
