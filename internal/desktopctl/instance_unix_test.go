//go:build unix

package desktopctl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireInstanceIsExclusive(t *testing.T) {
	dir := t.TempDir()

	first, err := AcquireInstance(dir, "tray")
	require.NoError(t, err)

	second, err := AcquireInstance(dir, "tray")
	assert.ErrorIs(t, err, ErrAlreadyRunning)
	assert.Nil(t, second)

	other, err := AcquireInstance(dir, "other")
	require.NoError(t, err)
	other.Release()

	first.Release()
	first.Release()

	again, err := AcquireInstance(dir, "tray")
	require.NoError(t, err)
	again.Release()
}
