package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireLockIsExclusive(t *testing.T) {
	dir := t.TempDir()

	lock, err := AcquireLock(dir)
	require.NoError(t, err)

	_, err = AcquireLock(dir)
	assert.ErrorContains(t, err, "already running")

	require.NoError(t, lock.Unlock())

	lock, err = AcquireLock(dir)
	require.NoError(t, err)
	require.NoError(t, lock.Unlock())
}
