package verify

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindBuildInfo(t *testing.T) {
	dir := writeBuildInfo(t)

	info, err := FindBuildInfo(dir, testSource, testContract)
	require.NoError(t, err)

	assert.Equal(t, "bbb", info.ID)
	assert.Equal(t, "v0.8.24+commit.e11b9ed9", info.CompilerVersion())
	assert.True(t, info.Contains(testSource, testContract))
	assert.False(t, info.Contains("contracts/Lock.sol", "Lock"))
}

func TestFindBuildInfoNotFound(t *testing.T) {
	_, err := FindBuildInfo(t.TempDir(), testSource, testContract)

	require.ErrorIs(t, err, ErrBuildInfoNotFound)
}

func TestFindBuildInfoInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0o600))

	_, err := FindBuildInfo(dir, testSource, testContract)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid build info")
}

func TestFindBuildInfoWithoutInput(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "x.json"), []byte(
		`{"output":{"contracts":{"contracts/AidRouteMissions.sol":{"AidRouteMissions":{}}}}}`), 0o600))

	_, err := FindBuildInfo(dir, testSource, testContract)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing compiler input")
}

func TestIsAlreadyVerified(t *testing.T) {
	assert.False(t, IsAlreadyVerified(nil))
	assert.True(t, IsAlreadyVerified(ErrAlreadyVerified))
	assert.True(t, IsAlreadyVerified(errors.New("Reason: Already Verified")))
	assert.False(t, IsAlreadyVerified(assert.AnError))
}
