package pathfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDotDotRelative(t *testing.T) {
	got, err := Normalize(`\\vol1\dir1`, `..\dir5`, "MFSDIR")
	require.NoError(t, err)
	assert.Equal(t, `\\vol1\dir5`, got)
}

func TestNormalizeDotDotTrailingBackslashes(t *testing.T) {
	got, err := Normalize(`\\vol1\dir1\dir2`, `..\\\`, "MFSDIR")
	require.NoError(t, err)
	assert.Equal(t, `\\vol1\dir1`, got)
}

func TestNormalizeRejectsTooManyLeadingBackslashes(t *testing.T) {
	_, err := Normalize(`\\vol1`, `\\\\\\\\`, "MFSDIR")
	assert.Error(t, err)
}

func TestNormalizeTildeExpansion(t *testing.T) {
	got, err := Normalize(`\\vol1`, `~\`, "MFSDIR")
	require.NoError(t, err)
	assert.Equal(t, `\\vol1\MFSDIR`, got)
}

func TestNormalizeTildeAwayFromRootIsRegularName(t *testing.T) {
	got, err := Normalize(`\\vol1\dir1`, `~`, "MFSDIR")
	require.NoError(t, err)
	assert.Equal(t, `\\vol1\dir1\~`, got)
}

func TestNormalizeRejectsEmptyVolume(t *testing.T) {
	_, err := Normalize(`\\vol1`, `\\\\`, "MFSDIR")
	assert.Error(t, err)
}

func TestNormalizeRejectsTildeAsVolume(t *testing.T) {
	_, err := Normalize(`\\vol1`, `\\~\dir1`, "MFSDIR")
	assert.Error(t, err)
}

func TestNormalizeRejectsTildeAfterSingleBackslash(t *testing.T) {
	_, err := Normalize(`\\vol1`, `\~\dir1`, "MFSDIR")
	assert.Error(t, err)
}

func TestNormalizeRejectsForbiddenChar(t *testing.T) {
	_, err := Normalize(`\\vol1`, `dir*1`, "MFSDIR")
	assert.Error(t, err)
}

func TestNormalizeDotDotStaysAtVolumeRoot(t *testing.T) {
	got, err := Normalize(`\\vol1`, `..`, "MFSDIR")
	require.NoError(t, err)
	assert.Equal(t, `\\vol1`, got)
}

func TestNormalizeAbsolutePath(t *testing.T) {
	got, err := Normalize(`\\vol1\dir1`, `\\vol2\dirA\dirB`, "MFSDIR")
	require.NoError(t, err)
	assert.Equal(t, `\\vol2\dirA\dirB`, got)
}

func TestToHost(t *testing.T) {
	vols := []Volume{{Name: "vol1", HostRoot: "/srv/vol1"}}
	got, err := ToHost(`\\vol1\dir1\file.txt`, vols)
	require.NoError(t, err)
	assert.Equal(t, "/srv/vol1/dir1/file.txt", got)
}

func TestToHostUnknownVolume(t *testing.T) {
	_, err := ToHost(`\\nope\dir1`, []Volume{{Name: "vol1", HostRoot: "/srv/vol1"}})
	assert.Error(t, err)
}
