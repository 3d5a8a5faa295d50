package selftest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpectedByteMatchesWordExtraction(t *testing.T) {
	// word 0 = 0x00000000, byte 0 (MSB) = 0x00, xor 0xde -> 0xde
	assert.Equal(t, byte(0xde), ExpectedByte(0))
	// word 1 (i=4..7) = 0x00000001; byte 3 (LSB) of i=7 is 0x01, xor 0xef
	assert.Equal(t, byte(0x01^0xef), ExpectedByte(7))
}

func TestVerifyPatternRoundTrips(t *testing.T) {
	data := GeneratePattern(1024, 0)
	assert.NoError(t, VerifyPattern(data, 0))

	data[10] ^= 0xff
	assert.Error(t, VerifyPattern(data, 0))
}

func TestVerifyPatternHonorsStartOffset(t *testing.T) {
	whole := GeneratePattern(32, 0)
	tail := GeneratePattern(16, 16)
	assert.Equal(t, whole[16:], tail)
	assert.NoError(t, VerifyPattern(tail, 16))
}
