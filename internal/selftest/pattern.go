package selftest

import "fmt"

// xorPattern is the 4-byte cycle XORed into the test fixture's content
// (spec §4.10, §8 scenario 5).
var xorPattern = [4]byte{0xde, 0xad, 0xbe, 0xef}

// ExpectedByte reproduces spec §8 scenario 5's byte-generator exactly:
// "i -> (((i >> 2) >> ((3-(i & 3))*8)) & 0xff) ^ {0xde,0xad,0xbe,0xef}[i & 3]"
// — the big-endian byte at position i&3 of the 32-bit word (i>>2), XORed
// with the 4-byte pattern cycling on i&3.
func ExpectedByte(i int64) byte {
	word := uint32(i >> 2)
	shift := uint((3 - (i & 3)) * 8)
	b := byte((word >> shift) & 0xff)
	return b ^ xorPattern[i&3]
}

// VerifyPattern checks that data matches the expected XOR-patterned
// content starting at startOffset, returning the first mismatch found.
func VerifyPattern(data []byte, startOffset int64) error {
	for n, got := range data {
		i := startOffset + int64(n)
		want := ExpectedByte(i)
		if got != want {
			return fmt.Errorf("byte offset %d: want 0x%02x, got 0x%02x", i, want, got)
		}
	}
	return nil
}

// GeneratePattern fills a buffer of size n with the XOR-patterned test
// content starting at startOffset, for building the selftest fixture
// file on disk.
func GeneratePattern(n int, startOffset int64) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = ExpectedByte(startOffset + int64(i))
	}
	return out
}
