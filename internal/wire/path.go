package wire

// EncodePath writes a length-prefixed (16-bit) path name: a uint16
// byte count followed by the raw path bytes (spec §4.1).
func EncodePath(w *Buffer, path string) {
	b := []byte(path)
	w.Uint16(uint16(len(b)))
	w.Bytes(b)
}

// DecodePath reads a length-prefixed path name.
func DecodePath(r *Reader) string {
	n := r.Uint16()
	if r.Err() != nil {
		return ""
	}
	b := r.Bytes(int(n))
	return string(b)
}
