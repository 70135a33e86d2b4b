// Package wasmsection implements the narrow slice of the WASM binary
// format nit needs: reading and writing a single custom section by name.
// Ported idiomatically from original_source/leb128.rs and wasm.rs — the
// bit-twiddling is kept (LEB128 is LEB128 in any language) but expressed
// as ordinary Go loops rather than the original's branch-free encoding
// trick, since clarity matters more than a handful of saved branches here.
package wasmsection

// PutUvarint32 appends n to buf as an unsigned LEB128 value and returns
// the extended slice.
func PutUvarint32(buf []byte, n uint32) []byte {
	for {
		b := byte(n & 0x7f)
		n >>= 7
		if n != 0 {
			buf = append(buf, b|0x80)
			continue
		}
		return append(buf, b)
	}
}

// Uvarint32 decodes an unsigned LEB128 value from the start of b,
// returning the value and the number of bytes consumed. ok is false if b
// is exhausted before a terminating byte is found (max 5 bytes for a
// 32-bit value).
func Uvarint32(b []byte) (value uint32, n int, ok bool) {
	for i := 0; i < 5 && i < len(b); i++ {
		value |= uint32(b[i]&0x7f) << (7 * i)
		if b[i]&0x80 == 0 {
			return value, i + 1, true
		}
	}
	return 0, 0, false
}
