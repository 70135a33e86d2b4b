package wasmsection

import (
	"bytes"
	"fmt"
)

var magic = []byte{0x00, 'a', 's', 'm'}

const (
	moduleLayer = "module"
	componentLayer = "component"
)

// preamble describes the 8-byte header every WASM module or component
// binary starts with: the magic number followed by a version/layer pair
// whose interpretation depends on which kind of binary this is.
type preamble struct {
	kind string
}

func readPreamble(b []byte) (preamble, error) {
	if len(b) < 8 {
		return preamble{}, fmt.Errorf("WASM_HEADER: file too short: %d bytes, need >= 8", len(b))
	}
	if !bytes.Equal(b[0:4], magic) {
		return preamble{}, fmt.Errorf("WASM_HEADER: missing magic number, found %v", b[0:4])
	}
	version := b[4:6]
	layer := b[6:8]
	switch {
	case bytes.Equal(layer, []byte{0, 0}):
		if !bytes.Equal(version, []byte{1, 0}) {
			return preamble{}, fmt.Errorf("WASM_HEADER: module version must be 1.0, found %v", version)
		}
		return preamble{kind: moduleLayer}, nil
	case bytes.Equal(layer, []byte{1, 0}):
		if !bytes.Equal(version, []byte{13, 0}) {
			return preamble{}, fmt.Errorf("WASM_HEADER: component version must be 13.0, found %v", version)
		}
		return preamble{kind: componentLayer}, nil
	default:
		return preamble{}, fmt.Errorf("WASM_HEADER: unrecognized layer %v", layer)
	}
}

const customSectionID = 0x00

// Range is a byte span within the module, [Start, End).
type Range struct {
	Start, End int
}

// FindCustom returns every top-level custom section in b named name: the
// byte ranges of the whole section (for removal/replacement) and the
// section's payload (name-prefix stripped). It does not recurse into
// nested modules of a component.
func FindCustom(b []byte, name string) ([]Range, [][]byte, error) {
	if _, err := readPreamble(b); err != nil {
		return nil, nil, err
	}

	var ranges []Range
	var contents [][]byte

	offset := 8
	for offset < len(b) {
		sectionStart := offset
		sectionID := b[offset]
		offset++

		size, n, ok := Uvarint32(b[offset:])
		if !ok {
			return nil, nil, fmt.Errorf("WASM_SECTION: failed to read section size at offset %d", offset)
		}
		offset += n

		sectionEnd := offset + int(size)
		if sectionEnd > len(b) {
			return nil, nil, fmt.Errorf("WASM_SECTION: section size %d exceeds remaining bytes at offset %d", size, offset)
		}

		if sectionID == customSectionID {
			nameLen, nlen, ok := Uvarint32(b[offset:sectionEnd])
			if !ok {
				return nil, nil, fmt.Errorf("WASM_SECTION: failed to read custom section name length at offset %d", offset)
			}
			nameStart := offset + nlen
			nameEnd := nameStart + int(nameLen)
			if nameEnd > sectionEnd {
				return nil, nil, fmt.Errorf("WASM_SECTION: custom section name length %d exceeds section size", nameLen)
			}
			if string(b[nameStart:nameEnd]) == name {
				ranges = append(ranges, Range{Start: sectionStart, End: sectionEnd})
				contents = append(contents, b[nameEnd:sectionEnd])
			}
		}

		offset = sectionEnd
	}

	return ranges, contents, nil
}

// MakeCustom builds a standalone custom section (section ID, LEB128
// length, then a LEB128-length-prefixed name followed by content) ready
// to be spliced into a module.
func MakeCustom(name string, content []byte) []byte {
	nameBytes := []byte(name)
	var body []byte
	body = PutUvarint32(body, uint32(len(nameBytes)))
	body = append(body, nameBytes...)
	body = append(body, content...)

	section := []byte{customSectionID}
	section = PutUvarint32(section, uint32(len(body)))
	section = append(section, body...)
	return section
}

// ReplaceCustom returns a copy of b with every existing custom section
// named name removed and a single new one (wrapping content) appended
// at the end of the module. Used by the metadata-write tool (component I) to set
// or update a module's contract.
func ReplaceCustom(b []byte, name string, content []byte) ([]byte, error) {
	ranges, _, err := FindCustom(b, name)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(b)+len(content)+16)
	out = append(out, b[:8]...)

	cursor := 8
	for _, r := range ranges {
		out = append(out, b[cursor:r.Start]...)
		cursor = r.End
	}
	out = append(out, b[cursor:]...)
	out = append(out, MakeCustom(name, content)...)
	return out, nil
}
