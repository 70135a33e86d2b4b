package dispatch

import "nit/internal/metadata"

// maxArgvChars caps how many characters of filenames a single one-shot
// invocation's argv may carry, splitting into multiple invocations past
// that point so a linter with thousands of matched files doesn't blow an
// OS or WASI argv length limit.
const maxArgvChars = 100_000

// Batches splits files into the invocation batches contract.InvocationMode
// calls for. ModePerFile always yields one file per batch. ModeOneShot
// and ModeStdinStream pack files greedily, respecting MaxFilenames (if
// set) and, for one-shot only, maxArgvChars (stdin framing has no argv
// length to blow).
func Batches(contract metadata.Contract, files []string) [][]string {
	switch contract.InvocationMode {
	case metadata.ModePerFile:
		out := make([][]string, len(files))
		for i, f := range files {
			out[i] = []string{f}
		}
		return out
	case metadata.ModeStdinStream:
		return packByCount(files, contract.MaxFilenames)
	default:
		return packByCountAndChars(files, contract.MaxFilenames, maxArgvChars)
	}
}

func packByCount(files []string, maxFilenames uint64) [][]string {
	if maxFilenames == 0 {
		return [][]string{files}
	}
	var out [][]string
	for len(files) > 0 {
		n := int(maxFilenames)
		if n > len(files) {
			n = len(files)
		}
		out = append(out, files[:n])
		files = files[n:]
	}
	return out
}

func packByCountAndChars(files []string, maxFilenames uint64, maxChars int) [][]string {
	var out [][]string
	var current []string
	currentChars := 0

	flush := func() {
		if len(current) > 0 {
			out = append(out, current)
			current = nil
			currentChars = 0
		}
	}

	for _, f := range files {
		overCount := maxFilenames > 0 && uint64(len(current)) >= maxFilenames
		overChars := len(current) > 0 && currentChars+len(f)+1 > maxChars
		if overCount || overChars {
			flush()
		}
		current = append(current, f)
		currentChars += len(f) + 1
	}
	flush()
	if len(out) == 0 {
		return nil
	}
	return out
}
