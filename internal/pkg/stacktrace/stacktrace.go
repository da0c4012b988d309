package stacktrace

import "strings"

// InternalPaths returns the "internal/<pkg>/<file>.go:<line>" locations of a
// raw stack trace (as produced by runtime/debug.Stack), innermost first.
// Frames outside internal packages are skipped.
func InternalPaths(stack []byte) []string {
	var paths []string
	for line := range strings.SplitSeq(string(stack), "\n") {
		line = strings.TrimSpace(line)

		internalIdx := strings.Index(line, "/internal/")
		goIdx := strings.Index(line, ".go:")
		if internalIdx == -1 || goIdx == -1 || goIdx < internalIdx {
			continue
		}

		loc := line[internalIdx+1:]
		if end := strings.IndexByte(loc, ' '); end != -1 {
			loc = loc[:end]
		}
		paths = append(paths, loc)
	}

	return paths
}
