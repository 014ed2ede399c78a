package source

import "strings"

// Dedent removes the longest leading whitespace prefix shared by all non-blank
// lines. Whitespace-only lines become empty. Tabs and spaces are not
// interchangeable.
func Dedent(lines []string) []string {
	margin, found := "", false
	for _, line := range lines {
		body := strings.TrimLeft(line, " \t")
		if body == "" {
			continue
		}
		indent := line[:len(line)-len(body)]
		if !found {
			margin, found = indent, true
			continue
		}
		margin = commonPrefix(margin, indent)
		if margin == "" {
			break
		}
	}

	out := make([]string, len(lines))
	for i, line := range lines {
		if strings.TrimLeft(line, " \t") == "" {
			continue
		}
		out[i] = line[len(margin):]
	}
	return out
}

func commonPrefix(a, b string) string {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return a[:i]
		}
	}
	return a[:n]
}
