package discover

import (
	"sort"
	"strings"
)

// Less orders slash-separated relative paths component by component. Within a
// directory its files come before anything inside its subdirectories, and names
// compare bytewise, so "x.txt" < "b/y.txt" < "b/c/z.txt".
func Less(a, b string) bool {
	as := strings.Split(a, "/")
	bs := strings.Split(b, "/")
	for i := 0; ; i++ {
		aLast := i == len(as)-1
		bLast := i == len(bs)-1
		if aLast != bLast {
			return aLast
		}
		if as[i] != bs[i] {
			return as[i] < bs[i]
		}
		if aLast {
			return false
		}
	}
}

// SortUnique sorts paths by Less and drops duplicates in place.
func SortUnique(paths []string) []string {
	sort.Slice(paths, func(i, j int) bool { return Less(paths[i], paths[j]) })

	out := paths[:0]
	for _, p := range paths {
		if len(out) > 0 && out[len(out)-1] == p {
			continue
		}
		out = append(out, p)
	}
	return out
}
