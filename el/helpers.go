package el

import (
	"sort"
	"strconv"
	"strings"
)

// ClassNames joins the class names whose value is true, in sorted order.
//
//	el.ClassNames(map[string]bool{"message": true, "bot": isBot})
func ClassNames(classes map[string]bool) string {
	var names []string
	for _, name := range sortedKeys(classes) {
		if classes[name] && name != "" {
			names = append(names, name)
		}
	}
	return strings.Join(names, " ")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func itoa(n int) string { return strconv.Itoa(n) }
