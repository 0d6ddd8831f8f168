package pathutil

import "strings"

// Breadcrumb is one navigable step of a folder path
type Breadcrumb struct {
	Name    string `json:"name"`
	URLPath string `json:"url_path"`
}

// Breadcrumbs splits path into its non-empty segments. Each entry's URLPath is
// the prefix up to and including that segment, with a trailing slash.
// Empty input yields an empty, non-nil slice.
func Breadcrumbs(path string) []Breadcrumb {
	crumbs := []Breadcrumb{}

	var prefix strings.Builder
	for _, segment := range strings.Split(path, "/") {
		if segment == "" {
			continue
		}
		if prefix.Len() > 0 {
			prefix.WriteByte('/')
		}
		prefix.WriteString(segment)

		crumbs = append(crumbs, Breadcrumb{
			Name:    segment,
			URLPath: prefix.String() + "/",
		})
	}

	return crumbs
}
