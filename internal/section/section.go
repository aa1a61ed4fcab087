// Package section names the fixed content regions of the page.
package section

import "strings"

// ID identifies one content region. It doubles as the element id in the
// rendered page and as the navigation target.
type ID string

const (
	Home         ID = "home"
	About        ID = "about"
	Experience   ID = "experience"
	Projects     ID = "projects"
	Skills       ID = "skills"
	Achievements ID = "achievements"
	Contact      ID = "contact"
)

// All is the declaration order. Activation ties are broken by it.
var All = []ID{Home, About, Experience, Projects, Skills, Achievements, Contact}

var labels = map[ID]string{
	Home:         "Home",
	About:        "About",
	Experience:   "Experience",
	Projects:     "Projects",
	Skills:       "Skills",
	Achievements: "Achievements",
	Contact:      "Contact",
}

// Parse maps s to a known section, ignoring case and surrounding space.
func Parse(s string) (ID, bool) {
	id := ID(strings.ToLower(strings.TrimSpace(s)))
	_, ok := labels[id]
	return id, ok
}

// Label returns the navigation caption for id.
func Label(id ID) string {
	if l, ok := labels[id]; ok {
		return l
	}
	return string(id)
}

// Index returns the position of id in All, or -1.
func Index(id ID) int {
	for i, s := range All {
		if s == id {
			return i
		}
	}
	return -1
}
