package model

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dataprov/dataprov/pkg/errors"
)

// ErrInvalidCreator indicates a creator string which does not follow
// the 'Forename Surname <email> [affiliation]' grammar
var ErrInvalidCreator = errors.New("invalid creator")

// Creator of a dataset or file. A value object: creators are compared
// by field equality and are not separately owned.
type Creator struct {
	Name        string `json:"name" yaml:"name"`
	Email       string `json:"email,omitempty" yaml:"email,omitempty"`
	Affiliation string `json:"affiliation,omitempty" yaml:"affiliation,omitempty"`
	_           struct{}
}

func (c *Creator) String() string {
	if c.Email == "" {
		return c.Name
	}
	if c.Name == "" {
		return c.Email
	}
	return fmt.Sprintf("%s <%s>", c.Name, c.Email)
}

var creatorRe = regexp.MustCompile(`^\s*(?P<name>[^<\[]+?)?\s*(?:<(?P<email>[^>]*)>)?\s*(?:\[(?P<affiliation>[^\]]*)\])?\s*$`)

// ParseCreator parses the constrained creator string grammar
// 'Forename Surname <email> [affiliation]'. Email and affiliation
// are optional.
func ParseCreator(s string) (Creator, error) {
	m := creatorRe.FindStringSubmatch(s)
	if m == nil {
		return Creator{}, ErrInvalidCreator.WrapMessage("cannot parse %q", s)
	}
	c := Creator{
		Name:        strings.TrimSpace(m[1]),
		Email:       strings.TrimSpace(m[2]),
		Affiliation: strings.TrimSpace(m[3]),
	}
	if c.Name == "" {
		return Creator{}, ErrInvalidCreator.WrapMessage("missing name in %q", s)
	}
	if c.Email != "" && !strings.Contains(c.Email, "@") {
		return Creator{}, ErrInvalidCreator.WrapMessage("malformed email %q in %q", c.Email, s)
	}
	return c, nil
}

// ParseCreators parses a list of creator strings
func ParseCreators(in []string) ([]Creator, error) {
	creators := make([]Creator, 0, len(in))
	for _, s := range in {
		c, err := ParseCreator(s)
		if err != nil {
			return nil, err
		}
		creators = append(creators, c)
	}
	return creators, nil
}

// CreatorsIntersect reports whether any creator name or email in a
// appears in the filter list b. Matching is case-insensitive on names.
func CreatorsIntersect(a []Creator, b []string) bool {
	for _, c := range a {
		for _, want := range b {
			if strings.EqualFold(c.Name, want) || (c.Email != "" && strings.EqualFold(c.Email, want)) {
				return true
			}
		}
	}
	return false
}

// CreatorsWithoutEmail lists the names of creators missing an email,
// for user-facing warnings
func CreatorsWithoutEmail(creators []Creator) []string {
	var missing []string
	for _, c := range creators {
		if c.Email == "" {
			missing = append(missing, c.Name)
		}
	}
	return missing
}
