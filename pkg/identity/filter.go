package identity

import (
	"fmt"
	"path"
	"strings"
)

// DefaultSystemEmails are committer addresses used by hosting infrastructure,
// for example web merges on GitHub.
var DefaultSystemEmails = []string{
	"noreply@github.com",
}

// Filter excludes system accounts by glob patterns over emails and names.
// Email patterns are matched case-insensitively.
type Filter struct {
	emails []string
	names  []string
}

func NewFilter(emails, names []string) (*Filter, error) {
	f := &Filter{}
	for _, p := range emails {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if _, err := path.Match(p, ""); err != nil {
			return nil, fmt.Errorf("invalid email pattern %q: %w", p, err)
		}
		f.emails = append(f.emails, p)
	}
	for _, p := range names {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, err := path.Match(p, ""); err != nil {
			return nil, fmt.Errorf("invalid name pattern %q: %w", p, err)
		}
		f.names = append(f.names, p)
	}
	return f, nil
}

// Excludes is safe to call on a nil filter.
func (f *Filter) Excludes(id Identity) bool {
	if f == nil {
		return false
	}
	email := strings.ToLower(id.Email)
	for _, p := range f.emails {
		if ok, _ := path.Match(p, email); ok {
			return true
		}
	}
	for _, p := range f.names {
		if ok, _ := path.Match(p, id.Name); ok {
			return true
		}
	}
	return false
}
