package scan

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Source selects where repositories come from. Exactly one of URL, Dir and
// Nickname is set.
type Source struct {
	URL       string
	Dir       string
	Recursive bool
	Nickname  string
}

// user@host:path, the user part is optional.
var scpLike = regexp.MustCompile(`^([\w.-]+@)?[\w.-]+:[^/].*$`)

var cloneSchemes = map[string]bool{
	"http":  true,
	"https": true,
	"ssh":   true,
	"git":   true,
	"file":  true,
}

func (s Source) String() string {
	switch {
	case s.URL != "":
		return s.URL
	case s.Nickname != "":
		return "account " + s.Nickname
	default:
		return s.Dir
	}
}

func (s Source) Validate() error {
	set := 0
	for _, v := range []string{s.URL, s.Dir, s.Nickname} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return errors.New("specify exactly one of a url, a directory or a nickname")
	}
	if s.Recursive && s.Dir == "" {
		return errors.New("recursive scanning needs a directory")
	}
	if s.URL != "" {
		return ValidateURL(s.URL)
	}
	return nil
}

// ValidateURL accepts URLs git can clone from and scp-like ssh addresses.
func ValidateURL(raw string) error {
	if scpLike.MatchString(raw) {
		return nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if !cloneSchemes[strings.ToLower(u.Scheme)] {
		return fmt.Errorf("invalid url %q: unsupported scheme %q", raw, u.Scheme)
	}
	if u.Scheme != "file" && u.Host == "" {
		return fmt.Errorf("invalid url %q: missing host", raw)
	}
	if strings.Trim(u.Path, "/") == "" {
		return fmt.Errorf("invalid url %q: missing repository path", raw)
	}
	return nil
}
