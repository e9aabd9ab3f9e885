package identity

import "fmt"

// Unknown is printed in place of an empty name or email.
const Unknown = "(unknown)"

type Role int

const (
	Author Role = iota
	Committer
)

func (r Role) String() string {
	if r == Committer {
		return "committer"
	}
	return "author"
}

// CommitRecord is the author and committer metadata of a single commit.
// Missing fields are empty strings.
type CommitRecord struct {
	Hash           string
	Repository     string
	AuthorName     string
	AuthorEmail    string
	CommitterName  string
	CommitterEmail string
}

func (c CommitRecord) Author() Identity {
	return Identity{Name: c.AuthorName, Email: c.AuthorEmail}
}

func (c CommitRecord) Committer() Identity {
	return Identity{Name: c.CommitterName, Email: c.CommitterEmail}
}

// Identity is a (name, email) pair observed in commit metadata.
type Identity struct {
	Name  string `json:"name" yaml:"name"`
	Email string `json:"email" yaml:"email"`
}

func (i Identity) DisplayName() string {
	return display(i.Name)
}

func (i Identity) DisplayEmail() string {
	return display(i.Email)
}

func (i Identity) String() string {
	return fmt.Sprintf("%s <%s>", i.DisplayName(), i.DisplayEmail())
}

func display(s string) string {
	if s == "" {
		return Unknown
	}
	return s
}

type RoleCounts struct {
	Author    int
	Committer int
}

func (c RoleCounts) Total() int {
	return c.Author + c.Committer
}

// Sample is a commit an identity appears in, used to look the identity up on
// the hosting platform.
type Sample struct {
	Repository string
	Hash       string
	Role       Role
}

func (s Sample) less(o Sample) bool {
	if s.Repository != o.Repository {
		return s.Repository < o.Repository
	}
	if s.Hash != o.Hash {
		return s.Hash < o.Hash
	}
	return s.Role < o.Role
}

type Statistics struct {
	Identity   Identity
	Counts     RoleCounts
	Names      []string
	Emails     []string
	Correlated []Identity
	Account    string
}

type GlobalStatistics struct {
	Commits      int
	Names        int
	Emails       int
	Identities   int
	Repositories int
	Skipped      int
}

// EmailGroup is an email paired with more than one name.
type EmailGroup struct {
	Email string
	Names []string
}

// NameGroup is a name paired with more than one email.
type NameGroup struct {
	Name   string
	Emails []string
}

// PersonGroup is a set of names that were seen with exactly the same emails.
type PersonGroup struct {
	Names  []string
	Emails []string
}

type Skip struct {
	Origin string
	Reason string
}
