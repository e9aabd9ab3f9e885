// Package report renders an identity.State for people and for tools.
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"gitpersona/pkg/identity"
)

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatText, "":
		return FormatText, nil
	case FormatJSON, FormatYAML:
		return Format(s), nil
	}
	return "", fmt.Errorf("unknown report format %q", s)
}

type Options struct {
	Format  Format
	Verbose bool
	Color   bool
	// AccountURL prefixes verified account logins in text output.
	AccountURL string
}

type Report struct {
	Repositories []string         `json:"repositories" yaml:"repositories"`
	Identities   []IdentityReport `json:"identities,omitempty" yaml:"identities,omitempty"`
	SharedEmails []SharedEmail    `json:"shared_emails" yaml:"shared_emails"`
	SharedNames  []SharedName     `json:"shared_names" yaml:"shared_names"`
	SamePerson   []SamePerson     `json:"same_person" yaml:"same_person"`
	Statistics   Statistics       `json:"statistics" yaml:"statistics"`
	Skipped      []SkippedRepo    `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

type IdentityReport struct {
	Name       string              `json:"name" yaml:"name"`
	Email      string              `json:"email" yaml:"email"`
	Author     int                 `json:"author" yaml:"author"`
	Committer  int                 `json:"committer" yaml:"committer"`
	Account    string              `json:"account,omitempty" yaml:"account,omitempty"`
	Names      []string            `json:"other_names,omitempty" yaml:"other_names,omitempty"`
	Emails     []string            `json:"other_emails,omitempty" yaml:"other_emails,omitempty"`
	Correlated []identity.Identity `json:"correlated,omitempty" yaml:"correlated,omitempty"`
}

type SharedEmail struct {
	Email string   `json:"email" yaml:"email"`
	Names []string `json:"names" yaml:"names"`
}

type SharedName struct {
	Name   string   `json:"name" yaml:"name"`
	Emails []string `json:"emails" yaml:"emails"`
}

type SamePerson struct {
	Names  []string `json:"names" yaml:"names"`
	Emails []string `json:"emails" yaml:"emails"`
}

type Statistics struct {
	Commits      int `json:"commits" yaml:"commits"`
	Identities   int `json:"identities" yaml:"identities"`
	Names        int `json:"names" yaml:"names"`
	Emails       int `json:"emails" yaml:"emails"`
	Repositories int `json:"repositories" yaml:"repositories"`
	Skipped      int `json:"skipped" yaml:"skipped"`
}

type SkippedRepo struct {
	Origin string `json:"origin" yaml:"origin"`
	Reason string `json:"reason" yaml:"reason"`
}

// Build collects everything the printers show. Identities are only listed
// when verbose is set.
func Build(state *identity.State, verbose bool) Report {
	r := Report{
		Repositories: state.Repositories(),
		SharedEmails: []SharedEmail{},
		SharedNames:  []SharedName{},
		SamePerson:   []SamePerson{},
	}

	if verbose {
		for _, id := range state.AllIdentities() {
			st, _ := state.StatisticsFor(id)
			r.Identities = append(r.Identities, IdentityReport{
				Name:       id.Name,
				Email:      id.Email,
				Author:     st.Counts.Author,
				Committer:  st.Counts.Committer,
				Account:    st.Account,
				Names:      nonEmpty(st.Names),
				Emails:     nonEmpty(st.Emails),
				Correlated: st.Correlated,
			})
		}
	}

	for _, g := range state.NamesSharingEmail() {
		r.SharedEmails = append(r.SharedEmails, SharedEmail{Email: g.Email, Names: g.Names})
	}
	for _, g := range state.EmailsSharingName() {
		r.SharedNames = append(r.SharedNames, SharedName{Name: g.Name, Emails: g.Emails})
	}
	for _, g := range state.SamePersonGroups() {
		r.SamePerson = append(r.SamePerson, SamePerson{Names: g.Names, Emails: g.Emails})
	}

	g := state.GlobalStatistics()
	r.Statistics = Statistics{
		Commits:      g.Commits,
		Identities:   g.Identities,
		Names:        g.Names,
		Emails:       g.Emails,
		Repositories: g.Repositories,
		Skipped:      g.Skipped,
	}
	for _, s := range state.Skipped() {
		r.Skipped = append(r.Skipped, SkippedRepo{Origin: s.Origin, Reason: s.Reason})
	}
	return r
}

func nonEmpty(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	return values
}

type Printer struct {
	w    io.Writer
	opts Options
}

func NewPrinter(w io.Writer, opts Options) *Printer {
	return &Printer{w: w, opts: opts}
}

func (p *Printer) Print(state *identity.State) error {
	r := Build(state, p.opts.Verbose)

	switch p.opts.Format {
	case FormatJSON:
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatYAML:
		enc := yaml.NewEncoder(p.w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	default:
		return p.printText(r)
	}
}
