package report

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"gitpersona/pkg/identity"
)

const delimiter = "---------------"

func (p *Printer) heading() *color.Color {
	c := color.New(color.FgCyan, color.Bold)
	if p.opts.Color {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c
}

func (p *Printer) printText(r Report) error {
	var b strings.Builder
	h := p.heading()

	h.Fprintf(&b, "Analysis of %s %s\n", humanize.Comma(int64(len(r.Repositories))), plural(len(r.Repositories), "repository", "repositories"))
	for _, repo := range r.Repositories {
		fmt.Fprintf(&b, "  %s\n", repo)
	}

	if len(r.Identities) > 0 {
		h.Fprintf(&b, "\nVerbose identities info:\n")
		for _, id := range r.Identities {
			b.WriteString(delimiter + "\n")
			p.writeIdentity(&b, id)
		}
	}

	if len(r.SharedEmails) > 0 {
		h.Fprintf(&b, "\nNames sharing an email:\n")
		tbl := newTable()
		tbl.AppendHeader(table.Row{"Email", "Names"})
		for _, g := range r.SharedEmails {
			tbl.AppendRow(table.Row{display(g.Email), joinDisplay(g.Names)})
		}
		b.WriteString(tbl.Render() + "\n")
	}

	if len(r.SharedNames) > 0 {
		h.Fprintf(&b, "\nEmails sharing a name:\n")
		tbl := newTable()
		tbl.AppendHeader(table.Row{"Name", "Emails"})
		for _, g := range r.SharedNames {
			tbl.AppendRow(table.Row{display(g.Name), joinDisplay(g.Emails)})
		}
		b.WriteString(tbl.Render() + "\n")
	}

	if len(r.SamePerson) > 0 {
		h.Fprintf(&b, "\nMatching info:\n")
		for _, g := range r.SamePerson {
			fmt.Fprintf(&b, "  %s are the same person (%s)\n",
				strings.Join(displayAll(g.Names), " and "), strings.Join(displayAll(g.Emails), ", "))
		}
	}

	h.Fprintf(&b, "\nStatistics:\n")
	tbl := newTable()
	st := r.Statistics
	tbl.AppendRows([]table.Row{
		{"Commits", humanize.Comma(int64(st.Commits))},
		{"Identities", humanize.Comma(int64(st.Identities))},
		{"Distinct names", humanize.Comma(int64(st.Names))},
		{"Distinct emails", humanize.Comma(int64(st.Emails))},
		{"Repositories scanned", humanize.Comma(int64(st.Repositories))},
		{"Repositories skipped", humanize.Comma(int64(st.Skipped))},
	})
	b.WriteString(tbl.Render() + "\n")

	if len(r.Skipped) > 0 {
		total := st.Repositories + st.Skipped
		h.Fprintf(&b, "\n%d of %d repositories skipped:\n", st.Skipped, total)
		for _, s := range r.Skipped {
			fmt.Fprintf(&b, "  %s: %s\n", s.Origin, s.Reason)
		}
	}

	_, err := fmt.Fprint(p.w, b.String())
	return err
}

func (p *Printer) writeIdentity(b *strings.Builder, id IdentityReport) {
	fmt.Fprintf(b, "Name:\t\t\t%s\n", display(id.Name))
	fmt.Fprintf(b, "Email:\t\t\t%s\n", display(id.Email))
	if id.Author > 0 {
		fmt.Fprintf(b, "Appears as author:\t%s %s\n", humanize.Comma(int64(id.Author)), plural(id.Author, "time", "times"))
	}
	if id.Committer > 0 {
		fmt.Fprintf(b, "Appears as committer:\t%s %s\n", humanize.Comma(int64(id.Committer)), plural(id.Committer, "time", "times"))
	}
	if id.Account != "" {
		fmt.Fprintf(b, "Verified account:\t%s%s\n", p.opts.AccountURL, id.Account)
	}
	if len(id.Emails) > 0 {
		fmt.Fprintf(b, "Other emails:\t\t%s\n", strings.Join(displayAll(id.Emails), ", "))
	}
	if len(id.Names) > 0 {
		fmt.Fprintf(b, "Other names:\t\t%s\n", strings.Join(displayAll(id.Names), ", "))
	}
	if len(id.Correlated) > 0 {
		b.WriteString("Also appears with:\n")
		for _, c := range id.Correlated {
			fmt.Fprintf(b, "\t\t\t%s\n", c)
		}
	}
}

func newTable() table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	return tbl
}

func display(s string) string {
	if s == "" {
		return identity.Unknown
	}
	return s
}

func displayAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = display(v)
	}
	return out
}

func joinDisplay(values []string) string {
	return strings.Join(displayAll(values), "\n")
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
