// Package identity accumulates author and committer identities across commits
// and repositories and answers correlation queries over them.
//
// A State is built once per run. Folding is order independent: the same
// multiset of records always yields the same state.
package identity

import (
	"sort"
	"strings"
)

type set map[string]struct{}

func (s set) add(v string) {
	s[v] = struct{}{}
}

func (s set) sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

type State struct {
	namesByEmail map[string]set
	emailsByName map[string]set
	roleCounts   map[Identity]*RoleCounts
	coOccurrence map[Identity]map[Identity]struct{}
	samples      map[Identity]Sample
	accounts     map[Identity]string
	repositories set
	skipped      map[string]string
	commits      int
	filter       *Filter
}

type Option func(*State)

// WithFilter drops identities matched by f before they are folded.
func WithFilter(f *Filter) Option {
	return func(s *State) {
		s.filter = f
	}
}

func NewState(opts ...Option) *State {
	s := &State{
		namesByEmail: make(map[string]set),
		emailsByName: make(map[string]set),
		roleCounts:   make(map[Identity]*RoleCounts),
		coOccurrence: make(map[Identity]map[Identity]struct{}),
		samples:      make(map[Identity]Sample),
		accounts:     make(map[Identity]string),
		repositories: make(set),
		skipped:      make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Partial returns an empty state with the same options, to be filled
// independently and merged back.
func (s *State) Partial() *State {
	return NewState(WithFilter(s.filter))
}

// Fold adds one commit to the state. A side of the commit excluded by the
// filter is not counted and does not correlate, but the commit itself is.
func (s *State) Fold(r CommitRecord) {
	s.commits++
	if r.Repository != "" {
		s.repositories.add(r.Repository)
	}

	author, committer := r.Author(), r.Committer()
	useAuthor := !s.filter.Excludes(author)
	useCommitter := !s.filter.Excludes(committer)

	if useAuthor {
		s.observe(author)
		s.counts(author).Author++
		s.sample(author, Sample{Repository: r.Repository, Hash: r.Hash, Role: Author})
	}
	if useCommitter {
		s.observe(committer)
		s.counts(committer).Committer++
		s.sample(committer, Sample{Repository: r.Repository, Hash: r.Hash, Role: Committer})
	}
	if useAuthor && useCommitter && author != committer {
		s.link(author, committer)
		s.link(committer, author)
	}
}

// Merge folds a partial state built elsewhere into s.
func (s *State) Merge(o *State) {
	s.commits += o.commits
	for email, names := range o.namesByEmail {
		for name := range names {
			s.observe(Identity{Name: name, Email: email})
		}
	}
	for id, c := range o.roleCounts {
		dst := s.counts(id)
		dst.Author += c.Author
		dst.Committer += c.Committer
	}
	for id, peers := range o.coOccurrence {
		for peer := range peers {
			s.link(id, peer)
		}
	}
	for id, smp := range o.samples {
		s.sample(id, smp)
	}
	for id, login := range o.accounts {
		s.SetAccount(id, login)
	}
	for repo := range o.repositories {
		s.repositories.add(repo)
	}
	for origin, reason := range o.skipped {
		s.skipped[origin] = reason
	}
}

// MarkRepository records a repository as scanned, even when it had no commits.
func (s *State) MarkRepository(origin string) {
	s.repositories.add(origin)
}

func (s *State) MarkSkipped(origin string, err error) {
	reason := ""
	if err != nil {
		reason = err.Error()
	}
	s.skipped[origin] = reason
}

// SetAccount attaches a verified hosting account login to an identity.
// The lexically smallest login wins when several are set.
func (s *State) SetAccount(id Identity, login string) {
	if login == "" {
		return
	}
	if cur, ok := s.accounts[id]; ok && cur <= login {
		return
	}
	s.accounts[id] = login
}

func (s *State) SampleCommit(id Identity) (Sample, bool) {
	smp, ok := s.samples[id]
	return smp, ok
}

func (s *State) observe(id Identity) {
	names, ok := s.namesByEmail[id.Email]
	if !ok {
		names = make(set)
		s.namesByEmail[id.Email] = names
	}
	names.add(id.Name)

	emails, ok := s.emailsByName[id.Name]
	if !ok {
		emails = make(set)
		s.emailsByName[id.Name] = emails
	}
	emails.add(id.Email)
}

func (s *State) counts(id Identity) *RoleCounts {
	c, ok := s.roleCounts[id]
	if !ok {
		c = &RoleCounts{}
		s.roleCounts[id] = c
	}
	return c
}

func (s *State) link(from, to Identity) {
	peers, ok := s.coOccurrence[from]
	if !ok {
		peers = make(map[Identity]struct{})
		s.coOccurrence[from] = peers
	}
	peers[to] = struct{}{}
}

func (s *State) sample(id Identity, smp Sample) {
	if smp.Hash == "" {
		return
	}
	if cur, ok := s.samples[id]; ok && !smp.less(cur) {
		return
	}
	s.samples[id] = smp
}

func (s *State) StatisticsFor(id Identity) (Statistics, bool) {
	c, ok := s.roleCounts[id]
	if !ok {
		return Statistics{}, false
	}

	st := Statistics{
		Identity: id,
		Counts:   *c,
		Names:    without(s.namesByEmail[id.Email], id.Name),
		Emails:   without(s.emailsByName[id.Name], id.Email),
		Account:  s.accounts[id],
	}
	for peer := range s.coOccurrence[id] {
		st.Correlated = append(st.Correlated, peer)
	}
	sortIdentities(st.Correlated)
	return st, true
}

// AllIdentities returns every observed identity, most active first.
func (s *State) AllIdentities() []Identity {
	ids := make([]Identity, 0, len(s.roleCounts))
	for id := range s.roleCounts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		ti, tj := s.roleCounts[ids[i]].Total(), s.roleCounts[ids[j]].Total()
		if ti != tj {
			return ti > tj
		}
		return identityLess(ids[i], ids[j])
	})
	return ids
}

func (s *State) GlobalStatistics() GlobalStatistics {
	return GlobalStatistics{
		Commits:      s.commits,
		Names:        len(s.emailsByName),
		Emails:       len(s.namesByEmail),
		Identities:   len(s.roleCounts),
		Repositories: len(s.repositories),
		Skipped:      len(s.skipped),
	}
}

func (s *State) NamesByEmail(email string) []string {
	return s.namesByEmail[email].sorted()
}

func (s *State) EmailsByName(name string) []string {
	return s.emailsByName[name].sorted()
}

func (s *State) NamesSharingEmail() []EmailGroup {
	var groups []EmailGroup
	for email, names := range s.namesByEmail {
		if len(names) > 1 {
			groups = append(groups, EmailGroup{Email: email, Names: names.sorted()})
		}
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Email < groups[j].Email })
	return groups
}

func (s *State) EmailsSharingName() []NameGroup {
	var groups []NameGroup
	for name, emails := range s.emailsByName {
		if len(emails) > 1 {
			groups = append(groups, NameGroup{Name: name, Emails: emails.sorted()})
		}
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	return groups
}

// SamePersonGroups groups names that were used with an identical set of
// emails. Only groups of two or more names are returned.
func (s *State) SamePersonGroups() []PersonGroup {
	byKey := make(map[string]*PersonGroup)
	for name, emails := range s.emailsByName {
		sorted := emails.sorted()
		key := strings.Join(sorted, "\x00")
		g, ok := byKey[key]
		if !ok {
			g = &PersonGroup{Emails: sorted}
			byKey[key] = g
		}
		g.Names = append(g.Names, name)
	}

	var groups []PersonGroup
	for _, g := range byKey {
		if len(g.Names) < 2 {
			continue
		}
		sort.Strings(g.Names)
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool {
		return strings.Join(groups[i].Names, "\x00") < strings.Join(groups[j].Names, "\x00")
	})
	return groups
}

func (s *State) Repositories() []string {
	return s.repositories.sorted()
}

func (s *State) Skipped() []Skip {
	out := make([]Skip, 0, len(s.skipped))
	for origin, reason := range s.skipped {
		out = append(out, Skip{Origin: origin, Reason: reason})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Origin < out[j].Origin })
	return out
}

func without(s set, v string) []string {
	out := make([]string, 0, len(s))
	for _, x := range s.sorted() {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}

func identityLess(a, b Identity) bool {
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return a.Email < b.Email
}

func sortIdentities(ids []Identity) {
	sort.Slice(ids, func(i, j int) bool { return identityLess(ids[i], ids[j]) })
}
