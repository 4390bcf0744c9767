package adldap

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Group is the typed view of a group. Membership operations treat the
// member attribute as a set of DNs, compared case-insensitively, and
// apply each reconciliation in a single commit.
type Group struct {
	*Entry
}

// AsGroup narrows the entry to a group, fetching the group attribute
// set if needed.
func (e *Entry) AsGroup(ctx context.Context) (*Group, error) {
	if !hasClass(e.ObjectClass(), "group") {
		return nil, fmt.Errorf("%w: %s is not a group", ErrClassMismatch, e.DN())
	}
	if err := e.ensureProps(ctx, mandatoryProps(KindGroup)); err != nil {
		return nil, err
	}
	e.kind = KindGroup
	return &Group{Entry: e}, nil
}

// Members returns the DNs of the group's direct members as last
// fetched. Call Refresh or a membership operation for a current view.
func (g *Group) Members() []string {
	return g.Values("member")
}

// MemberObjects fetches the group's direct members and resolves each to
// its typed view.
func (g *Group) MemberObjects(ctx context.Context) ([]any, error) {
	if err := g.GetProperties(ctx, []string{"member"}); err != nil {
		return nil, err
	}
	members := make([]any, 0, len(g.Members()))
	for _, dn := range g.Members() {
		entry, err := g.session.ObjectByDN(ctx, dn)
		if err != nil {
			return nil, err
		}
		resolved, err := g.session.ResolveType(ctx, entry)
		if err != nil {
			return nil, err
		}
		members = append(members, resolved)
	}
	return members, nil
}

// AddMembers adds the named objects to the group in one commit. Names
// resolve through the session: a DN is looked up directly, anything
// else by name attribute. Names matching no object are skipped
// silently. Adding an existing member yields ErrMemberExists and
// nothing is written.
func (g *Group) AddMembers(ctx context.Context, names []string) error {
	if err := g.GetProperties(ctx, []string{"member"}); err != nil {
		return err
	}
	current := memberSet(g.Members())

	var added []string
	for _, name := range names {
		entry, err := g.resolveMember(ctx, name)
		if errors.Is(err, ErrObjectNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		dn := entry.DN()
		if current[normalizeDN(dn)] {
			return fmt.Errorf("%w: %s in %s", ErrMemberExists, dn, g.DN())
		}
		current[normalizeDN(dn)] = true
		added = append(added, dn)
	}
	if len(added) == 0 {
		return nil
	}

	g.Set("member", append(g.Members(), added...)...)
	return g.Commit(ctx)
}

// RemoveMembers removes the named objects from the group in one commit.
// Names matching no object are skipped silently. Removing an object
// that is not a member yields ErrMemberNotFound and nothing is written.
func (g *Group) RemoveMembers(ctx context.Context, names []string) error {
	if err := g.GetProperties(ctx, []string{"member"}); err != nil {
		return err
	}

	remove := make(map[string]bool)
	for _, name := range names {
		entry, err := g.resolveMember(ctx, name)
		if errors.Is(err, ErrObjectNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		dn := normalizeDN(entry.DN())
		if !memberSet(g.Members())[dn] {
			return fmt.Errorf("%w: %s in %s", ErrMemberNotFound, entry.DN(), g.DN())
		}
		remove[dn] = true
	}
	if len(remove) == 0 {
		return nil
	}

	var remaining []string
	for _, dn := range g.Members() {
		if !remove[normalizeDN(dn)] {
			remaining = append(remaining, dn)
		}
	}
	g.Set("member", remaining...)
	return g.Commit(ctx)
}

// OverwriteMembers replaces the group's membership with exactly the
// named objects in one commit. Unlike AddMembers, a name matching no
// object is an error. When the desired set equals the current set no
// write is performed.
func (g *Group) OverwriteMembers(ctx context.Context, names []string) error {
	if err := g.GetProperties(ctx, []string{"member"}); err != nil {
		return err
	}

	desired := make([]string, 0, len(names))
	seen := make(map[string]bool)
	for _, name := range names {
		entry, err := g.resolveMember(ctx, name)
		if err != nil {
			return err
		}
		dn := entry.DN()
		if !seen[normalizeDN(dn)] {
			seen[normalizeDN(dn)] = true
			desired = append(desired, dn)
		}
	}

	if setsEqual(seen, memberSet(g.Members())) {
		return nil
	}
	g.Set("member", desired...)
	return g.Commit(ctx)
}

// resolveMember resolves a member reference: strings containing "=" are
// treated as DNs, anything else as a name attribute.
func (g *Group) resolveMember(ctx context.Context, name string) (*Entry, error) {
	if strings.Contains(name, "=") {
		return g.session.ObjectByDN(ctx, name)
	}
	return g.session.ObjectByName(ctx, name)
}

func memberSet(dns []string) map[string]bool {
	set := make(map[string]bool, len(dns))
	for _, dn := range dns {
		if dn == "" {
			continue
		}
		set[normalizeDN(dn)] = true
	}
	return set
}

func setsEqual(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for key := range a {
		if !b[key] {
			return false
		}
	}
	return true
}
