package adldap

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// Properties maps an attribute name to its ordered value list. Directory
// attributes are inherently multi-valued; single-valued attributes are
// represented as one-element lists. Value order is preserved but carries
// no meaning, except that group membership operations treat the member
// attribute as a set.
type Properties map[string][]string

// Clone returns a deep copy: mutating the copy's value lists never
// aliases the original.
func (p Properties) Clone() Properties {
	out := make(Properties, len(p))
	for name, values := range p {
		out[name] = append([]string(nil), values...)
	}
	return out
}

// diffProperties computes the changeset between a baseline and the
// current properties. Only keys present in the baseline participate:
// attributes never fetched from the server are invisible to the diff.
// The returned maps hold, for each differing key, the baseline values
// (old) and the current values (changed).
func diffProperties(baseline, current Properties) (old, changed Properties) {
	old = make(Properties)
	changed = make(Properties)
	for name, baseValues := range baseline {
		curValues := current[name]
		if !valuesEqual(baseValues, curValues) {
			old[name] = append([]string{}, baseValues...)
			changed[name] = append([]string{}, curValues...)
		}
	}
	return old, changed
}

// Entry is a single directory object: its current properties and the
// baseline snapshot of the last state acknowledged by the server. The
// session handle is non-owning; the Session must outlive every Entry
// constructed from it.
type Entry struct {
	session  *Session
	kind     Kind
	props    Properties
	baseline Properties
}

// newEntry wraps a search record. The caller is responsible for calling
// snapshot (directly or via ensureProps) before handing the entry out.
func newEntry(session *Session, props Properties, kind Kind) *Entry {
	return &Entry{session: session, kind: kind, props: props}
}

// snapshot records the current properties as the server-synced baseline.
func (e *Entry) snapshot() {
	e.baseline = e.props.Clone()
}

// ensureProps fetches any of the named attributes missing from the
// property map, then re-snapshots the baseline.
func (e *Entry) ensureProps(ctx context.Context, names []string) error {
	var missing []string
	for _, name := range names {
		if _, ok := e.props[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		if err := e.GetProperties(ctx, missing); err != nil {
			return err
		}
	}
	e.snapshot()
	return nil
}

func (e *Entry) String() string {
	return fmt.Sprintf("%s: %s", e.kind, e.DN())
}

// DN returns the entry's distinguished name.
func (e *Entry) DN() string {
	return e.Value("distinguishedName")
}

// Kind returns the typed view the entry was constructed for.
func (e *Entry) Kind() Kind { return e.kind }

// Session returns the session the entry was constructed from.
func (e *Entry) Session() *Session { return e.session }

// Properties returns the live property map. Assignments into it are
// picked up by the next Commit, subject to the baseline rule described
// in the package documentation.
func (e *Entry) Properties() Properties { return e.props }

// Values returns all values of the named attribute, or nil if the
// attribute is not held locally.
func (e *Entry) Values(name string) []string {
	return e.props[name]
}

// Value returns the first value of the named attribute, or "" if the
// attribute is absent or empty.
func (e *Entry) Value(name string) string {
	if values := e.props[name]; len(values) > 0 {
		return values[0]
	}
	return ""
}

// Set assigns the named attribute locally. The change reaches the
// directory on the next Commit, and only if the attribute is present in
// the baseline.
func (e *Entry) Set(name string, values ...string) {
	e.props[name] = values
}

// ObjectClass returns the entry's objectClass chain.
func (e *Entry) ObjectClass() []string {
	return e.props["objectClass"]
}

// ObjectCategory returns the entry's schema-category DN.
func (e *Entry) ObjectCategory() string {
	return e.Value("objectCategory")
}

// Name returns the entry's name attribute.
func (e *Entry) Name() string {
	return e.Value("name")
}

// CreatedTime returns whenCreated as seconds since the Unix epoch, or 0
// when the attribute is empty.
func (e *Entry) CreatedTime() (int64, error) {
	stamp := e.Value("whenCreated")
	if stamp == "" {
		return 0, nil
	}
	return TextTimeToUnix(stamp)
}

// ModifiedTime returns whenChanged as seconds since the Unix epoch, or 0
// when the attribute is empty.
func (e *Entry) ModifiedTime() (int64, error) {
	stamp := e.Value("whenChanged")
	if stamp == "" {
		return 0, nil
	}
	return TextTimeToUnix(stamp)
}

// GUID returns the entry's objectGUID in canonical string form. The
// attribute is not in any prefetch list; fetch it with GetProperties
// first.
func (e *Entry) GUID() (string, error) {
	raw := e.Value("objectGUID")
	if raw == "" {
		return "", fmt.Errorf("%w: objectGUID not fetched", ErrFormat)
	}
	return GUIDFromBytes([]byte(raw))
}

// SID returns the entry's objectSid in string form. As with GUID, the
// attribute must be fetched explicitly.
func (e *Entry) SID() (string, error) {
	raw := e.Value("objectSid")
	if raw == "" {
		return "", fmt.Errorf("%w: objectSid not fetched", ErrFormat)
	}
	return SIDFromBytes([]byte(raw))
}

// CanonicalName derives the domain\container\leaf form of the DN:
// "ldap.example.com\Users\jdoe" for
// "CN=jdoe,CN=Users,DC=ldap,DC=example,DC=com".
func (e *Entry) CanonicalName() string {
	var head, tail []string
	for _, element := range strings.Split(e.DN(), ",") {
		name, value, ok := strings.Cut(element, "=")
		if !ok {
			continue
		}
		if strings.EqualFold(name, "dc") {
			head = append(head, value)
		} else {
			tail = append(tail, value)
		}
	}
	for i, j := 0, len(tail)-1; i < j; i, j = i+1, j-1 {
		tail[i], tail[j] = tail[j], tail[i]
	}
	return strings.Join(head, ".") + "\\" + strings.Join(tail, "\\")
}

// GetProperties fetches the named attributes from the directory and
// merges them into both the property map and the baseline, making them
// visible to subsequent diffs. An attribute the object does not carry,
// such as member on a group with no members, is recorded as an empty
// value list so a later assignment to it still commits.
func (e *Entry) GetProperties(ctx context.Context, names []string) error {
	filter := fmt.Sprintf("(distinguishedName=%s)", ldap.EscapeFilter(e.DN()))
	results, err := e.session.Search(ctx, filter, &SearchOptions{Properties: names})
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return fmt.Errorf("%w: %s", ErrObjectNotFound, e.DN())
	}

	fetched := results[0].props
	for _, name := range names {
		values := append([]string{}, fetched[name]...)
		e.props[name] = values
		if e.baseline != nil {
			e.baseline[name] = append([]string{}, values...)
		}
	}
	return nil
}

// Refresh re-fetches every property currently held from the directory.
func (e *Entry) Refresh(ctx context.Context) error {
	names := make([]string, 0, len(e.props))
	for name := range e.props {
		names = append(names, name)
	}
	return e.GetProperties(ctx, names)
}

// Commit writes changed properties to the directory.
//
// The changeset is the set of baseline keys whose current value differs
// from the baseline value; the store's differential-modify primitive
// derives the per-attribute instructions. On acknowledged success the
// baseline is replaced with a deep copy of the full current properties.
// On failure both maps are left untouched. A property must have been
// fetched at least once before an assignment to it is committed; an
// empty changeset is still transmitted and reports success.
//
// No concurrency token accompanies the write: overlapping commits from
// independent sessions resolve last-writer-wins.
func (e *Entry) Commit(ctx context.Context) error {
	old, changed := diffProperties(e.baseline, e.props)
	if err := e.session.UpdateObject(ctx, e.DN(), old, changed); err != nil {
		return err
	}
	e.snapshot()
	return nil
}

// Move relocates the entry under a new parent container, keeping its
// leading RDN. Local state follows the new location on success.
func (e *Entry) Move(ctx context.Context, destination string) error {
	rdn := reFirstRDN.FindString(e.DN())
	if rdn == "" {
		return fmt.Errorf("%w: cannot derive RDN from %q", ErrFormat, e.DN())
	}
	if err := e.session.RenameObject(ctx, e.DN(), rdn, destination); err != nil {
		return err
	}
	newDN := rdn + "," + destination
	e.props["distinguishedName"] = []string{newDN}
	if e.baseline != nil {
		e.baseline["distinguishedName"] = []string{newDN}
	}
	return nil
}

// Delete removes the entry from the directory and clears all local
// state. Using the entry after a successful Delete is undefined.
func (e *Entry) Delete(ctx context.Context) error {
	if err := e.session.DeleteObject(ctx, e.DN()); err != nil {
		return err
	}
	e.props = Properties{}
	e.baseline = Properties{}
	return nil
}
