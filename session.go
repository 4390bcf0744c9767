package adldap

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/go-ldap/ldap/v3"
	"github.com/rs/zerolog"
)

// Session is a single authenticated connection to a directory domain.
// It discovers the domain's naming contexts at connect time and is the
// factory for every Entry and typed view.
//
// All directory operations are serialized on one underlying connection;
// a Session is safe for concurrent use but requests do not overlap.
type Session struct {
	cfg   *Config
	store Store
	log   zerolog.Logger

	mu        sync.Mutex
	connected bool

	dnRoot          string
	dnForest        string
	dnConfiguration string
	dnSchema        string
}

// NewSession returns an unconnected session for the configured domain.
func NewSession(cfg *Config) *Session {
	return &Session{
		cfg:   cfg,
		store: NewLDAPStore(),
		log:   cfg.Logger,
	}
}

// SearchOptions adjusts a Search call. The zero value searches the whole
// domain subtree for the default attribute set.
type SearchOptions struct {
	// BaseDN overrides the search base; empty means the domain root.
	BaseDN string

	// Scope limits the search depth; the zero value is ScopeSubtree.
	Scope Scope

	// Properties lists the attributes to request. The default mandatory
	// set is always requested alongside.
	Properties []string
}

// Connect binds to the directory and discovers the domain's naming
// contexts from the root DSE.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected {
		return nil
	}
	if err := s.store.Bind(ctx, s.cfg); err != nil {
		return err
	}

	// The root DSE has an empty DN, which the regular search path drops
	// as a referral, so it is read through the store directly.
	page, err := s.store.SearchPage(ctx, "", "(objectClass=*)", ScopeBase, []string{
		"defaultNamingContext",
		"rootDomainNamingContext",
		"configurationNamingContext",
		"schemaNamingContext",
	}, s.cfg.PageSize, nil)
	if err != nil {
		s.store.Close()
		return err
	}
	if len(page.Records) == 0 {
		s.store.Close()
		return fmt.Errorf("%w: empty root DSE", ErrConnection)
	}

	dse := page.Records[0].Attributes
	s.dnRoot = firstValue(dse, "defaultNamingContext")
	s.dnForest = firstValue(dse, "rootDomainNamingContext")
	s.dnConfiguration = firstValue(dse, "configurationNamingContext")
	s.dnSchema = firstValue(dse, "schemaNamingContext")
	s.connected = true

	s.log.Info().
		Str("host", s.cfg.Host).
		Str("root", s.dnRoot).
		Msg("session connected")
	return nil
}

// Disconnect closes the underlying connection. The session can be
// reconnected with Connect.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return nil
	}
	s.connected = false
	return s.store.Close()
}

// RootDN returns the domain naming context discovered at connect time.
func (s *Session) RootDN() string { return s.dnRoot }

// ForestDN returns the forest root naming context.
func (s *Session) ForestDN() string { return s.dnForest }

// ConfigurationDN returns the configuration naming context.
func (s *Session) ConfigurationDN() string { return s.dnConfiguration }

// SchemaDN returns the schema naming context.
func (s *Session) SchemaDN() string { return s.dnSchema }

// DNSName returns the domain's DNS name, derived from the root naming
// context: "DC=ldap,DC=example,DC=com" becomes "ldap.example.com".
func (s *Session) DNSName() string {
	var labels []string
	for _, element := range strings.Split(s.dnRoot, ",") {
		if name, value, ok := strings.Cut(element, "="); ok && strings.EqualFold(name, "dc") {
			labels = append(labels, value)
		}
	}
	return strings.Join(labels, ".")
}

// Search runs a paginated search and returns the matching entries. The
// whole result set is accumulated across pages before any entry is
// constructed; a failure on any page, including a server-enforced time
// limit, discards all pages and returns the error.
//
// Referral records, which arrive without a DN, are dropped. Requested
// default attributes absent from an object are backfilled with a single
// empty string so accessors never observe a missing key.
func (s *Session) Search(ctx context.Context, filter string, opts *SearchOptions) ([]*Entry, error) {
	if opts == nil {
		opts = &SearchOptions{}
	}
	base := opts.BaseDN
	if base == "" {
		base = s.dnRoot
	}
	attrs := unionProps(mandatoryPropsDefault, opts.Properties)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return nil, ErrNotConnected
	}

	var records []Record
	var cookie []byte
	for {
		page, err := s.store.SearchPage(ctx, base, filter, opts.Scope, attrs, s.cfg.PageSize, cookie)
		if err != nil {
			return nil, err
		}
		records = append(records, page.Records...)
		if !page.HasControl || len(page.Cookie) == 0 {
			break
		}
		cookie = page.Cookie
	}

	entries := make([]*Entry, 0, len(records))
	for _, rec := range records {
		if rec.DN == "" {
			continue
		}
		props := make(Properties, len(rec.Attributes)+1)
		for name, values := range rec.Attributes {
			props[name] = append([]string(nil), values...)
		}
		props["distinguishedName"] = []string{rec.DN}
		for _, name := range mandatoryPropsDefault {
			if _, ok := props[name]; !ok {
				props[name] = []string{""}
			}
		}
		entry := newEntry(s, props, KindGeneric)
		entry.snapshot()
		entries = append(entries, entry)
	}

	s.log.Debug().
		Str("base", base).
		Str("filter", filter).
		Int("results", len(entries)).
		Msg("search")
	return entries, nil
}

// findOne runs a search expected to match a single object.
func (s *Session) findOne(ctx context.Context, filter string, props []string) (*Entry, error) {
	results, err := s.Search(ctx, filter, &SearchOptions{Properties: props})
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: filter %s", ErrObjectNotFound, filter)
	}
	return results[0], nil
}

// ObjectByDN returns the object at the given distinguished name.
func (s *Session) ObjectByDN(ctx context.Context, dn string) (*Entry, error) {
	filter := fmt.Sprintf("(distinguishedName=%s)", ldap.EscapeFilter(dn))
	return s.findOne(ctx, filter, nil)
}

// ObjectByName returns the object with the given name attribute.
func (s *Session) ObjectByName(ctx context.Context, name string) (*Entry, error) {
	filter := fmt.Sprintf("(name=%s)", ldap.EscapeFilter(name))
	return s.findOne(ctx, filter, nil)
}

// UserByName returns the user account with the given sAMAccountName.
func (s *Session) UserByName(ctx context.Context, name string) (*User, error) {
	filter := fmt.Sprintf("(&(objectCategory=person)(sAMAccountName=%s))", ldap.EscapeFilter(name))
	entry, err := s.findOne(ctx, filter, mandatoryPropsUser)
	if err != nil {
		return nil, err
	}
	return entry.AsUser(ctx)
}

// UserByDN returns the user account at the given distinguished name.
func (s *Session) UserByDN(ctx context.Context, dn string) (*User, error) {
	entry, err := s.ObjectByDN(ctx, dn)
	if err != nil {
		return nil, err
	}
	return entry.AsUser(ctx)
}

// ComputerByName returns the computer account for the given host name.
// The name may be short or fully qualified; the leading label maps onto
// the account's sAMAccountName with the trailing "$" appended.
func (s *Session) ComputerByName(ctx context.Context, name string) (*Computer, error) {
	host := reHostname.FindString(name)
	if host == "" {
		return nil, fmt.Errorf("%w: invalid host name %q", ErrFormat, name)
	}
	filter := fmt.Sprintf("(&(objectClass=computer)(sAMAccountName=%s))",
		ldap.EscapeFilter(host+"$"))
	entry, err := s.findOne(ctx, filter, mandatoryPropsComputer)
	if err != nil {
		return nil, err
	}
	return entry.AsComputer(ctx)
}

// ComputerByDN returns the computer account at the given distinguished
// name.
func (s *Session) ComputerByDN(ctx context.Context, dn string) (*Computer, error) {
	entry, err := s.ObjectByDN(ctx, dn)
	if err != nil {
		return nil, err
	}
	return entry.AsComputer(ctx)
}

// GroupByName returns the group with the given sAMAccountName.
func (s *Session) GroupByName(ctx context.Context, name string) (*Group, error) {
	filter := fmt.Sprintf("(&(objectCategory=group)(sAMAccountName=%s))", ldap.EscapeFilter(name))
	entry, err := s.findOne(ctx, filter, mandatoryPropsGroup)
	if err != nil {
		return nil, err
	}
	return entry.AsGroup(ctx)
}

// GroupByDN returns the group at the given distinguished name.
func (s *Session) GroupByDN(ctx context.Context, dn string) (*Group, error) {
	entry, err := s.ObjectByDN(ctx, dn)
	if err != nil {
		return nil, err
	}
	return entry.AsGroup(ctx)
}

// ContainerByDN returns the container or organizational unit at the
// given distinguished name.
func (s *Session) ContainerByDN(ctx context.Context, dn string) (*Container, error) {
	entry, err := s.ObjectByDN(ctx, dn)
	if err != nil {
		return nil, err
	}
	return entry.AsContainer(ctx)
}

// NewObject creates a directory object with the given attributes and
// returns it. The attribute set must include a non-empty objectClass.
func (s *Session) NewObject(ctx context.Context, dn string, props Properties) (*Entry, error) {
	if len(props["objectClass"]) == 0 {
		return nil, fmt.Errorf("%w: objectClass is required", ErrFormat)
	}

	s.mu.Lock()
	if !s.connected {
		s.mu.Unlock()
		return nil, ErrNotConnected
	}
	err := s.store.Add(ctx, dn, props)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("dn", dn).Msg("object created")
	return s.ObjectByDN(ctx, dn)
}

// NewUser creates a user account. The objectClass chain and the
// person objectCategory are stamped automatically; the attribute set
// must supply every mandatory user attribute the server does not manage
// itself, sAMAccountName in particular.
func (s *Session) NewUser(ctx context.Context, dn string, props Properties) (*User, error) {
	props = props.Clone()
	props["objectClass"] = append([]string(nil), classUser...)
	props["objectCategory"] = []string{categoryPerson + s.dnConfiguration}

	for _, name := range mandatoryPropsUser {
		if serverManagedProps[name] {
			continue
		}
		if len(props[name]) == 0 || props[name][0] == "" {
			return nil, fmt.Errorf("%w: missing mandatory attribute %s", ErrFormat, name)
		}
	}

	entry, err := s.NewObject(ctx, dn, props)
	if err != nil {
		return nil, err
	}
	return entry.AsUser(ctx)
}

// UpdateObject applies a differential modification to the object at dn.
// old and changed hold, per attribute, the last known and the desired
// value lists; the store derives add, replace and delete instructions
// from the two. An empty changeset is transmitted and succeeds.
func (s *Session) UpdateObject(ctx context.Context, dn string, old, changed Properties) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return ErrNotConnected
	}
	if err := s.store.DiffModify(ctx, dn, old, changed); err != nil {
		return err
	}
	s.log.Debug().
		Str("dn", dn).
		Int("attributes", len(changed)).
		Msg("object updated")
	return nil
}

// DeleteObject removes the object at dn.
func (s *Session) DeleteObject(ctx context.Context, dn string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return ErrNotConnected
	}
	if err := s.store.Delete(ctx, dn); err != nil {
		return err
	}
	s.log.Info().Str("dn", dn).Msg("object deleted")
	return nil
}

// RenameObject changes an object's RDN and parent container.
func (s *Session) RenameObject(ctx context.Context, dn, newRDN, newParent string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return ErrNotConnected
	}
	if err := s.store.Rename(ctx, dn, newRDN, newParent); err != nil {
		return err
	}
	s.log.Info().
		Str("dn", dn).
		Str("parent", newParent).
		Msg("object moved")
	return nil
}

// ResolveType narrows a generic entry to its most specific typed view,
// judged by the entry's objectCategory. Already-typed views pass through
// after re-resolution; any other value yields ErrClassMismatch. Objects
// of a category with no dedicated view are returned as *Entry.
func (s *Session) ResolveType(ctx context.Context, obj any) (any, error) {
	var entry *Entry
	switch v := obj.(type) {
	case *Entry:
		entry = v
	case *User:
		entry = v.Entry
	case *Computer:
		entry = v.Entry
	case *Group:
		entry = v.Entry
	case *Container:
		entry = v.Entry
	default:
		return nil, fmt.Errorf("%w: %T", ErrClassMismatch, obj)
	}

	switch kindForCategory(entry.ObjectCategory()) {
	case KindComputer:
		return entry.AsComputer(ctx)
	case KindUser:
		return entry.AsUser(ctx)
	case KindGroup:
		return entry.AsGroup(ctx)
	case KindContainer:
		return entry.AsContainer(ctx)
	default:
		return entry, nil
	}
}

// kindForCategory maps a schema-category DN onto the typed view that
// handles it. Computers are tested before users: a computer's class
// chain includes user, but its category is unambiguous.
func kindForCategory(category string) Kind {
	switch {
	case strings.HasPrefix(category, categoryComputer):
		return KindComputer
	case strings.HasPrefix(category, categoryPerson):
		return KindUser
	case strings.HasPrefix(category, categoryGroup):
		return KindGroup
	case strings.HasPrefix(category, categoryContainer),
		strings.HasPrefix(category, categoryOU),
		strings.HasPrefix(category, categoryDomain):
		return KindContainer
	default:
		return KindGeneric
	}
}

func firstValue(attrs map[string][]string, name string) string {
	if values := attrs[name]; len(values) > 0 {
		return values[0]
	}
	return ""
}

// unionProps merges attribute lists, preserving order and dropping
// duplicates case-insensitively.
func unionProps(lists ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range lists {
		for _, name := range list {
			key := strings.ToLower(name)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, name)
		}
	}
	return out
}
