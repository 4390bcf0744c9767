package adldap

import "context"

// Scope controls how deep a search descends from its base DN. The zero
// value searches the whole subtree.
type Scope int

const (
	ScopeSubtree Scope = iota
	ScopeBase
	ScopeOneLevel
)

func (s Scope) String() string {
	switch s {
	case ScopeBase:
		return "base"
	case ScopeOneLevel:
		return "onelevel"
	default:
		return "subtree"
	}
}

// Record is one raw search result as returned by the store: the entry's
// DN and its attribute values. Attribute values are byte-preserving
// strings; binary attributes such as objectGUID arrive unmodified.
type Record struct {
	DN         string
	Attributes map[string][]string
}

// Page is the result of a single paginated-search round trip. Cookie is
// the opaque continuation token to pass to the next SearchPage call;
// HasControl reports whether the server attached a paging control at
// all. Servers may omit the control entirely when the full result fits
// in one page, so the two fields must be inspected separately.
type Page struct {
	Records    []Record
	Cookie     []byte
	HasControl bool
}

// Store is the directory-store collaborator: session bind plus the
// primitive search and write operations the session and entry layers are
// built on. The production implementation speaks LDAP via
// github.com/go-ldap/ldap/v3; tests substitute an in-memory fake.
type Store interface {
	// Bind establishes the connection and authenticates.
	Bind(ctx context.Context, cfg *Config) error

	// Close tears the connection down.
	Close() error

	// SearchPage executes exactly one page of a paginated search.
	SearchPage(ctx context.Context, base, filter string, scope Scope, attrs []string, pageSize uint32, cookie []byte) (*Page, error)

	// Add creates a new object with the given attributes.
	Add(ctx context.Context, dn string, attrs Properties) error

	// DiffModify computes the minimal per-attribute add/replace/delete
	// instruction set between old and new and applies it to dn.
	DiffModify(ctx context.Context, dn string, old, new Properties) error

	// Delete removes the object at dn.
	Delete(ctx context.Context, dn string) error

	// Rename changes an object's RDN and/or parent container.
	Rename(ctx context.Context, dn, newRDN, newParent string) error
}
