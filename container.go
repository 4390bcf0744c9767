package adldap

import (
	"context"
	"fmt"
)

// Container is the typed view of a container or organizational unit.
type Container struct {
	*Entry
}

// AsContainer narrows the entry to a container view. Containers,
// organizational units and domain heads all qualify.
func (e *Entry) AsContainer(ctx context.Context) (*Container, error) {
	chain := e.ObjectClass()
	if !hasClass(chain, "container") &&
		!hasClass(chain, "organizationalUnit") &&
		!hasClass(chain, "builtinDomain") &&
		!hasClass(chain, "domainDNS") {
		return nil, fmt.Errorf("%w: %s is not a container", ErrClassMismatch, e.DN())
	}
	if err := e.ensureProps(ctx, mandatoryProps(KindContainer)); err != nil {
		return nil, err
	}
	e.kind = KindContainer
	return &Container{Entry: e}, nil
}

// Children returns the objects beneath the container: direct children
// by default, the entire subtree when recursive is set. The container
// itself is never included.
func (c *Container) Children(ctx context.Context, recursive bool) ([]*Entry, error) {
	scope := ScopeOneLevel
	if recursive {
		scope = ScopeSubtree
	}
	results, err := c.session.Search(ctx, "(objectClass=*)", &SearchOptions{
		BaseDN: c.DN(),
		Scope:  scope,
	})
	if err != nil {
		return nil, err
	}

	children := make([]*Entry, 0, len(results))
	for _, entry := range results {
		if sameDN(entry.DN(), c.DN()) {
			continue
		}
		children = append(children, entry)
	}
	return children, nil
}
