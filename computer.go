package adldap

import (
	"context"
	"fmt"
)

// Computer is the typed view of a computer account. Computer accounts
// are user accounts in the directory schema, so Computer embeds User
// and inherits the account-state operations.
type Computer struct {
	*User
}

// AsComputer narrows the entry to a computer account, fetching the
// computer attribute set if needed.
func (e *Entry) AsComputer(ctx context.Context) (*Computer, error) {
	if !hasClass(e.ObjectClass(), "computer") {
		return nil, fmt.Errorf("%w: %s is not a computer", ErrClassMismatch, e.DN())
	}
	if err := e.ensureProps(ctx, mandatoryProps(KindComputer)); err != nil {
		return nil, err
	}
	e.kind = KindComputer
	return &Computer{User: &User{Entry: e}}, nil
}

// HostName returns the account's registered DNS host name.
func (c *Computer) HostName() string {
	return c.Value("dNSHostName")
}

// OperatingSystem returns the operating system name reported by the
// host, with version and service pack when present.
func (c *Computer) OperatingSystem() string {
	os := c.Value("operatingSystem")
	if v := c.Value("operatingSystemVersion"); v != "" {
		os += " " + v
	}
	if sp := c.Value("operatingSystemServicePack"); sp != "" {
		os += " " + sp
	}
	return os
}

// ServicePrincipalNames returns the SPNs registered on the account.
func (c *Computer) ServicePrincipalNames() []string {
	return c.Values("servicePrincipalName")
}
