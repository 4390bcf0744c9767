package adldap

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// Sentinel errors for the package taxonomy. All errors returned by this
// package match exactly one of these under errors.Is.
var (
	// ErrConnection indicates a transport or bind-level failure.
	ErrConnection = errors.New("adldap: connection failed")

	// ErrAuth indicates the directory rejected the supplied credentials.
	ErrAuth = errors.New("adldap: invalid credentials")

	// ErrTimeout indicates the server enforced a time limit on a query.
	ErrTimeout = errors.New("adldap: query time limit exceeded")

	// ErrNotConnected indicates an operation was attempted before Connect.
	ErrNotConnected = errors.New("adldap: session not connected")

	// ErrObjectNotFound indicates a lookup matched no directory object.
	ErrObjectNotFound = errors.New("adldap: object not found")

	// ErrMemberNotFound indicates a member slated for removal is not in
	// the group's member set.
	ErrMemberNotFound = errors.New("adldap: member not found in group")

	// ErrMemberExists indicates a member slated for addition is already
	// in the group's member set.
	ErrMemberExists = errors.New("adldap: member already in group")

	// ErrAlreadyEnabled indicates Enable was called on an enabled account.
	ErrAlreadyEnabled = errors.New("adldap: account is not disabled")

	// ErrAlreadyDisabled indicates Disable was called on a disabled account.
	ErrAlreadyDisabled = errors.New("adldap: account is already disabled")

	// ErrNotLockedOut indicates Unlock was called on an unlocked account.
	ErrNotLockedOut = errors.New("adldap: account is not locked out")

	// ErrFormat indicates a malformed property set, such as a missing
	// mandatory attribute at create time.
	ErrFormat = errors.New("adldap: invalid property format")

	// ErrClassMismatch indicates type resolution was invoked on a value
	// that is not an Entry or one of its typed views.
	ErrClassMismatch = errors.New("adldap: not a directory entry")
)

// StoreError wraps a failure reported by the backing directory store,
// preserving the operation, the DN involved and the LDAP result code.
type StoreError struct {
	Op   string // operation that failed ("search", "modify", ...)
	DN   string // DN involved, if applicable
	Code uint16 // LDAP result code, 0 when unavailable
	Err  error  // underlying error
}

func (e *StoreError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "adldap: %s failed", e.Op)
	if e.DN != "" {
		fmt.Fprintf(&b, " for %q", e.DN)
	}
	if e.Code > 0 {
		fmt.Fprintf(&b, " (result code %d)", e.Code)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *StoreError) Unwrap() error { return e.Err }

// Is maps the wrapped LDAP result code onto the package sentinels so
// callers can test with errors.Is without knowing result codes.
func (e *StoreError) Is(target error) bool {
	switch target {
	case ErrTimeout:
		return e.Code == ldap.LDAPResultTimeLimitExceeded ||
			e.Code == ldap.LDAPResultTimeout
	case ErrAuth:
		return e.Code == ldap.LDAPResultInvalidCredentials ||
			e.Code == ldap.LDAPResultInappropriateAuthentication ||
			e.Code == ldap.LDAPResultStrongAuthRequired
	case ErrConnection:
		return e.Code == ldap.LDAPResultServerDown ||
			e.Code == ldap.LDAPResultUnavailable ||
			e.Code == ldap.LDAPResultConnectError ||
			e.Code == ldap.LDAPResultBusy
	case ErrObjectNotFound:
		return e.Code == ldap.LDAPResultNoSuchObject
	}
	return false
}

// wrapStoreError classifies an error coming out of the go-ldap layer. A
// *ldap.Error keeps its result code; anything else is wrapped verbatim.
func wrapStoreError(op, dn string, err error) error {
	if err == nil {
		return nil
	}
	var lerr *ldap.Error
	if errors.As(err, &lerr) {
		return &StoreError{Op: op, DN: dn, Code: lerr.ResultCode, Err: err}
	}
	return &StoreError{Op: op, DN: dn, Err: err}
}
