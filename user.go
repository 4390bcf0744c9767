package adldap

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// User is the typed view of a user account. It embeds the underlying
// Entry, so the generic property and commit machinery stays available.
type User struct {
	*Entry
}

// AsUser narrows the entry to a user account, fetching the user
// attribute set if needed. Entries whose objectClass chain does not
// include user yield ErrClassMismatch. Computer accounts pass, as their
// class chain includes user.
func (e *Entry) AsUser(ctx context.Context) (*User, error) {
	if !hasClass(e.ObjectClass(), "user") {
		return nil, fmt.Errorf("%w: %s is not a user", ErrClassMismatch, e.DN())
	}
	if err := e.ensureProps(ctx, mandatoryProps(KindUser)); err != nil {
		return nil, err
	}
	if e.kind == KindGeneric {
		e.kind = KindUser
	}
	return &User{Entry: e}, nil
}

// hasClass reports whether the objectClass chain includes the named
// class. Directory class names compare case-insensitively.
func hasClass(chain []string, class string) bool {
	for _, c := range chain {
		if strings.EqualFold(c, class) {
			return true
		}
	}
	return false
}

// SAMAccountName returns the account's pre-Windows-2000 logon name.
func (u *User) SAMAccountName() string {
	return u.Value("sAMAccountName")
}

// DisplayName returns the account's display name.
func (u *User) DisplayName() string {
	return u.Value("displayName")
}

// MemberOf returns the DNs of the groups the account is a direct
// member of.
func (u *User) MemberOf() []string {
	return u.Values("memberOf")
}

// AccountControl returns the account's userAccountControl bitmask.
func (u *User) AccountControl() (int64, error) {
	return u.controlValue("userAccountControl")
}

// computedControl returns the server-computed control bits, which carry
// the live lockout and password-expired state.
func (u *User) computedControl() (int64, error) {
	return u.controlValue("msDS-User-Account-Control-Computed")
}

func (u *User) controlValue(name string) (int64, error) {
	raw := u.Value(name)
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q", ErrFormat, name, raw)
	}
	return value, nil
}

func (u *User) setAccountControl(value int64) {
	u.Set("userAccountControl", strconv.FormatInt(value, 10))
}

// Disabled reports whether the account is disabled.
func (u *User) Disabled() (bool, error) {
	uac, err := u.AccountControl()
	if err != nil {
		return false, err
	}
	return uac&UACAccountDisabled != 0, nil
}

// LockedOut reports whether the account is currently locked out. The
// state is read from the computed control attribute, so it reflects the
// value fetched last, not necessarily the live one.
func (u *User) LockedOut() (bool, error) {
	computed, err := u.computedControl()
	if err != nil {
		return false, err
	}
	return computed&UACLockout != 0, nil
}

// PasswordExpired reports whether the account's password has expired.
func (u *User) PasswordExpired() (bool, error) {
	computed, err := u.computedControl()
	if err != nil {
		return false, err
	}
	return computed&UACPasswordExpired != 0, nil
}

// PasswordNeverExpires reports whether password expiry is disabled for
// the account.
func (u *User) PasswordNeverExpires() (bool, error) {
	uac, err := u.AccountControl()
	if err != nil {
		return false, err
	}
	return uac&UACPasswordNeverExpires != 0, nil
}

// Disable disables the account. Disabling an already-disabled account
// yields ErrAlreadyDisabled. The returned bool is the disabled state
// re-read from the directory after the write.
func (u *User) Disable(ctx context.Context) (bool, error) {
	uac, err := u.AccountControl()
	if err != nil {
		return false, err
	}
	if uac&UACAccountDisabled != 0 {
		return true, fmt.Errorf("%w: %s", ErrAlreadyDisabled, u.DN())
	}

	u.setAccountControl(uac | UACAccountDisabled)
	if err := u.Commit(ctx); err != nil {
		return false, err
	}
	return u.verifyControl(ctx, func() (bool, error) { return u.Disabled() })
}

// Enable enables the account. Enabling an account that is not disabled
// yields ErrAlreadyEnabled. The returned bool reports whether the
// account is enabled after the write.
func (u *User) Enable(ctx context.Context) (bool, error) {
	uac, err := u.AccountControl()
	if err != nil {
		return false, err
	}
	if uac&UACAccountDisabled == 0 {
		return true, fmt.Errorf("%w: %s", ErrAlreadyEnabled, u.DN())
	}

	u.setAccountControl(uac &^ UACAccountDisabled)
	if err := u.Commit(ctx); err != nil {
		return false, err
	}
	return u.verifyControl(ctx, func() (bool, error) {
		disabled, err := u.Disabled()
		return !disabled, err
	})
}

// Unlock clears the account's lockout. Unlocking an account that is not
// locked out yields ErrNotLockedOut. The returned bool reports whether
// the account is unlocked after the write.
func (u *User) Unlock(ctx context.Context) (bool, error) {
	locked, err := u.LockedOut()
	if err != nil {
		return false, err
	}
	if !locked {
		return true, fmt.Errorf("%w: %s", ErrNotLockedOut, u.DN())
	}

	// lockoutTime must be in the baseline before the reset is visible
	// to the commit diff.
	if err := u.GetProperties(ctx, []string{"lockoutTime"}); err != nil {
		return false, err
	}
	u.Set("lockoutTime", "0")
	if err := u.Commit(ctx); err != nil {
		return false, err
	}
	return u.verifyControl(ctx, func() (bool, error) {
		locked, err := u.LockedOut()
		return !locked, err
	})
}

// verifyControl re-reads the control attributes and evaluates the given
// state check against the fresh values.
func (u *User) verifyControl(ctx context.Context, check func() (bool, error)) (bool, error) {
	err := u.GetProperties(ctx, []string{
		"userAccountControl",
		"msDS-User-Account-Control-Computed",
	})
	if err != nil {
		return false, err
	}
	return check()
}
