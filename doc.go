/*
Package adldap manipulates objects in an Active Directory domain over LDAP.

The package is built around two concepts:

  - Session: every interaction with the directory service itself —
    binding, searching, creating, modifying and deleting objects — goes
    through a Session. Connect resolves the root DSE naming contexts once
    at bind time.

  - Entry: a single object in the directory (a user, computer, group, OU,
    or anything else). An Entry carries a Properties map of attribute
    name to value list, plus a baseline snapshot of the last
    server-acknowledged state. Mutate the map with Set and persist with
    Commit; Commit diffs properties against the baseline and transmits
    only what changed.

User, Computer, Group and Container are typed views over Entry. Each view
eagerly fetches a fixed set of mandatory attributes at construction, so
its accessors never observe a missing key. User adds guarded account
state transitions (Disable, Enable, Unlock); Group adds set-based
membership reconciliation (AddMembers, RemoveMembers, OverwriteMembers);
Container enumerates children.

# Commit semantics

An attribute must be present in the baseline — fetched from the server at
least once — before an assignment to it is visible to Commit. Assigning a
never-fetched attribute and committing silently omits it from the
transmitted changeset. Commits carry no concurrency token: two sessions
writing overlapping attributes follow last-writer-wins.

# Error handling

Failures surface as sentinel errors (ErrNotConnected, ErrTimeout,
ErrObjectNotFound, ErrMemberExists, ...) testable with errors.Is. Errors
originating in the directory server are wrapped in a StoreError carrying
the operation, DN and LDAP result code.
*/
package adldap
