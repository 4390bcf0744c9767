package adldap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffProperties(t *testing.T) {
	baseline := Properties{
		"displayName": {"Alice"},
		"memberOf":    {"CN=a", "CN=b"},
		"description": {},
	}
	current := Properties{
		"displayName": {"Alice Smith"},
		"memberOf":    {"CN=a", "CN=b"},
		"description": {"hello"},
		"mail":        {"alice@example.com"}, // never fetched
	}

	old, changed := diffProperties(baseline, current)

	assert.Equal(t, Properties{
		"displayName": {"Alice"},
		"description": {},
	}, old)
	assert.Equal(t, Properties{
		"displayName": {"Alice Smith"},
		"description": {"hello"},
	}, changed)
}

func TestDiffPropertiesOrderSensitive(t *testing.T) {
	old, changed := diffProperties(
		Properties{"member": {"CN=a", "CN=b"}},
		Properties{"member": {"CN=b", "CN=a"}},
	)
	assert.Len(t, old, 1)
	assert.Len(t, changed, 1)
}

func TestPropertiesCloneIsDeep(t *testing.T) {
	orig := Properties{"member": {"CN=a"}}
	clone := orig.Clone()
	clone["member"][0] = "CN=z"
	assert.Equal(t, "CN=a", orig["member"][0])
}

func fetchUser(t *testing.T, store *fakeStore) (*Session, *Entry) {
	t.Helper()
	store.stubObject(userRecord("alice", "alice", 512, 0))

	session := newTestSession(store)
	entry, err := session.ObjectByDN(context.Background(), "CN=alice,CN=Users,"+testRootDN)
	require.NoError(t, err)
	return session, entry
}

func TestCommitSendsChangedProperties(t *testing.T) {
	store := newFakeStore()
	_, entry := fetchUser(t, store)

	require.NoError(t, entry.GetProperties(context.Background(), []string{"displayName"}))
	entry.Set("displayName", "Alice Smith")
	require.NoError(t, entry.Commit(context.Background()))

	require.Len(t, store.modifyCalls, 1)
	call := store.modifyCalls[0]
	assert.Equal(t, entry.DN(), call.dn)
	assert.Equal(t, Properties{"displayName": {"alice"}}, call.old)
	assert.Equal(t, Properties{"displayName": {"Alice Smith"}}, call.new)
}

func TestCommitEmptyChangesetStillSent(t *testing.T) {
	store := newFakeStore()
	_, entry := fetchUser(t, store)

	require.NoError(t, entry.Commit(context.Background()))

	require.Len(t, store.modifyCalls, 1)
	assert.Empty(t, store.modifyCalls[0].old)
	assert.Empty(t, store.modifyCalls[0].new)
}

func TestCommitIgnoresUnfetchedProperties(t *testing.T) {
	store := newFakeStore()
	_, entry := fetchUser(t, store)

	// displayName was never fetched, so the assignment is not in the
	// baseline and never reaches the changeset.
	entry.Set("displayName", "Alice Smith")
	require.NoError(t, entry.Commit(context.Background()))

	require.Len(t, store.modifyCalls, 1)
	assert.Empty(t, store.modifyCalls[0].new)
}

func TestCommitReplacesBaselineOnSuccess(t *testing.T) {
	store := newFakeStore()
	_, entry := fetchUser(t, store)

	entry.Set("name", "alice2")
	require.NoError(t, entry.Commit(context.Background()))
	require.NoError(t, entry.Commit(context.Background()))

	require.Len(t, store.modifyCalls, 2)
	assert.Equal(t, Properties{"name": {"alice2"}}, store.modifyCalls[0].new)
	assert.Empty(t, store.modifyCalls[1].new, "second commit must see a clean baseline")
}

func TestCommitKeepsBaselineOnFailure(t *testing.T) {
	store := newFakeStore()
	_, entry := fetchUser(t, store)

	entry.Set("name", "alice2")
	store.modifyErr = &StoreError{Op: "modify", Code: 50}
	require.Error(t, entry.Commit(context.Background()))

	store.modifyErr = nil
	require.NoError(t, entry.Commit(context.Background()))

	require.Len(t, store.modifyCalls, 1)
	assert.Equal(t, Properties{"name": {"alice2"}}, store.modifyCalls[0].new,
		"change must survive a failed commit")
}

func TestGetPropertiesMergesIntoBaseline(t *testing.T) {
	store := newFakeStore()
	_, entry := fetchUser(t, store)

	require.NoError(t, entry.GetProperties(context.Background(), []string{"displayName"}))
	assert.Equal(t, "alice", entry.Value("displayName"))

	// Freshly fetched values are synced, not dirty.
	require.NoError(t, entry.Commit(context.Background()))
	assert.Empty(t, store.modifyCalls[0].new)
}

func TestGetPropertiesRecordsAbsentAsEmpty(t *testing.T) {
	store := newFakeStore()
	_, entry := fetchUser(t, store)

	require.NoError(t, entry.GetProperties(context.Background(), []string{"carLicense"}))
	values, ok := entry.Properties()["carLicense"]
	assert.True(t, ok, "absent attribute must still enter the property map")
	assert.Empty(t, values)

	// Having been fetched, an assignment to it now commits.
	entry.Set("carLicense", "ABC-123")
	require.NoError(t, entry.Commit(context.Background()))
	require.Len(t, store.modifyCalls, 1)
	assert.Equal(t, Properties{"carLicense": {"ABC-123"}}, store.modifyCalls[0].new)
}

func TestRefresh(t *testing.T) {
	store := newFakeStore()
	_, entry := fetchUser(t, store)

	// Another writer changes the object behind our back.
	store.results[stubKey(testRootDN, "(distinguishedName=CN=alice,CN=Users,"+testRootDN+")")][0].
		Attributes["name"] = []string{"renamed"}

	require.NoError(t, entry.Refresh(context.Background()))
	assert.Equal(t, "renamed", entry.Name())
}

func TestMove(t *testing.T) {
	store := newFakeStore()
	_, entry := fetchUser(t, store)

	require.NoError(t, entry.Move(context.Background(), "OU=Staff,"+testRootDN))

	require.Len(t, store.renameCalls, 1)
	call := store.renameCalls[0]
	assert.Equal(t, "CN=alice,CN=Users,"+testRootDN, call.dn)
	assert.Equal(t, "CN=alice", call.newRDN)
	assert.Equal(t, "OU=Staff,"+testRootDN, call.newParent)

	assert.Equal(t, "CN=alice,OU=Staff,"+testRootDN, entry.DN())

	// The relocated DN is synced, not a pending change.
	require.NoError(t, entry.Commit(context.Background()))
	assert.Empty(t, store.modifyCalls[0].new)
}

func TestDelete(t *testing.T) {
	store := newFakeStore()
	_, entry := fetchUser(t, store)
	dn := entry.DN()

	require.NoError(t, entry.Delete(context.Background()))
	assert.Equal(t, []string{dn}, store.deleteDNs)
	assert.Empty(t, entry.Properties())
}

func TestCanonicalName(t *testing.T) {
	store := newFakeStore()
	_, entry := fetchUser(t, store)

	assert.Equal(t, "ldap.example.com\\Users\\alice", entry.CanonicalName())
}

func TestCreatedModifiedTime(t *testing.T) {
	store := newFakeStore()
	_, entry := fetchUser(t, store)

	created, err := entry.CreatedTime()
	require.NoError(t, err)
	modified, err := entry.ModifiedTime()
	require.NoError(t, err)
	assert.Less(t, created, modified)
}
