package adldap

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-ldap/ldap/v3"
	"github.com/rs/zerolog"
)

const testRootDN = "DC=ldap,DC=example,DC=com"

// fakeStore is an in-memory Store. Search results are stubbed per
// (base, filter) pair and served in pages, with the page offset encoded
// in the cookie. Write operations are recorded for assertion.
type fakeStore struct {
	bound   bool
	bindErr error

	results map[string][]Record

	// pageErr fails the nth SearchPage call (1-based).
	pageErr     map[int]error
	searchCalls int

	addCalls    []addCall
	modifyCalls []modifyCall
	deleteDNs   []string
	renameCalls []renameCall

	addErr    error
	modifyErr error
	deleteErr error
	renameErr error

	// onModify, when set, runs after a DiffModify is applied to the
	// stubbed records. Tests use it to mimic attributes the server
	// recomputes on its own.
	onModify func(dn string, new Properties)
}

type addCall struct {
	dn    string
	attrs Properties
}

type modifyCall struct {
	dn       string
	old, new Properties
}

type renameCall struct {
	dn        string
	newRDN    string
	newParent string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		bound:   true,
		results: make(map[string][]Record),
		pageErr: make(map[int]error),
	}
}

func stubKey(base, filter string) string {
	return base + "|" + filter
}

// stub registers the records returned for a search with the given base
// and filter.
func (f *fakeStore) stub(base, filter string, records ...Record) {
	f.results[stubKey(base, filter)] = records
}

// stubObject registers an object for lookup by DN under the test root.
func (f *fakeStore) stubObject(rec Record) {
	filter := fmt.Sprintf("(distinguishedName=%s)", ldap.EscapeFilter(rec.DN))
	f.stub(testRootDN, filter, rec)
}

func (f *fakeStore) Bind(ctx context.Context, cfg *Config) error {
	if f.bindErr != nil {
		return f.bindErr
	}
	f.bound = true
	return nil
}

func (f *fakeStore) Close() error {
	f.bound = false
	return nil
}

func (f *fakeStore) SearchPage(ctx context.Context, base, filter string, scope Scope, attrs []string, pageSize uint32, cookie []byte) (*Page, error) {
	f.searchCalls++
	if err := f.pageErr[f.searchCalls]; err != nil {
		return nil, err
	}
	if !f.bound {
		return nil, ErrNotConnected
	}

	records := f.results[stubKey(base, filter)]
	offset := 0
	if len(cookie) > 0 {
		offset, _ = strconv.Atoi(string(cookie))
	}
	end := offset + int(pageSize)
	if end > len(records) {
		end = len(records)
	}

	// Like a real server, only return the requested attributes.
	projected := make([]Record, 0, end-offset)
	for _, rec := range records[offset:end] {
		out := Record{DN: rec.DN, Attributes: make(map[string][]string)}
		for _, name := range attrs {
			if values, ok := rec.Attributes[name]; ok {
				out.Attributes[name] = values
			}
		}
		if len(attrs) == 0 {
			out.Attributes = rec.Attributes
		}
		projected = append(projected, out)
	}

	page := &Page{Records: projected, HasControl: true}
	if end < len(records) {
		page.Cookie = []byte(strconv.Itoa(end))
	}
	return page, nil
}

func (f *fakeStore) Add(ctx context.Context, dn string, attrs Properties) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.addCalls = append(f.addCalls, addCall{dn: dn, attrs: attrs.Clone()})
	return nil
}

func (f *fakeStore) DiffModify(ctx context.Context, dn string, old, new Properties) error {
	if f.modifyErr != nil {
		return f.modifyErr
	}
	f.modifyCalls = append(f.modifyCalls, modifyCall{dn: dn, old: old.Clone(), new: new.Clone()})

	// Apply the change to the stubbed records so re-reads observe it.
	for _, records := range f.results {
		for i := range records {
			if records[i].DN != dn {
				continue
			}
			for name, values := range new {
				records[i].Attributes[name] = append([]string(nil), values...)
			}
		}
	}
	if f.onModify != nil {
		f.onModify(dn, new)
	}
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, dn string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleteDNs = append(f.deleteDNs, dn)
	return nil
}

func (f *fakeStore) Rename(ctx context.Context, dn, newRDN, newParent string) error {
	if f.renameErr != nil {
		return f.renameErr
	}
	f.renameCalls = append(f.renameCalls, renameCall{dn: dn, newRDN: newRDN, newParent: newParent})
	return nil
}

// newTestSession returns a connected session over the fake store with
// the naming contexts pre-discovered.
func newTestSession(store *fakeStore) *Session {
	cfg := DefaultConfig()
	cfg.Host = "dc1.ldap.example.com"
	return &Session{
		cfg:             cfg,
		store:           store,
		log:             zerolog.Nop(),
		connected:       true,
		dnRoot:          testRootDN,
		dnForest:        testRootDN,
		dnConfiguration: "CN=Configuration," + testRootDN,
		dnSchema:        "CN=Schema,CN=Configuration," + testRootDN,
	}
}

// userRecord builds a plausible user search record.
func userRecord(cn, sam string, uac int64, computed int64) Record {
	dn := fmt.Sprintf("CN=%s,CN=Users,%s", cn, testRootDN)
	return Record{
		DN: dn,
		Attributes: map[string][]string{
			"objectClass":                        {"top", "person", "organizationalPerson", "user"},
			"objectCategory":                     {"CN=Person,CN=Schema,CN=Configuration," + testRootDN},
			"name":                               {cn},
			"whenCreated":                        {"20200102030405.0Z"},
			"whenChanged":                        {"20210102030405.0Z"},
			"sAMAccountName":                     {sam},
			"userAccountControl":                 {strconv.FormatInt(uac, 10)},
			"msDS-User-Account-Control-Computed": {strconv.FormatInt(computed, 10)},
			"displayName":                        {cn},
			"memberOf":                           {},
			"createTimeStamp":                    {"20200102030405.0Z"},
			"modifyTimeStamp":                    {"20210102030405.0Z"},
		},
	}
}

// groupRecord builds a plausible group search record. Like a real
// server, a group with no members carries no member attribute at all.
func groupRecord(cn string, members ...string) Record {
	dn := fmt.Sprintf("CN=%s,CN=Users,%s", cn, testRootDN)
	attrs := map[string][]string{
		"objectClass":    {"top", "group"},
		"objectCategory": {"CN=Group,CN=Schema,CN=Configuration," + testRootDN},
		"name":           {cn},
		"whenCreated":    {"20200102030405.0Z"},
		"whenChanged":    {"20210102030405.0Z"},
		"sAMAccountName": {cn},
		"groupType":      {"-2147483646"},
	}
	if len(members) > 0 {
		attrs["member"] = members
	}
	return Record{DN: dn, Attributes: attrs}
}
