package adldap

import (
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// normalizeDN folds a distinguished name into a comparison key.
// Attribute types and values compare case-insensitively in the
// directory, and spacing around RDN separators is not significant, so
// the DN is parsed and reassembled in lowercase. Unparsable strings
// fall back to a plain case fold.
func normalizeDN(dn string) string {
	dn = strings.TrimSpace(dn)
	parsed, err := ldap.ParseDN(dn)
	if err != nil {
		return strings.ToLower(dn)
	}

	rdns := make([]string, 0, len(parsed.RDNs))
	for _, rdn := range parsed.RDNs {
		attrs := make([]string, 0, len(rdn.Attributes))
		for _, attr := range rdn.Attributes {
			attrs = append(attrs, strings.ToLower(attr.Type)+"="+strings.ToLower(attr.Value))
		}
		rdns = append(rdns, strings.Join(attrs, "+"))
	}
	return strings.Join(rdns, ",")
}

// sameDN reports whether two distinguished names refer to the same
// object.
func sameDN(a, b string) bool {
	return normalizeDN(a) == normalizeDN(b)
}
