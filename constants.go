package adldap

import "regexp"

// userAccountControl flag bits, as documented for the ADS_USER_FLAG_ENUM
// enumeration. Lockout and password-expired state are reported through the
// computed msDS-User-Account-Control-Computed attribute, not the writable
// userAccountControl value.
const (
	UACScript                 int64 = 0x00000001
	UACAccountDisabled        int64 = 0x00000002
	UACHomeDirRequired        int64 = 0x00000008
	UACLockout                int64 = 0x00000010
	UACPasswordNotRequired    int64 = 0x00000020
	UACPasswordCantChange     int64 = 0x00000040
	UACNormalAccount          int64 = 0x00000200
	UACWorkstationTrust       int64 = 0x00001000
	UACServerTrust            int64 = 0x00002000
	UACPasswordNeverExpires   int64 = 0x00010000
	UACSmartCardRequired      int64 = 0x00040000
	UACTrustedForDelegation   int64 = 0x00080000
	UACDontRequirePreauth     int64 = 0x00400000
	UACPasswordExpired        int64 = 0x00800000
)

// Schema-category RDN prefixes. Joined with the session's configuration
// naming context they form a full objectCategory DN.
const (
	categoryPerson    = "CN=Person,CN=Schema,"
	categoryComputer  = "CN=Computer,CN=Schema,"
	categoryGroup     = "CN=Group,CN=Schema,"
	categoryContainer = "CN=Container,CN=Schema,"
	categoryOU        = "CN=Organizational-Unit,CN=Schema,"
	categoryDomain    = "CN=Domain-DNS,CN=Schema,"
)

// objectClass chain stamped on user creation.
var classUser = []string{"top", "person", "organizationalPerson", "user"}

// Kind discriminates the typed view an Entry was constructed for.
type Kind int

const (
	KindGeneric Kind = iota
	KindUser
	KindComputer
	KindGroup
	KindContainer
)

func (k Kind) String() string {
	switch k {
	case KindUser:
		return "user"
	case KindComputer:
		return "computer"
	case KindGroup:
		return "group"
	case KindContainer:
		return "container"
	default:
		return "object"
	}
}

// mandatoryPropsDefault is backfilled on every search result so generic
// accessors never observe a missing key.
var mandatoryPropsDefault = []string{
	"distinguishedName",
	"objectClass",
	"objectCategory",
	"name",
	"whenCreated",
	"whenChanged",
}

// Per-kind prefetch lists. Each list extends the default set; a typed
// view fetches whatever is absent at construction.
var (
	mandatoryPropsUser = append(mandatoryPropsDefault[:len(mandatoryPropsDefault):len(mandatoryPropsDefault)],
		"sAMAccountName",
		"userAccountControl",
		"msDS-User-Account-Control-Computed",
		"displayName",
		"memberOf",
		"createTimeStamp",
		"modifyTimeStamp",
	)

	mandatoryPropsComputer = append(mandatoryPropsUser[:len(mandatoryPropsUser):len(mandatoryPropsUser)],
		"dNSHostName",
		"servicePrincipalName",
		"operatingSystem",
		"operatingSystemVersion",
		"operatingSystemServicePack",
	)

	mandatoryPropsGroup = append(mandatoryPropsDefault[:len(mandatoryPropsDefault):len(mandatoryPropsDefault)],
		"sAMAccountName",
		"groupType",
		"member",
	)
)

func mandatoryProps(kind Kind) []string {
	switch kind {
	case KindUser:
		return mandatoryPropsUser
	case KindComputer:
		return mandatoryPropsComputer
	case KindGroup:
		return mandatoryPropsGroup
	default:
		return mandatoryPropsDefault
	}
}

// Attributes the server maintains itself; they are excluded from the
// mandatory-attribute validation at create time.
var serverManagedProps = map[string]bool{
	"distinguishedName": true,
	"memberOf":          true,
	"createTimeStamp":   true,
	"modifyTimeStamp":   true,
	"whenCreated":       true,
	"whenChanged":       true,

	"msDS-User-Account-Control-Computed": true,
}

var (
	// reHostname captures the short host name from a bare name or FQDN.
	reHostname = regexp.MustCompile(`^[a-zA-Z0-9\-]+`)

	// reFirstRDN captures the leading CN= or OU= component of a DN.
	reFirstRDN = regexp.MustCompile(`^((?:CN|OU)=[^,]+)`)

	// reTextTime matches the generalized-time stamps used by attributes
	// such as whenCreated: YYYYMMDDHHMMSS with an optional fraction,
	// terminated by Z.
	reTextTime = regexp.MustCompile(`^(\d{4})(\d{2})(\d{2})(\d{2})(\d{2})(\d{2})(?:\.\d+)?Z$`)
)
