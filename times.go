package adldap

import (
	"fmt"
	"strconv"
	"time"
)

// FileTimeEpoch is January 1, 1970 expressed in Windows FILETIME units:
// 100-nanosecond intervals since January 1, 1601.
const FileTimeEpoch int64 = 116444736000000000

const ticksPerSecond int64 = 10_000_000

// FileTimeToUnix converts a 64-bit FILETIME tick count, as stored in
// attributes like lastLogon and pwdLastSet, to seconds since the Unix
// epoch. Sub-second precision is truncated.
func FileTimeToUnix(ticks int64) int64 {
	return (ticks - FileTimeEpoch) / ticksPerSecond
}

// UnixToFileTime converts seconds since the Unix epoch to a FILETIME
// tick count. It is the inverse of FileTimeToUnix at whole-second
// granularity.
func UnixToFileTime(seconds int64) int64 {
	return seconds*ticksPerSecond + FileTimeEpoch
}

// TextTimeToUnix converts a generalized-time stamp of the form
// YYYYMMDDHHMMSS[.f]Z, as stored in attributes like whenCreated, to
// seconds since the Unix epoch. The calendar fields are interpreted in
// the local time zone.
func TextTimeToUnix(stamp string) (int64, error) {
	m := reTextTime.FindStringSubmatch(stamp)
	if m == nil {
		return 0, fmt.Errorf("%w: malformed time stamp %q", ErrFormat, stamp)
	}

	var f [6]int
	for i := range f {
		f[i], _ = strconv.Atoi(m[i+1])
	}

	t := time.Date(f[0], time.Month(f[1]), f[2], f[3], f[4], f[5], 0, time.Local)
	return t.Unix(), nil
}
