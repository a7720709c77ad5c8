// Package ids generates the prefixed identifiers used for every stored record,
// e.g. "clinic_1729180000000_4f9a1c".
package ids

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const suffixLen = 6

// Entity prefixes.
const (
	Clinic  = "clinic"
	User    = "user"
	Doctor  = "doctor"
	Service = "service"
	Patient = "patient"
	Visit   = "visit"
	Payment = "payment"
	File    = "file"
)

var now = time.Now

// New returns "{prefix}_{unixMillis}_{random}".
func New(prefix string) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%s_%d_%s", prefix, now().UnixMilli(), random[:suffixLen])
}

// HasPrefix reports whether id was generated for the given prefix.
func HasPrefix(id, prefix string) bool {
	return strings.HasPrefix(id, prefix+"_")
}
