package library

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
)

// OrderKey holds the ordered list of track ids.
const OrderKey = "tracks-order"

func recordKey(id string) string { return "track:" + id }
func audioKey(id string) string  { return "blob:" + id }
func coverKey(id string) string  { return "cover:" + id }

// Fingerprint identifies a source file by name and byte size. It is weak by
// design: two different files with the same name and size collide.
func Fingerprint(name string, size int64) string {
	return name + "__" + strconv.FormatInt(size, 10)
}

// nameFromFingerprint recovers the original file name.
func nameFromFingerprint(fp string) string {
	if i := strings.LastIndex(fp, "__"); i >= 0 {
		return fp[:i]
	}
	return fp
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// newID returns t_<unix millis>_<6 base36 chars>.
func newID(now time.Time) string {
	var suffix [6]byte
	max := big.NewInt(int64(len(base36)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			suffix[i] = base36[now.UnixNano()%int64(len(base36))]
			continue
		}
		suffix[i] = base36[n.Int64()]
	}
	return fmt.Sprintf("t_%d_%s", now.UnixMilli(), suffix[:])
}
