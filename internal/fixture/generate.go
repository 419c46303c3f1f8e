package fixture

import (
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"net/netip"
	"strings"
)

const (
	passwordUpper   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	passwordSpecial = "!$%^()_+"
	passwordDigits  = "0123456789"
	passwordLower   = "abcdefghijklmnopqrstuvwxyz"

	clusterNamePrefix   = "slurm-accounting-"
	clusterNameAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
)

func randomFrom(alphabet string, n int) string {
	var b strings.Builder
	for range n {
		b.WriteByte(alphabet[rand.IntN(len(alphabet))])
	}
	return b.String()
}

// GeneratePassword returns a 20-character admin password drawing from four
// character classes: 6 uppercase, 4 specials, 4 digits, 6 lowercase,
// concatenated in that order.
func GeneratePassword() string {
	return randomFrom(passwordUpper, 6) +
		randomFrom(passwordSpecial, 4) +
		randomFrom(passwordDigits, 4) +
		randomFrom(passwordLower, 6)
}

// GenerateClusterName returns a fresh database cluster name with a random
// six-character lowercase-alphanumeric suffix.
func GenerateClusterName() string {
	return clusterNamePrefix + randomFrom(clusterNameAlphabet, 6)
}

// RandomHostIP picks an address uniformly from the usable host range of an
// IPv4 CIDR block, excluding the network and broadcast addresses.
func RandomHostIP(cidr string) (string, error) {
	prefix, err := netip.ParsePrefix(cidr)
	if err != nil {
		return "", fmt.Errorf("invalid subnet CIDR %q: %w", cidr, err)
	}
	if !prefix.Addr().Is4() {
		return "", fmt.Errorf("subnet CIDR %q is not IPv4", cidr)
	}

	hostBits := 32 - prefix.Bits()
	if hostBits < 2 {
		return "", fmt.Errorf("subnet CIDR %q has no usable host addresses", cidr)
	}

	total := 1 << hostBits
	offset := 1 + rand.IntN(total-2)

	base := prefix.Masked().Addr().As4()
	v := binary.BigEndian.Uint32(base[:]) + uint32(offset)

	var out [4]byte
	binary.BigEndian.PutUint32(out[:], v)
	return netip.AddrFrom4(out).String(), nil
}

// PrefixLength returns the prefix length of a CIDR string, e.g. "20" for
// "192.168.0.0/20".
func PrefixLength(cidr string) (string, error) {
	_, length, ok := strings.Cut(cidr, "/")
	if !ok {
		return "", fmt.Errorf("invalid subnet CIDR %q: missing prefix length", cidr)
	}
	return length, nil
}
