package identity

import (
	"encoding/base32"
	"regexp"
	"strings"

	"golang.org/x/crypto/sha3"
)

const (
	onionSuffix    = ".onion"
	onionV3Version = 0x03
)

var onionV3Pattern = regexp.MustCompile(`^[a-z2-7]{56}\.onion$`)

var checksumPrefix = []byte(".onion checksum")

// IsOnionHost reports whether host belongs to the .onion pseudo-TLD.
func IsOnionHost(host string) bool {
	return strings.HasSuffix(strings.ToLower(host), onionSuffix)
}

// ValidateOnionHost checks that an .onion host is a v3 address whose
// embedded checksum matches its public key. Subdomains are allowed.
func ValidateOnionHost(host string) error {
	host = strings.ToLower(host)
	labels := strings.Split(strings.TrimSuffix(host, onionSuffix), ".")
	address := labels[len(labels)-1] + onionSuffix
	if !isValidV3Address(address) {
		return ErrInvalidOnionAddress
	}
	return nil
}

func isValidV3Address(address string) bool {
	if !onionV3Pattern.MatchString(address) {
		return false
	}

	decoded, err := base32.StdEncoding.DecodeString(strings.ToUpper(strings.TrimSuffix(address, onionSuffix)))
	if err != nil || len(decoded) != 35 {
		return false
	}

	pubkey := decoded[:32]
	checksum := decoded[32:34]
	version := decoded[34]
	if version != onionV3Version {
		return false
	}

	expected := v3Checksum(pubkey, version)
	return checksum[0] == expected[0] && checksum[1] == expected[1]
}

func v3Checksum(pubkey []byte, version byte) []byte {
	data := make([]byte, 0, len(checksumPrefix)+len(pubkey)+1)
	data = append(data, checksumPrefix...)
	data = append(data, pubkey...)
	data = append(data, version)
	sum := sha3.Sum256(data)
	return sum[:2]
}
