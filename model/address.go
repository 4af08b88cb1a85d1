package model

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// AddressRecord is the published address of the elected compute leader.
type AddressRecord struct {
	Scheme string `json:"scheme"`
	Host   string `json:"host"`
	Port   int    `json:"port"`
}

// String renders the record the way it is stored: "<scheme>://<host>:<port>".
func (r AddressRecord) String() string {
	return r.Scheme + "://" + net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}

// IsZero reports whether the record is unset.
func (r AddressRecord) IsZero() bool {
	return r == AddressRecord{}
}

// ParseAddress parses a stored address record. Surrounding whitespace,
// including the trailing newline, is ignored.
func ParseAddress(raw string) (AddressRecord, error) {
	value := strings.TrimSpace(raw)
	scheme, rest, ok := strings.Cut(value, "://")
	if !ok || scheme == "" {
		return AddressRecord{}, fmt.Errorf("invalid address record %q: missing scheme", value)
	}
	host, portText, err := net.SplitHostPort(rest)
	if err != nil {
		return AddressRecord{}, fmt.Errorf("invalid address record %q: %w", value, err)
	}
	if host == "" {
		return AddressRecord{}, fmt.Errorf("invalid address record %q: missing host", value)
	}
	port, err := strconv.Atoi(portText)
	if err != nil || port <= 0 || port > 65535 {
		return AddressRecord{}, fmt.Errorf("invalid address record %q: bad port", value)
	}
	return AddressRecord{Scheme: scheme, Host: host, Port: port}, nil
}
