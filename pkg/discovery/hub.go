package discovery

import (
	"errors"
	"net"
	"slices"
	"strconv"
	"strings"
)

// mDNS names.
const (
	ServiceType = "_dynalloc-bus._tcp"
	Domain      = "local."

	// ProtocolVersion is advertised in the ver TXT record.
	ProtocolVersion = 1
)

// TXT record keys.
const (
	TXTKeyBus     = "bus"
	TXTKeyVersion = "ver"
)

// ErrMissingBusName is returned when a hub entry has no bus name.
var ErrMissingBusName = errors.New("hub TXT record has no bus name")

// Hub is a discovered bus hub.
type Hub struct {
	Instance  string
	Host      string
	Port      int
	Addresses []string
	Bus       string
	Version   int
}

// Address returns a dialable host:port, preferring a resolved IPv4
// address.
func (h *Hub) Address() string {
	host := strings.TrimSuffix(h.Host, ".")
	for _, a := range h.Addresses {
		if ip := net.ParseIP(a); ip != nil && ip.To4() != nil {
			host = a
			break
		}
	}
	if host == "" && len(h.Addresses) > 0 {
		host = h.Addresses[0]
	}
	return net.JoinHostPort(host, strconv.Itoa(h.Port))
}

// EncodeTXT builds the TXT records for a hub carrying bus.
func EncodeTXT(bus string) []string {
	return []string{
		TXTKeyBus + "=" + bus,
		TXTKeyVersion + "=" + strconv.Itoa(ProtocolVersion),
	}
}

// DecodeTXT extracts the bus name and version from TXT records.
func DecodeTXT(records []string) (bus string, version int, err error) {
	for _, r := range records {
		key, value, ok := strings.Cut(r, "=")
		if !ok {
			continue
		}
		switch key {
		case TXTKeyBus:
			bus = value
		case TXTKeyVersion:
			if v, err := strconv.Atoi(value); err == nil {
				version = v
			}
		}
	}
	if bus == "" {
		return "", 0, ErrMissingBusName
	}
	return bus, version, nil
}

// SelectInterfaces picks one hub per bus name, ordered by bus name.
func SelectInterfaces(hubs []*Hub) []*Hub {
	byBus := make(map[string]*Hub)
	for _, h := range hubs {
		if _, ok := byBus[h.Bus]; !ok {
			byBus[h.Bus] = h
		}
	}
	out := make([]*Hub, 0, len(byBus))
	for _, h := range byBus {
		out = append(out, h)
	}
	slices.SortFunc(out, func(a, b *Hub) int { return strings.Compare(a.Bus, b.Bus) })
	return out
}

func mergeAddresses(have, add []string) []string {
	for _, a := range add {
		if !slices.Contains(have, a) {
			have = append(have, a)
		}
	}
	return have
}
