// Package discovery advertises and finds bus hubs with mDNS.
//
// A hub registers as "_dynalloc-bus._tcp.local." with TXT records naming
// the bus it carries. Allocation servers and devices browse for hubs to
// build their interface list, so redundant buses can be attached without
// configuring addresses. Each distinct bus name is one redundant interface.
//
// TXT keys:
//
//	bus   bus name, e.g. "A" or "B"
//	ver   protocol version
package discovery
