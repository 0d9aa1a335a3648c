package mqtt

import "strings"

// DefaultTopicPrefix is used when Topics.Prefix is empty.
const DefaultTopicPrefix = "pgadapt"

// Topics builds pgadapt topic names:
//
//	{prefix}/status/{client_id}
//	{prefix}/probe/{server}/{case}
//	{prefix}/catalog/{server}
//
// Server keys look like "host:5432/db"; the slash is not a level separator
// there, so Segment rewrites it.
type Topics struct {
	Prefix string
}

func (t Topics) prefix() string {
	if t.Prefix == "" {
		return DefaultTopicPrefix
	}
	return strings.TrimSuffix(t.Prefix, "/")
}

// Status returns the retained online/offline topic for a client.
func (t Topics) Status(clientID string) string {
	return t.prefix() + "/status/" + Segment(clientID)
}

// ProbeResult returns the topic for one probe case against server.
func (t Topics) ProbeResult(server, caseName string) string {
	return t.prefix() + "/probe/" + Segment(server) + "/" + Segment(caseName)
}

// AllProbeResults returns a wildcard matching every probe result for server.
func (t Topics) AllProbeResults(server string) string {
	return t.prefix() + "/probe/" + Segment(server) + "/+"
}

// CatalogRefresh returns the topic announcing a catalog reload for server.
func (t Topics) CatalogRefresh(server string) string {
	return t.prefix() + "/catalog/" + Segment(server)
}

// Segment makes s safe as a single topic level: level separators and
// wildcards become underscores, and an empty string becomes "_".
func Segment(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '+', '#', 0:
			return '_'
		}
		return r
	}, s)
}
