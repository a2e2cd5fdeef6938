package models

import "strings"

// Status is the lifecycle state of a delivery. The canonical values are the
// symbolic names; each has a display label used on the wire and in storage.
type Status string

const (
	StatusAssigned  Status = "Asignado"
	StatusInTransit Status = "En_camino"
	StatusDelivered Status = "Entregado"
	StatusCancelled Status = "Cancelado"
)

// unknownStatusLabel is rendered for stored tokens that no longer map to a
// known state. Decoding never fails on them; they only surface at display.
const unknownStatusLabel = "unknown status"

var statusLabels = map[Status]string{
	StatusAssigned:  "Asignado",
	StatusInTransit: "En camino",
	StatusDelivered: "Entregado",
	StatusCancelled: "Cancelado",
}

// statusTokens maps lowercased symbolic names and display labels to states.
// Built once; case is normalized here, the single point where external status
// text enters.
var statusTokens = func() map[string]Status {
	m := make(map[string]Status, 2*len(statusLabels))
	for status, label := range statusLabels {
		m[strings.ToLower(string(status))] = status
		m[strings.ToLower(label)] = status
	}
	return m
}()

// ParseStatus maps an external token to a state, matching the symbolic name
// or the display label case-insensitively.
func ParseStatus(token string) (Status, bool) {
	status, ok := statusTokens[strings.ToLower(token)]
	return status, ok
}

// Known reports whether s is one of the canonical states.
func (s Status) Known() bool {
	_, ok := statusLabels[s]
	return ok
}

// Label returns the display form of the state, or "unknown status" for
// unrecognized stored tokens.
func (s Status) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return unknownStatusLabel
}
