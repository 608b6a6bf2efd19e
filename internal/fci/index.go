package fci

import "strings"

// AckIndex resolves ACK numbers to the production run they were milled in.
// Consignments carry ACK numbers as plain strings, so a consignment may point
// at a production that was never recorded or was deleted.
type AckIndex struct {
	byAck map[string]RiceProduction
}

// NewAckIndex indexes productions. ACK numbers held by more than one record
// are returned; the first record wins.
func NewAckIndex(productions []RiceProduction) (*AckIndex, []string) {
	idx := &AckIndex{byAck: make(map[string]RiceProduction, len(productions))}
	var dupes []string
	for _, p := range productions {
		key := normaliseAck(p.AckNumber)
		if key == "" {
			continue
		}
		if _, ok := idx.byAck[key]; ok {
			dupes = append(dupes, p.AckNumber)
			continue
		}
		idx.byAck[key] = p
	}
	return idx, dupes
}

// Lookup returns the production holding ack.
func (x *AckIndex) Lookup(ack string) (RiceProduction, bool) {
	p, ok := x.byAck[normaliseAck(ack)]
	return p, ok
}

// Dangling returns consignments whose ACK number has no production record.
func (x *AckIndex) Dangling(consignments []Consignment) []Consignment {
	var out []Consignment
	for _, c := range consignments {
		if _, ok := x.Lookup(c.AckNumber); !ok {
			out = append(out, c)
		}
	}
	return out
}

func normaliseAck(ack string) string {
	return strings.ToUpper(strings.TrimSpace(ack))
}
