// Package shipment extracts carrier tracking references from free-text order notes.
package shipment

import (
	"regexp"
	"strings"
)

const (
	CarrierUPS     = "UPS"
	CarrierFedEx   = "FedEx"
	CarrierUSPS    = "USPS"
	CarrierDHL     = "DHL"
	CarrierUnknown = "Unknown"
)

// Tracking is one tracking reference found in notes.
type Tracking struct {
	Carrier        string `json:"carrier"`
	TrackingNumber string `json:"trackingNumber"`
	URL            string `json:"url,omitempty"`
}

var (
	// "<Carrier> tracking <number>" or "<Carrier> tracking: <number>"
	carrierLineRe = regexp.MustCompile(`(?i)\b(ups|fedex|usps|dhl)\s+tracking\s*(?:#|no\.?|number)?\s*[:#]?\s*([A-Z0-9]{8,34})\b`)
	// "Tracking: <number>" with no carrier
	trackingLineRe = regexp.MustCompile(`(?i)\btracking\s*(?:#|no\.?|number)?\s*[:#]\s*([A-Z0-9]{8,34})\b`)

	upsRe   = regexp.MustCompile(`(?i)\b1Z[A-Z0-9]{16}\b`)
	fedexRe = regexp.MustCompile(`\b(\d{15}|\d{12})\b`)
	uspsRe  = regexp.MustCompile(`\b(\d{20,22})\b`)
)

type match struct {
	pos int
	t   Tracking
}

// Parse returns the tracking references in notes in the order they appear, de-duplicated by number.
func Parse(notes string) []Tracking {
	if strings.TrimSpace(notes) == "" {
		return []Tracking{}
	}

	var found []match
	claimed := map[string]struct{}{}

	add := func(pos int, carrier, number string) {
		number = strings.ToUpper(strings.TrimSpace(number))
		if !strings.ContainsAny(number, "0123456789") {
			return
		}
		if _, ok := claimed[number]; ok {
			return
		}
		claimed[number] = struct{}{}
		if carrier == "" {
			carrier = DetectCarrier(number)
		}
		found = append(found, match{pos: pos, t: Tracking{
			Carrier:        carrier,
			TrackingNumber: number,
			URL:            TrackingURL(carrier, number),
		}})
	}

	for _, m := range carrierLineRe.FindAllStringSubmatchIndex(notes, -1) {
		add(m[0], canonicalCarrier(notes[m[2]:m[3]]), notes[m[4]:m[5]])
	}
	for _, m := range trackingLineRe.FindAllStringSubmatchIndex(notes, -1) {
		add(m[0], "", notes[m[2]:m[3]])
	}
	for _, m := range upsRe.FindAllStringIndex(notes, -1) {
		add(m[0], CarrierUPS, notes[m[0]:m[1]])
	}
	// USPS before FedEx so long numbers are not split into FedEx lengths.
	for _, m := range uspsRe.FindAllStringSubmatchIndex(notes, -1) {
		add(m[0], CarrierUSPS, notes[m[2]:m[3]])
	}
	for _, m := range fedexRe.FindAllStringSubmatchIndex(notes, -1) {
		add(m[0], CarrierFedEx, notes[m[2]:m[3]])
	}

	sortByPosition(found)
	out := make([]Tracking, 0, len(found))
	for _, f := range found {
		out = append(out, f.t)
	}
	return out
}

// DetectCarrier guesses the carrier from the shape of a tracking number.
func DetectCarrier(number string) string {
	switch {
	case upsRe.MatchString(number) && len(number) == 18:
		return CarrierUPS
	case isDigits(number) && len(number) >= 20 && len(number) <= 22:
		return CarrierUSPS
	case isDigits(number) && (len(number) == 12 || len(number) == 15):
		return CarrierFedEx
	}
	return CarrierUnknown
}

func TrackingURL(carrier, number string) string {
	switch carrier {
	case CarrierUPS:
		return "https://www.ups.com/track?tracknum=" + number
	case CarrierFedEx:
		return "https://www.fedex.com/fedextrack/?trknbr=" + number
	case CarrierUSPS:
		return "https://tools.usps.com/go/TrackConfirmAction?tLabels=" + number
	case CarrierDHL:
		return "https://www.dhl.com/en/express/tracking.html?AWB=" + number
	}
	return ""
}

func canonicalCarrier(raw string) string {
	switch strings.ToLower(raw) {
	case "ups":
		return CarrierUPS
	case "fedex":
		return CarrierFedEx
	case "usps":
		return CarrierUSPS
	case "dhl":
		return CarrierDHL
	}
	return CarrierUnknown
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func sortByPosition(ms []match) {
	for i := 1; i < len(ms); i++ {
		for j := i; j > 0 && ms[j].pos < ms[j-1].pos; j-- {
			ms[j], ms[j-1] = ms[j-1], ms[j]
		}
	}
}
