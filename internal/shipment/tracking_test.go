package shipment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cases := []struct {
		name  string
		notes string
		want  []Tracking
	}{
		{
			name:  "empty",
			notes: "   ",
			want:  []Tracking{},
		},
		{
			name:  "explicit carrier",
			notes: "Shipped today. FedEx tracking 123456789012",
			want: []Tracking{
				{Carrier: CarrierFedEx, TrackingNumber: "123456789012", URL: "https://www.fedex.com/fedextrack/?trknbr=123456789012"},
			},
		},
		{
			name:  "bare ups number",
			notes: "box 1 -> 1Z999AA10123456784",
			want: []Tracking{
				{Carrier: CarrierUPS, TrackingNumber: "1Z999AA10123456784", URL: "https://www.ups.com/track?tracknum=1Z999AA10123456784"},
			},
		},
		{
			name:  "tracking label detects carrier",
			notes: "Tracking: 9400111899223817321234",
			want: []Tracking{
				{Carrier: CarrierUSPS, TrackingNumber: "9400111899223817321234", URL: "https://tools.usps.com/go/TrackConfirmAction?tLabels=9400111899223817321234"},
			},
		},
		{
			name:  "dhl",
			notes: "DHL tracking: JD014600006281234567",
			want: []Tracking{
				{Carrier: CarrierDHL, TrackingNumber: "JD014600006281234567", URL: "https://www.dhl.com/en/express/tracking.html?AWB=JD014600006281234567"},
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Parse(tc.notes))
		})
	}
}

func TestParseKeepsNoteOrderAndDeduplicates(t *testing.T) {
	notes := "Split shipment.\nUPS tracking 1Z999AA10123456784\nsecond box 123456789012345\nre-sent 1Z999AA10123456784"

	got := Parse(notes)
	require.Len(t, got, 2)
	assert.Equal(t, CarrierUPS, got[0].Carrier)
	assert.Equal(t, "123456789012345", got[1].TrackingNumber)
	assert.Equal(t, CarrierFedEx, got[1].Carrier)
}

func TestDetectCarrier(t *testing.T) {
	assert.Equal(t, CarrierUPS, DetectCarrier("1Z999AA10123456784"))
	assert.Equal(t, CarrierFedEx, DetectCarrier("123456789012"))
	assert.Equal(t, CarrierUSPS, DetectCarrier("92001901755477000000000"[:22]))
	assert.Equal(t, CarrierUnknown, DetectCarrier("ABC123"))
	assert.Empty(t, TrackingURL(CarrierUnknown, "x"))
}

func TestParseIgnoresWordsAfterTracking(t *testing.T) {
	assert.Empty(t, Parse("UPS tracking provided separately"))
}
