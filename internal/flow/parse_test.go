package flow

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/BTreeMap/ParcelPipe/internal/models"
	"github.com/BTreeMap/ParcelPipe/internal/nlu"
)

var testNLU = nlu.NewProcessor()

func TestParseAddress(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  models.Address
		ok    bool
	}{
		{
			name:  "five comma parts",
			input: "123 Main Street, Springfield, IL, 62701, USA",
			want:  models.Address{Street: "123 Main Street", City: "Springfield", State: "IL", PostalCode: "62701", Country: "USA"},
			ok:    true,
		},
		{
			name:  "extra parts become additional info",
			input: "9 Elm St, Austin, TX, 73301, Suite 4, Floor 2, USA",
			want:  models.Address{Street: "9 Elm St", City: "Austin", State: "TX", PostalCode: "73301", Country: "USA", AdditionalInfo: "Suite 4, Floor 2"},
			ok:    true,
		},
		{
			name:  "four parts with state and postal",
			input: "9 Elm St, Austin, TX 73301, USA",
			want:  models.Address{Street: "9 Elm St", City: "Austin", State: "TX", PostalCode: "73301", Country: "USA"},
			ok:    true,
		},
		{
			name:  "four parts with city and state",
			input: "9 Elm St, Austin TX, 73301, USA",
			want:  models.Address{Street: "9 Elm St", City: "Austin", State: "TX", PostalCode: "73301", Country: "USA"},
			ok:    true,
		},
		{
			name:  "three parts",
			input: "9 Elm St, Austin TX 73301, USA",
			want:  models.Address{Street: "9 Elm St", City: "Austin", State: "TX", PostalCode: "73301", Country: "USA"},
			ok:    true,
		},
		{
			name:  "multi-line",
			input: "123 Main Street\nSpringfield, IL\n62701 USA",
			want:  models.Address{Street: "123 Main Street", City: "Springfield", State: "IL", PostalCode: "62701", Country: "USA"},
			ok:    true,
		},
		{
			name:  "multi-line with postal on city line",
			input: "123 Main Street\nSpringfield, IL 62701\nUSA",
			want:  models.Address{Street: "123 Main Street", City: "Springfield", State: "IL", PostalCode: "62701", Country: "USA"},
			ok:    true,
		},
		{
			name:  "multi-line with additional info",
			input: "1 Dock Rd\nPortsmouth, Hampshire\nPO1 3LJ\nUnit 7\nUK",
			want:  models.Address{Street: "1 Dock Rd", City: "Portsmouth", State: "Hampshire", PostalCode: "PO1 3LJ", Country: "UK", AdditionalInfo: "Unit 7"},
			ok:    true,
		},
		{name: "too few parts", input: "Springfield, USA", ok: false},
		{name: "two lines", input: "123 Main Street\nSpringfield", ok: false},
		{name: "four parts without postal", input: "9 Elm St, Austin, Texas, USA", ok: false},
		{name: "empty", input: "   ", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseAddress(tt.input)
			if ok != tt.ok {
				t.Fatalf("Expected ok=%v, got %v (%+v)", tt.ok, ok, got)
			}
			if !tt.ok {
				return
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("address mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseSender(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  models.Sender
		ok    bool
	}{
		{"name only", "John Doe", models.Sender{Name: "John Doe"}, true},
		{"name and email", "Jane Smith, jane@example.com", models.Sender{Name: "Jane Smith", Email: "jane@example.com"}, true},
		{"email first", "jane@example.com, Jane Smith", models.Sender{Name: "Jane Smith", Email: "jane@example.com"}, true},
		{"name and phone", "Bob Ray, +1 555 123 4567", models.Sender{Name: "Bob Ray", Phone: "+1 555 123 4567"}, true},
		{"no name", "jane@example.com", models.Sender{}, false},
		{"blank", "", models.Sender{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseSender(tt.input, testNLU.Process(tt.input))
			if ok != tt.ok {
				t.Fatalf("Expected ok=%v, got %v (%+v)", tt.ok, ok, got)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("sender mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseSender_WithAddress(t *testing.T) {
	input := "Jane Smith, jane@example.com\n123 Main Street\nSpringfield, IL\n62701 USA"
	got, ok := parseSender(input, testNLU.Process(input))
	if !ok {
		t.Fatal("Expected sender to parse")
	}
	if got.Address == nil || got.Address.City != "Springfield" {
		t.Errorf("Expected sender address in Springfield, got %+v", got.Address)
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		input    string
		amount   float64
		currency string
		ok       bool
	}{
		{"100", 100, "USD", true},
		{"$250.50", 250.50, "USD", true},
		{"$1,250.50", 1250.50, "USD", true},
		{"250 EUR", 250, "EUR", true},
		{"€40", 40, "EUR", true},
		{"£12.99", 12.99, "GBP", true},
		{"about 30 bucks", 30, "USD", true},
		{"75 CAD", 75, "CAD", true},
		{"-5", -5, "USD", true},
		{"priceless", 0, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			amount, currency, ok := parseValue(tt.input, "USD")
			if ok != tt.ok {
				t.Fatalf("Expected ok=%v, got %v", tt.ok, ok)
			}
			if amount != tt.amount || currency != tt.currency {
				t.Errorf("Expected %v %s, got %v %s", tt.amount, tt.currency, amount, currency)
			}
		})
	}
}

func TestParseTracking(t *testing.T) {
	tests := []struct {
		input string
		want  models.TrackingPrefs
		ok    bool
	}{
		{"email", models.TrackingPrefs{EmailNotifications: true}, true},
		{"email and SMS", models.TrackingPrefs{EmailNotifications: true, SMSNotifications: true}, true},
		{"text me please", models.TrackingPrefs{SMSNotifications: true}, true},
		{"signature required", models.TrackingPrefs{SignatureRequired: true}, true},
		{"all of them", models.TrackingPrefs{EmailNotifications: true, SMSNotifications: true, SignatureRequired: true}, true},
		{"no", models.TrackingPrefs{}, true},
		{"carrier pigeon", models.TrackingPrefs{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := parseTracking(tt.input, testNLU.Process(tt.input))
			if ok != tt.ok {
				t.Fatalf("Expected ok=%v, got %v", tt.ok, ok)
			}
			if got != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestParseDimensions(t *testing.T) {
	tests := []struct {
		input   string
		want    models.Dimensions
		warning bool
		ok      bool
	}{
		{"10 x 5 x 3 cm", models.Dimensions{Length: 10, Width: 5, Height: 3, Unit: models.UnitCM}, false, true},
		{"12 by 8 by 6 inches", models.Dimensions{Length: 12, Width: 8, Height: 6, Unit: models.UnitInch}, false, true},
		{"1, 2, 3 m", models.Dimensions{Length: 1, Width: 2, Height: 3, Unit: models.UnitM}, false, true},
		{"10 x 5 x 3", models.Dimensions{Length: 10, Width: 5, Height: 3, Unit: models.UnitCM}, true, true},
		{"10 x 5 x 3 mm", models.Dimensions{}, false, false},
		{"10x5x3 ft", models.Dimensions{}, false, false},
		{"4 by 2 by 1 feet", models.Dimensions{}, false, false},
		{"pretty big", models.Dimensions{}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, warning, ok := parseDimensions(tt.input, testNLU.Process(tt.input))
			if ok != tt.ok {
				t.Fatalf("Expected ok=%v, got %v", tt.ok, ok)
			}
			if got != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
			if (warning != "") != tt.warning {
				t.Errorf("Expected warning=%v, got %q", tt.warning, warning)
			}
		})
	}
}

func TestParseWeight(t *testing.T) {
	tests := []struct {
		input string
		want  models.Weight
		ok    bool
	}{
		{"5 kg", models.Weight{Value: 5, Unit: models.UnitKG}, true},
		{"10 lbs", models.Weight{Value: 10, Unit: models.UnitLBS}, true},
		{"3 kilos", models.Weight{Value: 3, Unit: models.UnitKG}, true},
		{"500 grammes", models.Weight{Value: 500, Unit: models.UnitG}, true},
		{"7#", models.Weight{Value: 7, Unit: models.UnitLBS}, true},
		{"heavy", models.Weight{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := parseWeight(tt.input, testNLU.Process(tt.input))
			if ok != tt.ok {
				t.Fatalf("Expected ok=%v, got %v", tt.ok, ok)
			}
			if got != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestParseFragile(t *testing.T) {
	tests := []struct {
		input string
		want  bool
		ok    bool
	}{
		{"yes", true, true},
		{"no", false, true},
		{"it's quite delicate", true, true},
		{"not fragile at all", false, true},
		{"sturdy", false, true},
		{"maybe", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := parseFragile(tt.input, testNLU.Process(tt.input))
			if ok != tt.ok || got != tt.want {
				t.Errorf("Expected (%v, %v), got (%v, %v)", tt.want, tt.ok, got, ok)
			}
		})
	}
}

func TestParsePackageType(t *testing.T) {
	tests := []struct {
		input string
		want  models.PackageType
		ok    bool
	}{
		{"small box", models.PackageBox, true},
		{"a large envelope", models.PackageEnvelope, true},
		{"something other", models.PackageOther, true},
		{"bag", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := parsePackageType(tt.input, testNLU.Process(tt.input))
			if ok != tt.ok || got != tt.want {
				t.Errorf("Expected (%q, %v), got (%q, %v)", tt.want, tt.ok, got, ok)
			}
		})
	}
}

func TestParseTemplateName(t *testing.T) {
	tests := map[string]string{
		"save as template":               "default",
		"save as template Office":        "office",
		"use template named weekly-mail": "weekly-mail",
		`use template called "gifts"`:    "gifts",
	}
	for input, want := range tests {
		if got := parseTemplateName(input); got != want {
			t.Errorf("parseTemplateName(%q): expected %q, got %q", input, want, got)
		}
	}
}

func TestParseRecordNumber(t *testing.T) {
	tests := []struct {
		input string
		want  int
		ok    bool
	}{
		{"delete package 2", 1, true},
		{"remove 10", 9, true},
		{"delete package 0", 0, false},
		{"delete it", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := parseRecordNumber(tt.input)
			if ok != tt.ok || got != tt.want {
				t.Errorf("Expected (%d, %v), got (%d, %v)", tt.want, tt.ok, got, ok)
			}
		})
	}
}

func TestEditTarget(t *testing.T) {
	tests := []struct {
		input string
		want  models.Field
		ok    bool
	}{
		{"change weight", models.FieldWeight, true},
		{"edit the size", models.FieldDimensions, true},
		{"shipping address", models.FieldDestination, true},
		{"shipping speed", models.FieldPriority, true},
		{"package type", models.FieldPackageType, true},
		{"special handling", models.FieldSpecialInstructions, true},
		{"the price", models.FieldValue, true},
		{"tracking", models.FieldTracking, true},
		{"everything", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := editTarget(tt.input)
			if ok != tt.ok || got != tt.want {
				t.Errorf("Expected (%q, %v), got (%q, %v)", tt.want, tt.ok, got, ok)
			}
		})
	}
}
