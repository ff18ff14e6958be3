package nlu

import (
	"testing"

	"github.com/BTreeMap/ParcelPipe/internal/models"
)

func TestExtractDimensions(t *testing.T) {
	tests := []struct {
		text string
		want models.Dimensions
		ok   bool
	}{
		{"10 x 5 x 3 cm", models.Dimensions{Length: 10, Width: 5, Height: 3, Unit: models.UnitCM}, true},
		{"10x5x3cm", models.Dimensions{Length: 10, Width: 5, Height: 3, Unit: models.UnitCM}, true},
		{"12 X 8 X 6 inches", models.Dimensions{Length: 12, Width: 8, Height: 6, Unit: models.UnitInch}, true},
		{"1.2 × 0.8 × 1 m", models.Dimensions{Length: 1.2, Width: 0.8, Height: 1, Unit: models.UnitM}, true},
		{"4*4*4 in", models.Dimensions{Length: 4, Width: 4, Height: 4, Unit: models.UnitInch}, true},
		{"length: 20 width: 10 height: 5", models.Dimensions{Length: 20, Width: 10, Height: 5, Unit: models.UnitCM}, true},
		{"length 20 width 10 height 5 inches", models.Dimensions{Length: 20, Width: 10, Height: 5, Unit: models.UnitInch}, true},
		{"length 20 width 10", models.Dimensions{}, false},
		{"10 x 5 x 3 mm", models.Dimensions{}, false},
		{"length 20 width 10 height 5 mm", models.Dimensions{}, false},
		{"a big box", models.Dimensions{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := ExtractDimensions(tt.text)
			if ok != tt.ok {
				t.Fatalf("ExtractDimensions(%q) ok = %v, expected %v", tt.text, ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("ExtractDimensions(%q) = %+v, expected %+v", tt.text, got, tt.want)
			}
		})
	}
}

func TestExtractDimensions_PrimaryWinsOverLabelled(t *testing.T) {
	got, ok := ExtractDimensions("length 1 width 2 height 3, actually 10 x 5 x 3 cm")
	if !ok {
		t.Fatal("Expected dimensions to be extracted")
	}
	if got.Length != 10 || got.Width != 5 || got.Height != 3 {
		t.Errorf("Expected primary triple to win, got %+v", got)
	}
}

func TestExtractWeight(t *testing.T) {
	tests := []struct {
		text string
		want models.Weight
		ok   bool
	}{
		{"5 kg", models.Weight{Value: 5, Unit: models.UnitKG}, true},
		{"5kg", models.Weight{Value: 5, Unit: models.UnitKG}, true},
		{"2.5 kilograms", models.Weight{Value: 2.5, Unit: models.UnitKG}, true},
		{"10 lbs", models.Weight{Value: 10, Unit: models.UnitLBS}, true},
		{"1 pound", models.Weight{Value: 1, Unit: models.UnitLBS}, true},
		{"500 g", models.Weight{Value: 500, Unit: models.UnitG}, true},
		{"500 grams", models.Weight{Value: 500, Unit: models.UnitG}, true},
		{"12 oz", models.Weight{Value: 12, Unit: models.UnitOZ}, true},
		{"3 gift boxes", models.Weight{}, false},
		{"heavy", models.Weight{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := ExtractWeight(tt.text)
			if ok != tt.ok {
				t.Fatalf("ExtractWeight(%q) ok = %v, expected %v", tt.text, ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("ExtractWeight(%q) = %+v, expected %+v", tt.text, got, tt.want)
			}
		})
	}
}

func TestExtractWeight_GramNeverInsideKilogram(t *testing.T) {
	got, ok := ExtractWeight("7 kg")
	if !ok || got.Unit != models.UnitKG {
		t.Errorf("Expected kg, got %+v (ok=%v)", got, ok)
	}
	got, ok = ExtractWeight("7 kgs")
	if !ok || got.Unit != models.UnitKG {
		t.Errorf("Expected kg for 'kgs', got %+v (ok=%v)", got, ok)
	}
}

func TestExtractPackageType(t *testing.T) {
	tests := []struct {
		text string
		want models.PackageType
		ok   bool
	}{
		{"small box", models.PackageBox, true},
		{"Large ENVELOPE", models.PackageEnvelope, true},
		{"wooden crate", models.PackageCrate, true},
		{"a pallet", models.PackagePallet, true},
		{"poster tube", models.PackageTube, true},
		{"a bag", "", false},
	}
	for _, tt := range tests {
		got, ok := ExtractPackageType(tt.text)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ExtractPackageType(%q) = (%q, %v), expected (%q, %v)", tt.text, got, ok, tt.want, tt.ok)
		}
	}
}

func TestExtractPriority(t *testing.T) {
	tests := []struct {
		text string
		want models.Priority
		ok   bool
	}{
		{"express", models.PriorityExpress, true},
		{"fast please", models.PriorityExpress, true},
		{"overnight", models.PriorityOvernight, true},
		{"next day, fast", models.PriorityOvernight, true},
		{"same day", models.PrioritySameDay, true},
		{"same-day but normal packaging", models.PrioritySameDay, true},
		{"standard", models.PriorityStandard, true},
		{"regular", models.PriorityStandard, true},
		{"breakfast", "", false},
		{"whenever", "", false},
	}
	for _, tt := range tests {
		got, ok := ExtractPriority(tt.text)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ExtractPriority(%q) = (%q, %v), expected (%q, %v)", tt.text, got, ok, tt.want, tt.ok)
		}
	}
}

func TestExtractBoolean(t *testing.T) {
	tests := []struct {
		text  string
		value bool
		ok    bool
	}{
		{"yes", true, true},
		{"Y", true, true},
		{"sure!", true, true},
		{"true", true, true},
		{"no", false, true},
		{"Nope.", false, true},
		{"false", false, true},
		{"maybe", false, false},
		{"no way", false, false},
	}
	for _, tt := range tests {
		v, ok := ExtractBoolean(tt.text)
		if v != tt.value || ok != tt.ok {
			t.Errorf("ExtractBoolean(%q) = (%v, %v), expected (%v, %v)", tt.text, v, ok, tt.value, tt.ok)
		}
	}
}

func TestExtractEmailAndPhone(t *testing.T) {
	text := "Jane Smith, jane.smith@example.com, +1 (555) 123-4567"
	email, ok := ExtractEmail(text)
	if !ok || email != "jane.smith@example.com" {
		t.Errorf("Expected email jane.smith@example.com, got %q (ok=%v)", email, ok)
	}
	phone, ok := ExtractPhone(text)
	if !ok || phone != "+1 (555) 123-4567" {
		t.Errorf("Expected phone '+1 (555) 123-4567', got %q (ok=%v)", phone, ok)
	}

	phone, ok = ExtractPhone("Jane Smith, call 555.123.4567.")
	if !ok || phone != "555.123.4567" {
		t.Errorf("Expected phone '555.123.4567', got %q (ok=%v)", phone, ok)
	}

	if _, ok := ExtractEmail("no at sign here"); ok {
		t.Error("Expected no email")
	}
	if _, ok := ExtractPhone("10 x 5 x 3 cm"); ok {
		t.Error("Expected dimensions not to look like a phone number")
	}
	if _, ok := ExtractPhone("123 Main Street, Springfield, IL, 62701, USA"); ok {
		t.Error("Expected an address not to look like a phone number")
	}
}
