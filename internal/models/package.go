package models

import (
	"fmt"
	"time"
)

// Dimensions of a package.
type Dimensions struct {
	Length float64       `json:"length"`
	Width  float64       `json:"width"`
	Height float64       `json:"height"`
	Unit   DimensionUnit `json:"unit"`
}

// String renders the dimensions as "L x W x H unit".
func (d Dimensions) String() string {
	return fmt.Sprintf("%g x %g x %g %s", d.Length, d.Width, d.Height, d.Unit)
}

// CentimeterFactor returns the multiplier converting the unit to centimeters.
func (u DimensionUnit) CentimeterFactor() float64 {
	switch u {
	case UnitInch:
		return 2.54
	case UnitM:
		return 100
	default:
		return 1
	}
}

// VolumeCubicMeters returns the package volume in m³.
func (d Dimensions) VolumeCubicMeters() float64 {
	f := d.Unit.CentimeterFactor()
	return (d.Length * f) * (d.Width * f) * (d.Height * f) / 1_000_000
}

// Weight of a package.
type Weight struct {
	Value float64    `json:"value"`
	Unit  WeightUnit `json:"unit"`
}

// String renders the weight as "value unit".
func (w Weight) String() string {
	return fmt.Sprintf("%g %s", w.Value, w.Unit)
}

// Kilograms converts the weight to kilograms.
func (w Weight) Kilograms() float64 {
	switch w.Unit {
	case UnitLBS:
		return w.Value * 0.453592
	case UnitG:
		return w.Value / 1000
	case UnitOZ:
		return w.Value * 0.0283495
	default:
		return w.Value
	}
}

// Address is a postal address.
type Address struct {
	Street         string `json:"street"`
	City           string `json:"city"`
	State          string `json:"state"`
	PostalCode     string `json:"postal_code"`
	Country        string `json:"country"`
	AdditionalInfo string `json:"additional_info,omitempty"`
}

// Short renders "city, state, country".
func (a Address) Short() string {
	return fmt.Sprintf("%s, %s, %s", a.City, a.State, a.Country)
}

// Sender identifies who ships the package.
type Sender struct {
	Name    string   `json:"name"`
	Email   string   `json:"email,omitempty"`
	Phone   string   `json:"phone,omitempty"`
	Address *Address `json:"address,omitempty"`
}

// TrackingPrefs are the notification options for a shipment.
type TrackingPrefs struct {
	EmailNotifications bool `json:"email_notifications"`
	SMSNotifications   bool `json:"sms_notifications"`
	SignatureRequired  bool `json:"signature_required"`
}

// Package is a shipment record. Absent fields are nil pointers or empty enum
// values; Has is the only presence test.
type Package struct {
	ID                  string         `json:"id"`
	Type                PackageType    `json:"package_type,omitempty"`
	Dimensions          *Dimensions    `json:"dimensions,omitempty"`
	Weight              *Weight        `json:"weight,omitempty"`
	Fragile             *bool          `json:"is_fragile,omitempty"`
	Priority            Priority       `json:"priority,omitempty"`
	Destination         *Address       `json:"destination,omitempty"`
	Sender              *Sender        `json:"sender,omitempty"`
	SpecialInstructions string         `json:"special_instructions,omitempty"`
	EstimatedValue      *float64       `json:"estimated_value,omitempty"`
	Currency            string         `json:"currency,omitempty"`
	Insurance           *bool          `json:"insurance_required,omitempty"`
	Tracking            *TrackingPrefs `json:"tracking_preferences,omitempty"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

// Has reports whether the field holds a value.
func (p *Package) Has(f Field) bool {
	if p == nil {
		return false
	}
	switch f {
	case FieldPackageType:
		return p.Type != ""
	case FieldDimensions:
		return p.Dimensions != nil
	case FieldWeight:
		return p.Weight != nil
	case FieldFragile:
		return p.Fragile != nil
	case FieldPriority:
		return p.Priority != ""
	case FieldDestination:
		return p.Destination != nil
	case FieldSender:
		return p.Sender != nil
	case FieldSpecialInstructions:
		return p.SpecialInstructions != ""
	case FieldValue:
		return p.EstimatedValue != nil
	case FieldInsurance:
		return p.Insurance != nil
	case FieldTracking:
		return p.Tracking != nil
	default:
		return false
	}
}

// CopyField copies field f from src into p. It reports false when src does
// not hold the field.
func (p *Package) CopyField(f Field, src *Package) bool {
	if !src.Has(f) {
		return false
	}
	c := src.Clone()
	switch f {
	case FieldPackageType:
		p.Type = c.Type
	case FieldDimensions:
		p.Dimensions = c.Dimensions
	case FieldWeight:
		p.Weight = c.Weight
	case FieldFragile:
		p.Fragile = c.Fragile
	case FieldPriority:
		p.Priority = c.Priority
	case FieldDestination:
		p.Destination = c.Destination
	case FieldSender:
		p.Sender = c.Sender
	case FieldSpecialInstructions:
		p.SpecialInstructions = c.SpecialInstructions
	case FieldValue:
		p.EstimatedValue = c.EstimatedValue
		p.Currency = c.Currency
	case FieldInsurance:
		p.Insurance = c.Insurance
	case FieldTracking:
		p.Tracking = c.Tracking
	default:
		return false
	}
	return true
}

// Missing returns the required fields that are not yet set, in collection order.
func (p *Package) Missing() []Field {
	var missing []Field
	for _, f := range RequiredFields {
		if !p.Has(f) {
			missing = append(missing, f)
		}
	}
	return missing
}

// Clone returns a deep copy of the package.
func (p *Package) Clone() *Package {
	if p == nil {
		return nil
	}
	c := *p
	if p.Dimensions != nil {
		d := *p.Dimensions
		c.Dimensions = &d
	}
	if p.Weight != nil {
		w := *p.Weight
		c.Weight = &w
	}
	if p.Fragile != nil {
		c.Fragile = BoolPtr(*p.Fragile)
	}
	if p.Destination != nil {
		a := *p.Destination
		c.Destination = &a
	}
	if p.Sender != nil {
		s := *p.Sender
		if p.Sender.Address != nil {
			a := *p.Sender.Address
			s.Address = &a
		}
		c.Sender = &s
	}
	if p.EstimatedValue != nil {
		v := *p.EstimatedValue
		c.EstimatedValue = &v
	}
	if p.Insurance != nil {
		c.Insurance = BoolPtr(*p.Insurance)
	}
	if p.Tracking != nil {
		t := *p.Tracking
		c.Tracking = &t
	}
	return &c
}

// IsFragile reports whether the package is marked fragile.
func (p *Package) IsFragile() bool {
	return p != nil && p.Fragile != nil && *p.Fragile
}

// InsuranceRequired reports whether insurance was requested.
func (p *Package) InsuranceRequired() bool {
	return p != nil && p.Insurance != nil && *p.Insurance
}

// Value returns the estimated value, or 0 when unset.
func (p *Package) Value() float64 {
	if p == nil || p.EstimatedValue == nil {
		return 0
	}
	return *p.EstimatedValue
}

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool { return &b }

// Float64Ptr returns a pointer to f.
func Float64Ptr(f float64) *float64 { return &f }
