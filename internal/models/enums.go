// Package models defines enumerations shared by the dialogue engine, the
// stores and the API.
package models

import "strings"

// ConversationState is one named stage of the intake dialogue.
type ConversationState string

// Conversation states.
const (
	StateWelcome                   ConversationState = "welcome"
	StateAskingPackageType         ConversationState = "asking_package_type"
	StateAskingDimensions          ConversationState = "asking_dimensions"
	StateAskingWeight              ConversationState = "asking_weight"
	StateAskingFragile             ConversationState = "asking_fragile"
	StateAskingPriority            ConversationState = "asking_priority"
	StateAskingDestination         ConversationState = "asking_destination"
	StateAskingSender              ConversationState = "asking_sender"
	StateAskingSpecialInstructions ConversationState = "asking_special_instructions"
	StateAskingValue               ConversationState = "asking_value"
	StateAskingInsurance           ConversationState = "asking_insurance"
	StateAskingTrackingPrefs       ConversationState = "asking_tracking_prefs"
	StatePackageSummary            ConversationState = "package_summary"
	StateEditing                   ConversationState = "editing"
	StateAskingContinue            ConversationState = "asking_continue"
	StateCompleted                 ConversationState = "completed"
)

// IsValidConversationState reports whether s is a known conversation state.
func IsValidConversationState(s ConversationState) bool {
	switch s {
	case StateWelcome, StateAskingPackageType, StateAskingDimensions, StateAskingWeight,
		StateAskingFragile, StateAskingPriority, StateAskingDestination, StateAskingSender,
		StateAskingSpecialInstructions, StateAskingValue, StateAskingInsurance,
		StateAskingTrackingPrefs, StatePackageSummary, StateEditing, StateAskingContinue,
		StateCompleted:
		return true
	default:
		return false
	}
}

// Intent is the high-level purpose of an utterance.
type Intent string

// IntentNone is returned when no intent pattern matched.
const IntentNone Intent = ""

// Intent catalog.
const (
	IntentConfirm       Intent = "confirm"
	IntentDeny          Intent = "deny"
	IntentHelp          Intent = "help"
	IntentSkip          Intent = "skip"
	IntentSameAsLast    Intent = "same_as_last"
	IntentFinish        Intent = "finish"
	IntentCancel        Intent = "cancel"
	IntentPause         Intent = "pause"
	IntentExport        Intent = "export"
	IntentViewSummary   Intent = "view_summary"
	IntentAddPackage    Intent = "add_package"
	IntentEditPackage   Intent = "edit_package"
	IntentDeletePackage Intent = "delete_package"
	IntentBulkEdit      Intent = "bulk_edit"
	IntentUseTemplate   Intent = "use_template"
	IntentSaveTemplate  Intent = "save_template"
)

// IsGlobal reports whether the intent is honored regardless of the current state.
func (i Intent) IsGlobal() bool {
	switch i {
	case IntentHelp, IntentViewSummary, IntentFinish, IntentCancel, IntentPause, IntentExport:
		return true
	default:
		return false
	}
}

// EntityKind identifies the type of a value extracted from free text.
type EntityKind string

// Entity kinds.
const (
	EntityPackageType EntityKind = "package_type"
	EntityDimensions  EntityKind = "dimension"
	EntityWeight      EntityKind = "weight"
	EntityPriority    EntityKind = "priority"
	EntityBoolean     EntityKind = "boolean"
	EntityEmail       EntityKind = "email"
	EntityPhone       EntityKind = "phone"
)

// PackageType is the kind of container being shipped.
type PackageType string

// Package types.
const (
	PackageBox      PackageType = "box"
	PackageEnvelope PackageType = "envelope"
	PackageCrate    PackageType = "crate"
	PackagePallet   PackageType = "pallet"
	PackageTube     PackageType = "tube"
	PackageOther    PackageType = "other"
)

// PackageTypes lists every accepted package type in display order.
var PackageTypes = []PackageType{PackageBox, PackageEnvelope, PackageCrate, PackagePallet, PackageTube, PackageOther}

// ParsePackageType normalizes s and returns the matching package type.
func ParsePackageType(s string) (PackageType, bool) {
	pt := PackageType(strings.ToLower(strings.TrimSpace(s)))
	for _, v := range PackageTypes {
		if v == pt {
			return v, true
		}
	}
	return "", false
}

// Priority is the requested shipping speed.
type Priority string

// Priority levels.
const (
	PriorityStandard  Priority = "standard"
	PriorityExpress   Priority = "express"
	PriorityOvernight Priority = "overnight"
	PrioritySameDay   Priority = "same_day"
)

// Priorities lists every accepted priority in display order.
var Priorities = []Priority{PriorityStandard, PriorityExpress, PriorityOvernight, PrioritySameDay}

// ParsePriority normalizes separators ("same day", "same-day") and returns the matching priority.
func ParsePriority(s string) (Priority, bool) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	for _, v := range Priorities {
		if Priority(norm) == v {
			return v, true
		}
	}
	return "", false
}

// DimensionUnit is a unit of length.
type DimensionUnit string

// Dimension units.
const (
	UnitCM   DimensionUnit = "cm"
	UnitInch DimensionUnit = "inch"
	UnitM    DimensionUnit = "m"
)

// IsValid reports whether u is a supported length unit.
func (u DimensionUnit) IsValid() bool {
	return u == UnitCM || u == UnitInch || u == UnitM
}

// WeightUnit is a unit of mass.
type WeightUnit string

// Weight units.
const (
	UnitKG  WeightUnit = "kg"
	UnitLBS WeightUnit = "lbs"
	UnitG   WeightUnit = "g"
	UnitOZ  WeightUnit = "oz"
)

// IsValid reports whether u is a supported mass unit.
func (u WeightUnit) IsValid() bool {
	return u == UnitKG || u == UnitLBS || u == UnitG || u == UnitOZ
}

// Field names one field of a shipment record.
type Field string

// Record fields, in collection order.
const (
	FieldPackageType         Field = "package_type"
	FieldDimensions          Field = "dimensions"
	FieldWeight              Field = "weight"
	FieldFragile             Field = "fragile"
	FieldPriority            Field = "priority"
	FieldDestination         Field = "destination"
	FieldSender              Field = "sender"
	FieldSpecialInstructions Field = "special_instructions"
	FieldValue               Field = "value"
	FieldInsurance           Field = "insurance"
	FieldTracking            Field = "tracking"
)

// Fields lists every record field in collection order.
var Fields = []Field{
	FieldPackageType, FieldDimensions, FieldWeight, FieldFragile, FieldPriority,
	FieldDestination, FieldSender, FieldSpecialInstructions, FieldValue,
	FieldInsurance, FieldTracking,
}

// RequiredFields are the fields a record must hold before it can be committed.
var RequiredFields = []Field{
	FieldPackageType, FieldDimensions, FieldWeight, FieldFragile, FieldPriority, FieldDestination,
}

// Label returns a human readable name for the field.
func (f Field) Label() string {
	switch f {
	case FieldPackageType:
		return "package type"
	case FieldSpecialInstructions:
		return "special instructions"
	case FieldTracking:
		return "tracking preferences"
	default:
		return string(f)
	}
}

// SignalKind names a request the engine hands off to an external collaborator.
type SignalKind string

// Signal kinds.
const (
	SignalExport SignalKind = "export"
	SignalFinish SignalKind = "finish"
	SignalPause  SignalKind = "pause"
)
