// Package layout models a warehouse's physical addressing scheme and the
// codec that turns it into location codes. Everything here is pure: no
// storage, no locking.
package layout

import (
	"errors"
	"fmt"
	"regexp"
)

// Location types carried on generated addresses.
const (
	TypePick    = "pick"
	TypeReserve = "reserve"
	TypeDock    = "dock"
	TypeStage   = "stage"
)

// Equipment needed to reach a slot.
const (
	EquipmentManual   = "manual"
	EquipmentForklift = "forklift"
)

// GroundLevel is the implicit level of a bay with no elevation suffix.
const GroundLevel = "0"

const (
	DefaultCheckDigitSpace = 37
	DefaultCheckDigitKey   = 11
	DefaultBayCapacity     = 100
	MaxBay                 = 999
)

var (
	ErrInvalidLayout        = errors.New("invalid layout")
	ErrMalformedCode        = errors.New("malformed location code")
	ErrUnknownSection       = errors.New("unknown section")
	ErrUnknownAisle         = errors.New("unknown aisle")
	ErrUnknownLevel         = errors.New("unknown level")
	ErrUnknownSubsection    = errors.New("unknown subsection")
	ErrBayOutOfRange        = errors.New("bay out of range")
	ErrSubsectionNotAllowed = errors.New("subsection not allowed")
	ErrDuplicateAddress     = errors.New("duplicate address")
	ErrCheckDigitMismatch   = errors.New("check digit mismatch")
)

var (
	sectionCodePattern = regexp.MustCompile(`^[A-Z]$`)
	aisleCodePattern   = regexp.MustCompile(`^[A-Z]{1,3}$`)
	levelCodePattern   = regexp.MustCompile(`^[B-N]$`)
	subsectionPattern  = regexp.MustCompile(`^[1-9]$`)
)

// Layout describes a warehouse as an ordered tree of sections, aisles and
// levels. Declaration order is the canonical order used for check-digit
// assignment, so reordering a layout changes every digit after the moved
// element.
type Layout struct {
	Name            string    `yaml:"name" json:"name" bson:"name"`
	CheckDigitSpace int       `yaml:"checkDigitSpace,omitempty" json:"checkDigitSpace,omitempty" bson:"checkDigitSpace"`
	CheckDigitKey   int       `yaml:"checkDigitKey,omitempty" json:"checkDigitKey,omitempty" bson:"checkDigitKey"`
	Sections        []Section `yaml:"sections" json:"sections" bson:"sections"`
}

// Section is a top-level warehouse zone identified by a single letter.
type Section struct {
	Code   string  `yaml:"code" json:"code" bson:"code"`
	Name   string  `yaml:"name,omitempty" json:"name,omitempty" bson:"name,omitempty"`
	Aisles []Aisle `yaml:"aisles" json:"aisles" bson:"aisles"`
}

// Aisle is a run of bays. A complex aisle subdivides each ground-level bay
// into subsections; a simple aisle has a single pickable face per level.
type Aisle struct {
	Code         string   `yaml:"code" json:"code" bson:"code"`
	Complex      bool     `yaml:"complex,omitempty" json:"complex,omitempty" bson:"complex"`
	BayStart     int      `yaml:"bayStart" json:"bayStart" bson:"bayStart"`
	BayEnd       int      `yaml:"bayEnd" json:"bayEnd" bson:"bayEnd"`
	Levels       []string `yaml:"levels,omitempty" json:"levels,omitempty" bson:"levels,omitempty"`
	Subsections  []string `yaml:"subsections,omitempty" json:"subsections,omitempty" bson:"subsections,omitempty"`
	LocationType string   `yaml:"locationType,omitempty" json:"locationType,omitempty" bson:"locationType,omitempty"`
	Capacity     int      `yaml:"capacity,omitempty" json:"capacity,omitempty" bson:"capacity,omitempty"`
	Equipment    string   `yaml:"equipment,omitempty" json:"equipment,omitempty" bson:"equipment,omitempty"`
}

// Address identifies one physical slot. Generated in a batch from a layout
// and immutable afterwards except for the occupancy fields, which belong to
// the inventory subsystem.
type Address struct {
	Code             string `bson:"code" json:"code"`
	Section          string `bson:"section" json:"section"`
	Aisle            string `bson:"aisle" json:"aisle"`
	Bay              int    `bson:"bay" json:"bay"`
	Level            string `bson:"level" json:"level"`
	Subsection       string `bson:"subsection,omitempty" json:"subsection,omitempty"`
	Ordinal          int    `bson:"ordinal" json:"ordinal"`
	CheckDigit       int    `bson:"checkDigit" json:"checkDigit"`
	LocationType     string `bson:"locationType" json:"locationType"`
	Equipment        string `bson:"equipment" json:"equipment"`
	Capacity         int    `bson:"capacity" json:"capacity"`
	CurrentOccupancy int    `bson:"currentOccupancy" json:"currentOccupancy"`
	IsActive         bool   `bson:"isActive" json:"isActive"`
}

// Key returns the uniqueness tuple for the address.
func (a *Address) Key() string {
	return fmt.Sprintf("%s|%s|%03d|%s|%s", a.Section, a.Aisle, a.Bay, a.Level, a.Subsection)
}

// OverCapacity reports the soft occupancy constraint. It is informational;
// enforcement belongs to inventory adjustments, not the codec.
func (a *Address) OverCapacity() bool {
	return a.Capacity > 0 && a.CurrentOccupancy > a.Capacity
}

// Normalize fills layout defaults in place. Called by NewCodec before
// validation.
func (l *Layout) Normalize() {
	if l.Name == "" {
		l.Name = "warehouse"
	}
	if l.CheckDigitSpace == 0 {
		l.CheckDigitSpace = DefaultCheckDigitSpace
	}
	if l.CheckDigitKey == 0 {
		l.CheckDigitKey = DefaultCheckDigitKey
	}
	for si := range l.Sections {
		for ai := range l.Sections[si].Aisles {
			aisle := &l.Sections[si].Aisles[ai]
			if aisle.BayStart == 0 {
				aisle.BayStart = 1
			}
			if aisle.LocationType == "" {
				aisle.LocationType = TypePick
			}
			if aisle.Capacity == 0 {
				aisle.Capacity = DefaultBayCapacity
			}
		}
	}
}

// Validate checks the whole layout before any address is generated, so a
// partially valid layout never produces codes.
func (l *Layout) Validate() error {
	if l.CheckDigitSpace < 2 {
		return fmt.Errorf("%w: check digit space must be at least 2", ErrInvalidLayout)
	}
	if l.CheckDigitKey < 1 || gcd(l.CheckDigitKey, l.CheckDigitSpace) != 1 {
		return fmt.Errorf("%w: check digit key %d is not coprime to %d", ErrInvalidLayout, l.CheckDigitKey, l.CheckDigitSpace)
	}
	if len(l.Sections) == 0 {
		return fmt.Errorf("%w: at least one section is required", ErrInvalidLayout)
	}

	sectionCodes := make(map[string]struct{}, len(l.Sections))
	for _, section := range l.Sections {
		if !sectionCodePattern.MatchString(section.Code) {
			return fmt.Errorf("%w: section code %q must be a single letter", ErrInvalidLayout, section.Code)
		}
		if _, dup := sectionCodes[section.Code]; dup {
			return fmt.Errorf("%w: section %s declared twice", ErrInvalidLayout, section.Code)
		}
		sectionCodes[section.Code] = struct{}{}

		if len(section.Aisles) == 0 {
			return fmt.Errorf("%w: section %s has no aisles", ErrInvalidLayout, section.Code)
		}
		aisleCodes := make(map[string]struct{}, len(section.Aisles))
		for _, aisle := range section.Aisles {
			if err := validateAisle(section.Code, aisle); err != nil {
				return err
			}
			if _, dup := aisleCodes[aisle.Code]; dup {
				return fmt.Errorf("%w: aisle %s%s declared twice", ErrInvalidLayout, section.Code, aisle.Code)
			}
			aisleCodes[aisle.Code] = struct{}{}
		}
	}
	return nil
}

func validateAisle(sectionCode string, aisle Aisle) error {
	where := sectionCode + aisle.Code
	if !aisleCodePattern.MatchString(aisle.Code) {
		return fmt.Errorf("%w: aisle code %q in section %s must be 1-3 letters", ErrInvalidLayout, aisle.Code, sectionCode)
	}
	if aisle.BayStart < 1 || aisle.BayEnd > MaxBay || aisle.BayStart > aisle.BayEnd {
		return fmt.Errorf("%w: aisle %s bay range %d-%d is invalid", ErrInvalidLayout, where, aisle.BayStart, aisle.BayEnd)
	}
	seenLevels := make(map[string]struct{}, len(aisle.Levels))
	for _, level := range aisle.Levels {
		if !levelCodePattern.MatchString(level) {
			return fmt.Errorf("%w: aisle %s level %q must be a letter B-N", ErrInvalidLayout, where, level)
		}
		if _, dup := seenLevels[level]; dup {
			return fmt.Errorf("%w: aisle %s level %s declared twice", ErrInvalidLayout, where, level)
		}
		seenLevels[level] = struct{}{}
	}
	if aisle.Complex {
		if len(aisle.Subsections) == 0 {
			return fmt.Errorf("%w: complex aisle %s needs at least one subsection", ErrInvalidLayout, where)
		}
		seenSubs := make(map[string]struct{}, len(aisle.Subsections))
		for _, sub := range aisle.Subsections {
			if !subsectionPattern.MatchString(sub) {
				return fmt.Errorf("%w: aisle %s subsection %q must be a digit 1-9", ErrInvalidLayout, where, sub)
			}
			if _, dup := seenSubs[sub]; dup {
				return fmt.Errorf("%w: aisle %s subsection %s declared twice", ErrInvalidLayout, where, sub)
			}
			seenSubs[sub] = struct{}{}
		}
	} else if len(aisle.Subsections) > 0 {
		return fmt.Errorf("%w: aisle %s is not complex but declares subsections", ErrInvalidLayout, where)
	}
	switch aisle.LocationType {
	case "", TypePick, TypeReserve, TypeDock, TypeStage:
	default:
		return fmt.Errorf("%w: aisle %s has unknown location type %q", ErrInvalidLayout, where, aisle.LocationType)
	}
	switch aisle.Equipment {
	case "", EquipmentManual, EquipmentForklift:
	default:
		return fmt.Errorf("%w: aisle %s has unknown equipment %q", ErrInvalidLayout, where, aisle.Equipment)
	}
	if aisle.Capacity < 0 {
		return fmt.Errorf("%w: aisle %s capacity cannot be negative", ErrInvalidLayout, where)
	}
	return nil
}

// slotsPerBay is the number of addresses one bay contributes.
func (a *Aisle) slotsPerBay() int {
	ground := 1
	if a.Complex {
		ground = len(a.Subsections)
	}
	return ground + len(a.Levels)
}

// AddressCount returns the number of addresses the aisle generates.
func (a *Aisle) AddressCount() int {
	return (a.BayEnd - a.BayStart + 1) * a.slotsPerBay()
}

// equipmentFor infers reach equipment for a level when the aisle does not
// pin one. Ground and first elevation are walkable; anything higher needs a
// forklift.
func (a *Aisle) equipmentFor(level string) string {
	if a.Equipment != "" {
		return a.Equipment
	}
	if level == GroundLevel || level == "B" {
		return EquipmentManual
	}
	return EquipmentForklift
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
