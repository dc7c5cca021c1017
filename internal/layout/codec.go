package layout

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Codec generates, parses and verifies location codes for one layout.
// Codes follow the grammar
//
//	SECTION AISLE "-" BAY3 [ "." LEVEL [ "." SUBSECTION ] ]
//
// where the ground level "0" is omitted unless a subsection follows, so a
// simple ground slot reads HA-045, an elevated slot HA-045.B, and a complex
// ground slot AA-045.0.3.
type Codec struct {
	layout   *Layout
	pattern  *regexp.Regexp
	sections map[string]*Section
	aisles   map[string]*Aisle
}

// NewCodec normalizes and validates the layout, then builds the parse
// tables. The layout is not copied; callers must not mutate it afterwards.
func NewCodec(l *Layout) (*Codec, error) {
	l.Normalize()
	if err := l.Validate(); err != nil {
		return nil, err
	}

	c := &Codec{
		layout:   l,
		sections: make(map[string]*Section, len(l.Sections)),
		aisles:   make(map[string]*Aisle),
	}
	sectionAlts := make([]string, 0, len(l.Sections))
	for si := range l.Sections {
		section := &l.Sections[si]
		c.sections[section.Code] = section
		sectionAlts = append(sectionAlts, regexp.QuoteMeta(section.Code))
		for ai := range section.Aisles {
			c.aisles[section.Code+section.Aisles[ai].Code] = &section.Aisles[ai]
		}
	}
	c.pattern = regexp.MustCompile(
		`^(` + strings.Join(sectionAlts, "|") + `)([A-Z]{1,3})-(\d{3})(?:\.([0B-N])(?:\.([1-9]))?)?$`,
	)
	return c, nil
}

// Layout returns the layout the codec was built from.
func (c *Codec) Layout() *Layout {
	return c.layout
}

// Generate walks the layout in canonical order and produces every address
// with its ordinal and check digit. The result is deterministic for a given
// layout.
func (c *Codec) Generate() ([]Address, error) {
	addresses := make([]Address, 0, c.AddressCount())
	seen := make(map[string]struct{})
	ordinal := 0

	for si := range c.layout.Sections {
		section := &c.layout.Sections[si]
		for ai := range section.Aisles {
			aisle := &section.Aisles[ai]
			for bay := aisle.BayStart; bay <= aisle.BayEnd; bay++ {
				for _, slot := range aisleSlots(aisle) {
					ordinal++
					addr := Address{
						Section:      section.Code,
						Aisle:        aisle.Code,
						Bay:          bay,
						Level:        slot.level,
						Subsection:   slot.subsection,
						Ordinal:      ordinal,
						CheckDigit:   c.CheckDigit(ordinal),
						LocationType: aisle.LocationType,
						Equipment:    aisle.equipmentFor(slot.level),
						Capacity:     aisle.Capacity,
						IsActive:     true,
					}
					addr.Code = c.Format(addr.Section, addr.Aisle, addr.Bay, addr.Level, addr.Subsection)
					if _, dup := seen[addr.Key()]; dup {
						return nil, fmt.Errorf("%w: %s", ErrDuplicateAddress, addr.Code)
					}
					seen[addr.Key()] = struct{}{}
					addresses = append(addresses, addr)
				}
			}
		}
	}
	return addresses, nil
}

// AddressCount returns the number of addresses Generate will produce.
func (c *Codec) AddressCount() int {
	total := 0
	for _, section := range c.layout.Sections {
		for i := range section.Aisles {
			total += section.Aisles[i].AddressCount()
		}
	}
	return total
}

type slot struct {
	level      string
	subsection string
}

// aisleSlots enumerates one bay's slots in canonical order: ground
// subsections first, then elevated levels in declared order.
func aisleSlots(aisle *Aisle) []slot {
	slots := make([]slot, 0, aisle.slotsPerBay())
	if aisle.Complex {
		for _, sub := range aisle.Subsections {
			slots = append(slots, slot{level: GroundLevel, subsection: sub})
		}
	} else {
		slots = append(slots, slot{level: GroundLevel})
	}
	for _, level := range aisle.Levels {
		slots = append(slots, slot{level: level})
	}
	return slots
}

// Format renders the canonical code for an address tuple.
func (c *Codec) Format(section, aisle string, bay int, level, subsection string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s%s-%03d", section, aisle, bay)
	if subsection != "" {
		fmt.Fprintf(&b, ".%s.%s", level, subsection)
	} else if level != GroundLevel {
		fmt.Fprintf(&b, ".%s", level)
	}
	return b.String()
}

// Parse resolves a code string against the layout and returns the fully
// populated address, ordinal and check digit included.
func (c *Codec) Parse(code string) (*Address, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	match := c.pattern.FindStringSubmatch(code)
	if match == nil {
		// Distinguish an unknown section from outright garbage so voice
		// prompts can say which.
		if genericCodePattern.MatchString(code) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownSection, code)
		}
		return nil, fmt.Errorf("%w: %q", ErrMalformedCode, code)
	}

	sectionCode, aisleCode := match[1], match[2]
	bay, _ := strconv.Atoi(match[3])
	level, subsection := match[4], match[5]
	if level == "" {
		level = GroundLevel
	}

	aisle, ok := c.aisles[sectionCode+aisleCode]
	if !ok {
		return nil, fmt.Errorf("%w: no aisle %s in section %s", ErrUnknownAisle, aisleCode, sectionCode)
	}
	if bay < aisle.BayStart || bay > aisle.BayEnd {
		return nil, fmt.Errorf("%w: bay %03d outside %03d-%03d in aisle %s%s", ErrBayOutOfRange, bay, aisle.BayStart, aisle.BayEnd, sectionCode, aisleCode)
	}
	if subsection != "" {
		if !aisle.Complex {
			return nil, fmt.Errorf("%w: aisle %s%s is not complex", ErrSubsectionNotAllowed, sectionCode, aisleCode)
		}
		if level != GroundLevel {
			return nil, fmt.Errorf("%w: subsections exist only at ground level", ErrSubsectionNotAllowed)
		}
		if indexOf(aisle.Subsections, subsection) < 0 {
			return nil, fmt.Errorf("%w: %q in aisle %s%s", ErrUnknownSubsection, subsection, sectionCode, aisleCode)
		}
	} else if aisle.Complex && level == GroundLevel {
		return nil, fmt.Errorf("%w: ground level of complex aisle %s%s requires a subsection", ErrMalformedCode, sectionCode, aisleCode)
	}
	if level != GroundLevel && indexOf(aisle.Levels, level) < 0 {
		return nil, fmt.Errorf("%w: %q in aisle %s%s", ErrUnknownLevel, level, sectionCode, aisleCode)
	}

	addr := &Address{
		Code:         c.Format(sectionCode, aisleCode, bay, level, subsection),
		Section:      sectionCode,
		Aisle:        aisleCode,
		Bay:          bay,
		Level:        level,
		Subsection:   subsection,
		LocationType: aisle.LocationType,
		Equipment:    aisle.equipmentFor(level),
		Capacity:     aisle.Capacity,
		IsActive:     true,
	}
	addr.Ordinal = c.ordinalOf(addr, aisle)
	addr.CheckDigit = c.CheckDigit(addr.Ordinal)
	return addr, nil
}

var genericCodePattern = regexp.MustCompile(`^[A-Z]{2,4}-\d{3}(\.[0B-N](\.[1-9])?)?$`)

// ordinalOf derives the 1-indexed canonical position of an address by
// counting the slots that precede it.
func (c *Codec) ordinalOf(addr *Address, aisle *Aisle) int {
	before := 0
	for si := range c.layout.Sections {
		section := &c.layout.Sections[si]
		for ai := range section.Aisles {
			candidate := &section.Aisles[ai]
			if section.Code == addr.Section && candidate.Code == addr.Aisle {
				offset := (addr.Bay - aisle.BayStart) * aisle.slotsPerBay()
				if addr.Level == GroundLevel {
					if aisle.Complex {
						offset += indexOf(aisle.Subsections, addr.Subsection)
					}
				} else {
					ground := 1
					if aisle.Complex {
						ground = len(aisle.Subsections)
					}
					offset += ground + indexOf(aisle.Levels, addr.Level)
				}
				return before + offset + 1
			}
			before += candidate.AddressCount()
		}
	}
	return 0
}

// CheckDigit derives the digit for the n-th address in canonical order. The
// multiplier is coprime to the digit space, so consecutive ordinals scatter
// across the full range before repeating.
func (c *Codec) CheckDigit(ordinal int) int {
	return ((ordinal * c.layout.CheckDigitKey) % c.layout.CheckDigitSpace) + 1
}

// Verify recomputes the check digit for a stored address and compares it to
// the stored value. A mismatch means the record was corrupted or tampered
// with after generation.
func (c *Codec) Verify(addr *Address) error {
	parsed, err := c.Parse(addr.Code)
	if err != nil {
		return err
	}
	if parsed.CheckDigit != addr.CheckDigit {
		return fmt.Errorf("%w: %s stores %d, derived %d", ErrCheckDigitMismatch, addr.Code, addr.CheckDigit, parsed.CheckDigit)
	}
	return nil
}

// SpokenForm renders an address the way a voice terminal reads it to a
// worker, check digit last so it can be read back for confirmation.
func (c *Codec) SpokenForm(addr *Address) string {
	var b strings.Builder
	fmt.Fprintf(&b, "section %s, aisle %s, bay %d", addr.Section, addr.Aisle, addr.Bay)
	if addr.Subsection != "" {
		fmt.Fprintf(&b, ", slot %s", addr.Subsection)
	} else if addr.Level != GroundLevel {
		fmt.Fprintf(&b, ", level %s", addr.Level)
	}
	fmt.Fprintf(&b, ", check %d", addr.CheckDigit)
	return b.String()
}

// Summary aggregates slot counts for layout reporting.
type Summary struct {
	Name        string         `json:"name"`
	Sections    int            `json:"sections"`
	Aisles      int            `json:"aisles"`
	Addresses   int            `json:"addresses"`
	BySection   map[string]int `json:"bySection"`
	ByType      map[string]int `json:"byType"`
	ByEquipment map[string]int `json:"byEquipment"`
}

// Summarize computes per-section, per-type and per-equipment slot counts
// without materializing the addresses.
func (c *Codec) Summarize() Summary {
	s := Summary{
		Name:        c.layout.Name,
		Sections:    len(c.layout.Sections),
		BySection:   make(map[string]int),
		ByType:      make(map[string]int),
		ByEquipment: make(map[string]int),
	}
	for _, section := range c.layout.Sections {
		for i := range section.Aisles {
			aisle := &section.Aisles[i]
			s.Aisles++
			count := aisle.AddressCount()
			s.Addresses += count
			s.BySection[section.Code] += count
			s.ByType[aisle.LocationType] += count

			bays := aisle.BayEnd - aisle.BayStart + 1
			for _, sl := range aisleSlots(aisle) {
				s.ByEquipment[aisle.equipmentFor(sl.level)] += bays
			}
		}
	}
	return s
}

func indexOf(values []string, target string) int {
	for i, v := range values {
		if v == target {
			return i
		}
	}
	return -1
}
