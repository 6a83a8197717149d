// Package listing defines the raw Zig365 aanbod item and the flat record
// it is normalized into.
package listing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Item is one raw listing object from the "data" array of an aanbod page.
// Only the fields the collector projects are declared.
type Item struct {
	ID                  Text          `json:"id"`
	URLKey              *string       `json:"urlKey"`
	Street              *string       `json:"street"`
	HouseNumber         *Text         `json:"houseNumber"`
	HouseNumberAddition *Text         `json:"houseNumberAddition"`
	PostalCode          *string       `json:"postalcode"`
	City                *Named        `json:"city"`
	Corporation         *Named        `json:"corporation"`
	DwellingType        *DwellingType `json:"dwellingType"`
	TotalRent           Number        `json:"totalRent"`
	AvailableFromDate   *string       `json:"availableFromDate"`
	PublicationDate     *string       `json:"publicationDate"`
	ClosingDate         *string       `json:"closingDate"`
	NumberOfReactions   Count         `json:"numberOfReactions"`
	ReactionData        *ReactionData `json:"reactionData"`
	RentSubsidyEligible Flag          `json:"huurLigtOpOfOnderHuurtoeslaggrens"`
	Latitude            Number        `json:"latitude"`
	Longitude           Number        `json:"longitude"`
}

// Named is a nested object carrying a display name (city, corporation).
type Named struct {
	Name *string `json:"name"`
}

// DwellingType is the nested dwelling type object.
type DwellingType struct {
	LocalizedName *string `json:"localizedName"`
}

// ReactionData holds the reaction state of the current visitor.
type ReactionData struct {
	KanReageren Flag `json:"kanReageren"`
}

// Text is a scalar that the API sends either as a JSON string or a JSON
// number. It keeps the literal text and re-encodes in its original form.
type Text struct {
	raw    string
	quoted bool
	set    bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = Text{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text{raw: s, quoted: true, set: true}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("text value must be string or number, got %s", data)
	}
	*t = Text{raw: n.String(), set: true}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (t Text) MarshalJSON() ([]byte, error) {
	switch {
	case !t.set:
		return []byte("null"), nil
	case t.quoted:
		return json.Marshal(t.raw)
	default:
		return []byte(t.raw), nil
	}
}

// String returns the literal text, or "" when the value was absent.
func (t Text) String() string {
	return t.raw
}

// IsSet reports whether a non-null value was decoded.
func (t Text) IsSet() bool {
	return t.set
}

// NewText builds a string-valued Text.
func NewText(s string) Text {
	return Text{raw: s, quoted: true, set: true}
}

// Number is a finite float that the API may send as a JSON number or a
// numeric string. Any other value, including NaN and infinities, decodes
// as absent.
type Number struct {
	v   float64
	set bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	*n = Number{}
	if f, ok := parseNumeric(data); ok {
		*n = Number{v: f, set: true}
	}
	return nil
}

// Ptr returns the value, or nil when absent.
func (n Number) Ptr() *float64 {
	if !n.set {
		return nil
	}
	f := n.v
	return &f
}

// NewNumber builds a present Number.
func NewNumber(f float64) Number {
	return Number{v: f, set: true}
}

// Count is an integer that the API may send as an integral JSON number
// (3 or 3.0) or a numeric string. Any other value decodes as absent.
type Count struct {
	v   int
	set bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Count) UnmarshalJSON(data []byte) error {
	*c = Count{}
	f, ok := parseNumeric(data)
	if !ok || f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return nil
	}
	*c = Count{v: int(f), set: true}
	return nil
}

// Ptr returns the value, or nil when absent.
func (c Count) Ptr() *int {
	if !c.set {
		return nil
	}
	v := c.v
	return &v
}

// Int returns the value, or 0 when absent.
func (c Count) Int() int {
	return c.v
}

// NewCount builds a present Count.
func NewCount(v int) Count {
	return Count{v: v, set: true}
}

// Flag is a boolean that the API may send as a JSON boolean or as the
// strings "true"/"false". Any other value decodes as absent.
type Flag struct {
	v   bool
	set bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Flag) UnmarshalJSON(data []byte) error {
	*f = Flag{}
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		data = []byte(strings.ToLower(strings.TrimSpace(s)))
	}
	switch string(data) {
	case "true":
		*f = Flag{v: true, set: true}
	case "false":
		*f = Flag{v: false, set: true}
	}
	return nil
}

// Ptr returns the value, or nil when absent.
func (f Flag) Ptr() *bool {
	if !f.set {
		return nil
	}
	v := f.v
	return &v
}

// NewFlag builds a present Flag.
func NewFlag(v bool) Flag {
	return Flag{v: v, set: true}
}

// parseNumeric reads a JSON number or numeric string. Non-finite values
// are rejected.
func parseNumeric(data []byte) (float64, bool) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return 0, false
	}

	var text string
	switch c := data[0]; {
	case c == '"':
		if err := json.Unmarshal(data, &text); err != nil {
			return 0, false
		}
		text = strings.TrimSpace(text)
	case c == '-' || (c >= '0' && c <= '9'):
		text = string(data)
	default:
		return 0, false
	}

	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return float64(i), true
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
