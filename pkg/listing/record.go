package listing

// Field keys of the optional record fields that are checked for presence.
const (
	FieldCity         = "stad"
	FieldLandlord     = "verhuurder"
	FieldDwellingType = "type"
	FieldCanReact     = "kanReageren"
)

// Record is the flat, normalized form of one aanbod listing.
// Every field except ID and HouseNumber may be nil.
type Record struct {
	ID                  Text     `json:"id"`
	URLKey              *string  `json:"urlKey"`
	Street              *string  `json:"straat"`
	HouseNumber         string   `json:"huisnummer"`
	PostalCode          *string  `json:"postcode"`
	City                *string  `json:"stad"`
	Landlord            *string  `json:"verhuurder"`
	DwellingType        *string  `json:"type"`
	Rent                *float64 `json:"huur"`
	AvailableFrom       *string  `json:"beschikbaarVanaf"`
	PublishedAt         *string  `json:"publicatieDatum"`
	ClosingAt           *string  `json:"sluitingsDatum"`
	Reactions           *int     `json:"reacties"`
	CanReact            *bool    `json:"kanReageren"`
	RentSubsidyEligible *bool    `json:"huurtoeslag"`
	Latitude            *float64 `json:"lat"`
	Longitude           *float64 `json:"lon"`
}

// Normalize projects a raw item onto a Record. Absent or null source
// fields stay nil; nothing is defaulted.
func Normalize(item Item) Record {
	return Record{
		ID:                  item.ID,
		URLKey:              item.URLKey,
		Street:              item.Street,
		HouseNumber:         textOrEmpty(item.HouseNumber) + textOrEmpty(item.HouseNumberAddition),
		PostalCode:          item.PostalCode,
		City:                nameOf(item.City),
		Landlord:            nameOf(item.Corporation),
		DwellingType:        dwellingTypeName(item.DwellingType),
		Rent:                item.TotalRent.Ptr(),
		AvailableFrom:       item.AvailableFromDate,
		PublishedAt:         item.PublicationDate,
		ClosingAt:           item.ClosingDate,
		Reactions:           item.NumberOfReactions.Ptr(),
		CanReact:            canReact(item.ReactionData),
		RentSubsidyEligible: item.RentSubsidyEligible.Ptr(),
		Latitude:            item.Latitude.Ptr(),
		Longitude:           item.Longitude.Ptr(),
	}
}

// MissingFields returns the keys of the checked optional fields that are
// nil, in a fixed order. An empty result means the record is complete.
func (r Record) MissingFields() []string {
	var missing []string
	if r.City == nil {
		missing = append(missing, FieldCity)
	}
	if r.Landlord == nil {
		missing = append(missing, FieldLandlord)
	}
	if r.DwellingType == nil {
		missing = append(missing, FieldDwellingType)
	}
	if r.CanReact == nil {
		missing = append(missing, FieldCanReact)
	}
	return missing
}

// HasMissingData reports whether any checked optional field is nil.
func (r Record) HasMissingData() bool {
	return len(r.MissingFields()) > 0
}

func textOrEmpty(t *Text) string {
	if t == nil {
		return ""
	}
	return t.String()
}

func nameOf(n *Named) *string {
	if n == nil {
		return nil
	}
	return n.Name
}

func dwellingTypeName(d *DwellingType) *string {
	if d == nil {
		return nil
	}
	return d.LocalizedName
}

func canReact(r *ReactionData) *bool {
	if r == nil {
		return nil
	}
	return r.KanReageren.Ptr()
}
