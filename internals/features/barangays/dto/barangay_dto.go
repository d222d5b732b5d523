package dto

import (
	"strings"

	"github.com/JBFaner/DisasterTraining-sub003/internals/features/barangays/model"
	"github.com/JBFaner/DisasterTraining-sub003/internals/helpers/dbtypes"
)

type CreateBarangayRequest struct {
	Name             string   `json:"name" validate:"required,min=2,max=120"`
	Municipality     string   `json:"municipality" validate:"required,min=2,max=120"`
	Province         string   `json:"province" validate:"omitempty,max=120"`
	CaptainName      *string  `json:"captain_name" validate:"omitempty,max=120"`
	ContactNumber    *string  `json:"contact_number" validate:"omitempty,max=30"`
	ContactEmail     *string  `json:"contact_email" validate:"omitempty,email,max=255"`
	Population       int      `json:"population" validate:"gte=0"`
	Households       int      `json:"households" validate:"gte=0"`
	Hazards          []string `json:"hazards" validate:"omitempty,dive,min=2,max=40"`
	EvacuationCenter *string  `json:"evacuation_center" validate:"omitempty,max=255"`
	Latitude         *float64 `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude        *float64 `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
}

func (r *CreateBarangayRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Municipality = strings.TrimSpace(r.Municipality)
	r.Province = strings.TrimSpace(r.Province)
	r.Hazards = NormalizeHazards(r.Hazards)
}

func (r *CreateBarangayRequest) ToModel() *model.BarangayProfileModel {
	return &model.BarangayProfileModel{
		Name:             r.Name,
		Municipality:     r.Municipality,
		Province:         r.Province,
		CaptainName:      r.CaptainName,
		ContactNumber:    r.ContactNumber,
		ContactEmail:     r.ContactEmail,
		Population:       r.Population,
		Households:       r.Households,
		Hazards:          dbtypes.StringList(r.Hazards),
		EvacuationCenter: r.EvacuationCenter,
		Latitude:         r.Latitude,
		Longitude:        r.Longitude,
	}
}

type UpdateBarangayRequest struct {
	Name             *string   `json:"name" validate:"omitempty,min=2,max=120"`
	Municipality     *string   `json:"municipality" validate:"omitempty,min=2,max=120"`
	Province         *string   `json:"province" validate:"omitempty,max=120"`
	CaptainName      *string   `json:"captain_name" validate:"omitempty,max=120"`
	ContactNumber    *string   `json:"contact_number" validate:"omitempty,max=30"`
	ContactEmail     *string   `json:"contact_email" validate:"omitempty,email,max=255"`
	Population       *int      `json:"population" validate:"omitempty,gte=0"`
	Households       *int      `json:"households" validate:"omitempty,gte=0"`
	Hazards          *[]string `json:"hazards"`
	EvacuationCenter *string   `json:"evacuation_center" validate:"omitempty,max=255"`
	Latitude         *float64  `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude        *float64  `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
}

// Apply copies set fields onto m and returns the changed columns.
func (r *UpdateBarangayRequest) Apply(m *model.BarangayProfileModel) map[string]any {
	ch := map[string]any{}
	if r.Name != nil {
		m.Name = strings.TrimSpace(*r.Name)
		ch["name"] = m.Name
	}
	if r.Municipality != nil {
		m.Municipality = strings.TrimSpace(*r.Municipality)
		ch["municipality"] = m.Municipality
	}
	if r.Province != nil {
		m.Province = strings.TrimSpace(*r.Province)
		ch["province"] = m.Province
	}
	if r.CaptainName != nil {
		m.CaptainName = r.CaptainName
		ch["captain_name"] = *r.CaptainName
	}
	if r.ContactNumber != nil {
		m.ContactNumber = r.ContactNumber
		ch["contact_number"] = *r.ContactNumber
	}
	if r.ContactEmail != nil {
		m.ContactEmail = r.ContactEmail
		ch["contact_email"] = *r.ContactEmail
	}
	if r.Population != nil {
		m.Population = *r.Population
		ch["population"] = m.Population
	}
	if r.Households != nil {
		m.Households = *r.Households
		ch["households"] = m.Households
	}
	if r.Hazards != nil {
		m.Hazards = dbtypes.StringList(NormalizeHazards(*r.Hazards))
		ch["hazards"] = []string(m.Hazards)
	}
	if r.EvacuationCenter != nil {
		m.EvacuationCenter = r.EvacuationCenter
		ch["evacuation_center"] = *r.EvacuationCenter
	}
	if r.Latitude != nil {
		m.Latitude = r.Latitude
		ch["latitude"] = *r.Latitude
	}
	if r.Longitude != nil {
		m.Longitude = r.Longitude
		ch["longitude"] = *r.Longitude
	}
	return ch
}

// NormalizeHazards lowercases, trims and de-duplicates hazard tags.
func NormalizeHazards(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]bool{}
	for _, h := range in {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" || seen[h] {
			continue
		}
		seen[h] = true
		out = append(out, h)
	}
	return out
}
