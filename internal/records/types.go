package records

import "strings"

// RecordType tags a municipal record and drives template selection.
type RecordType string

const (
	TypeCircular          RecordType = "circular"
	TypeAward             RecordType = "award"
	TypeCitizenCharter    RecordType = "citizen_charter"
	TypeCommitteeDecision RecordType = "committee_decision"
	TypeCrematorium       RecordType = "crematorium"
	TypeDepartment        RecordType = "department"
	TypeEvent             RecordType = "event"
	TypeFAQ               RecordType = "faq"
	TypeFireBrigade       RecordType = "fire_brigade"
	TypeGarden            RecordType = "garden"
	TypeHoarding          RecordType = "hoarding"
	TypeHospital          RecordType = "hospital"
	TypeNews              RecordType = "news"
	TypePolicy            RecordType = "policy"
	TypeProject           RecordType = "project"
	TypeScheme            RecordType = "scheme"
	TypeSchool            RecordType = "school"
	TypeService           RecordType = "service"
	TypeWardOffice        RecordType = "ward_office"
	TypeOther             RecordType = "other"
)

// KnownTypes lists every canonical record type except the fallback.
var KnownTypes = []RecordType{
	TypeCircular, TypeAward, TypeCitizenCharter, TypeCommitteeDecision, TypeCrematorium,
	TypeDepartment, TypeEvent, TypeFAQ, TypeFireBrigade, TypeGarden, TypeHoarding,
	TypeHospital, TypeNews, TypePolicy, TypeProject, TypeScheme, TypeSchool, TypeService,
	TypeWardOffice,
}

// rawTypeLabels maps labels seen in the municipal CMS exports to canonical types.
// Keys are lower-cased.
var rawTypeLabels = map[string]RecordType{
	"circulars": TypeCircular,
	"notice":    TypeCircular,
	"notices":   TypeCircular,

	"committee decisions": TypeCommitteeDecision,

	"citizen charter": TypeCitizenCharter,

	"awards":               TypeAward,
	"awards & recognition": TypeAward,

	"gardens in pune":       TypeGarden,
	"garden list":           TypeGarden,
	"garden rules":          TypeGarden,
	"garden department sub": TypeGarden,
	"gardens":               TypeGarden,

	"pmc officers directory": TypeDepartment,

	"contact numbers of officials from the electrical department": TypeDepartment,

	"project documents": TypeProject,
	"project glimpses":  TypeProject,
	"projects":          TypeProject,

	"events":       TypeEvent,
	"competitions": TypeEvent,
	"exhibitions":  TypeEvent,

	"news & updates": TypeNews,
	"press note":     TypeNews,

	"blood bank": TypeHospital,
	"eye bank":   TypeHospital,

	"school list":   TypeSchool,
	"model schools": TypeSchool,

	"primary and technical education school list": TypeSchool,

	"crematoriums":       TypeCrematorium,
	"list of cemeteries": TypeCrematorium,

	"fire brigade stations": TypeFireBrigade,
	"fire safety":           TypeFireBrigade,

	"hoarding rules":       TypeHoarding,
	"authorised hoardings": TypeHoarding,

	"policies":             TypePolicy,
	"guidelines":           TypePolicy,
	"acts and regulations": TypePolicy,

	"schemes": TypeScheme,
	"welfare": TypeScheme,

	"ward offices": TypeWardOffice,

	"frequently asked questions": TypeFAQ,
	"grievance":                  TypeFAQ,

	"online services": TypeService,
	"e-services":      TypeService,
	"applications":    TypeService,
}

// ParseRecordType maps a raw type string to a RecordType. Canonical names and
// known CMS labels match case-insensitively; anything else is TypeOther.
func ParseRecordType(raw string) RecordType {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return TypeOther
	}
	for _, t := range KnownTypes {
		if key == string(t) || key == strings.ReplaceAll(string(t), "_", " ") {
			return t
		}
	}
	if t, ok := rawTypeLabels[key]; ok {
		return t
	}
	return TypeOther
}
