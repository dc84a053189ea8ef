package model

// Role is the incident-domain role an entity plays. Bare role nouns
// ("the officer", "a nurse") are still entities; whether one is a usable
// event actor is tracked separately by IsValidActor.
type Role string

const (
	RoleReporter        Role = "reporter"
	RoleSubjectOfficer  Role = "subject_officer"
	RoleSupervisor      Role = "supervisor"
	RoleWitnessCivilian Role = "witness_civilian"
	RoleWitnessOfficial Role = "witness_official"
	RoleMedicalProvider Role = "medical_provider"
	RoleLegalCounsel    Role = "legal_counsel"
	RoleInvestigator    Role = "investigator"
	RoleBystander       Role = "bystander"
	RoleUnknown         Role = "unknown"
)

// ValidRoles maps recognized role strings to their typed values.
var ValidRoles = map[string]Role{
	"reporter":         RoleReporter,
	"subject_officer":  RoleSubjectOfficer,
	"supervisor":       RoleSupervisor,
	"witness_civilian": RoleWitnessCivilian,
	"witness_official": RoleWitnessOfficial,
	"medical_provider": RoleMedicalProvider,
	"legal_counsel":    RoleLegalCounsel,
	"investigator":     RoleInvestigator,
	"bystander":        RoleBystander,
	"unknown":          RoleUnknown,
}

// Participation places an entity in the incident itself or in its
// aftermath (treatment, complaint handling, legal follow-up).
type Participation string

const (
	ParticipationIncident     Participation = "incident"
	ParticipationPostIncident Participation = "post_incident"
	ParticipationMentioned    Participation = "mentioned"
	ParticipationUnknown      Participation = "unknown"
)

// Gender is a tri-state used only for pronoun resolution. It stays
// GenderUnknown unless the text itself establishes it (a gendered title,
// an unambiguous pronoun chain). Never inferred from a name.
type Gender string

const (
	GenderUnknown Gender = ""
	GenderFemale  Gender = "female"
	GenderMale    Gender = "male"
)

// Entity is a person referenced in the narrative.
type Entity struct {
	ID    string `json:"id"`
	Label string `json:"label"`

	Role           Role    `json:"domain_role"`
	RoleConfidence float64 `json:"role_confidence"`

	Participation Participation `json:"participation"`

	// IsValidActor means the entity can anchor an observable event:
	// a named person or a titled role, not a bare pronoun.
	IsValidActor bool `json:"is_valid_actor"`

	IsNamed         bool    `json:"is_named"`
	NamedConfidence float64 `json:"named_confidence"`
	NamedSource     string  `json:"named_source,omitempty"`

	Gender Gender `json:"gender,omitempty"`

	// Mentions are every span where the entity's label (or a resolved
	// alias of it) occurs in the source text.
	Mentions []Span `json:"mentions,omitempty"`
}
