package domain

import "time"

// MemberClass identifica las dos clases disjuntas de membresia.
type MemberClass string

const (
	ClassIndividual MemberClass = "individual"
	ClassSponsor    MemberClass = "sponsor"
)

type IndividualProfile struct {
	MemberID      string    `json:"member_id"`
	SubjectID     string    `json:"subject_id"`
	Email         string    `json:"email"`
	LastName      string    `json:"last_name"`
	FirstName     string    `json:"first_name"`
	LastNameKana  string    `json:"last_name_kana,omitempty"`
	FirstNameKana string    `json:"first_name_kana,omitempty"`
	BirthDate     string    `json:"birth_date"`
	Gender        string    `json:"gender,omitempty"`
	PhoneNumber   string    `json:"phone_number"`
	Nickname      string    `json:"nickname,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type SponsorProfile struct {
	MemberID       string    `json:"member_id"`
	SubjectID      string    `json:"subject_id"`
	Email          string    `json:"email"`
	LastName       string    `json:"last_name"`
	FirstName      string    `json:"first_name"`
	CompanyName    string    `json:"company_name"`
	CompanyAddress string    `json:"company_address,omitempty"`
	Department     string    `json:"department,omitempty"`
	Position       string    `json:"position,omitempty"`
	ContactPhone   string    `json:"contact_phone"`
	CreatedAt      time.Time `json:"created_at"`
}

// MemberProfile es la union cerrada de las dos clases: exactamente uno de
// Individual o Sponsor esta presente, segun Class.
type MemberProfile struct {
	Class      MemberClass        `json:"class"`
	Individual *IndividualProfile `json:"individual,omitempty"`
	Sponsor    *SponsorProfile    `json:"sponsor,omitempty"`
}

func NewIndividualMember(p IndividualProfile) MemberProfile {
	return MemberProfile{Class: ClassIndividual, Individual: &p}
}

func NewSponsorMember(p SponsorProfile) MemberProfile {
	return MemberProfile{Class: ClassSponsor, Sponsor: &p}
}

func (m MemberProfile) MemberID() string {
	switch m.Class {
	case ClassIndividual:
		if m.Individual != nil {
			return m.Individual.MemberID
		}
	case ClassSponsor:
		if m.Sponsor != nil {
			return m.Sponsor.MemberID
		}
	}
	return ""
}

func (m MemberProfile) SubjectID() string {
	switch m.Class {
	case ClassIndividual:
		if m.Individual != nil {
			return m.Individual.SubjectID
		}
	case ClassSponsor:
		if m.Sponsor != nil {
			return m.Sponsor.SubjectID
		}
	}
	return ""
}

func (m MemberProfile) Email() string {
	switch m.Class {
	case ClassIndividual:
		if m.Individual != nil {
			return m.Individual.Email
		}
	case ClassSponsor:
		if m.Sponsor != nil {
			return m.Sponsor.Email
		}
	}
	return ""
}

// Phone devuelve el telefono registrado de la clase activa.
func (m MemberProfile) Phone() string {
	switch m.Class {
	case ClassIndividual:
		if m.Individual != nil {
			return m.Individual.PhoneNumber
		}
	case ClassSponsor:
		if m.Sponsor != nil {
			return m.Sponsor.ContactPhone
		}
	}
	return ""
}
