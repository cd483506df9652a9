package model

import "github.com/google/uuid"

// Organization is the tenancy boundary: every other entity is owned by
// exactly one organization, directly or transitively.
type Organization struct {
	Base
	Name string `json:"name" db:"name"`
}

// Doctor registry schemes. CRM is the Brazilian registry, DEA the US one.
const (
	RegistryCRM = "CRM"
	RegistryDEA = "DEA"
)

type Doctor struct {
	Base
	FullName        string    `json:"full_name" db:"full_name"`
	CRMRegistry     *string   `json:"crm_registry,omitempty" db:"crm_registry"`
	DEARegistration *string   `json:"dea_registration,omitempty" db:"dea_registration"`
	OrganizationID  uuid.UUID `json:"organization_id" db:"organization_id"`
}

// Patient national-ID schemes. CPF is the Brazilian number, SSN the US one.
const (
	IdentifierCPF = "CPF"
	IdentifierSSN = "SSN"
)

type Patient struct {
	Base
	Name           string    `json:"name" db:"name"`
	CPF            *string   `json:"cpf,omitempty" db:"cpf"`
	SSN            *string   `json:"ssn,omitempty" db:"ssn"`
	OrganizationID uuid.UUID `json:"organization_id" db:"organization_id"`
}

// DoctorMatch is a resolver result carrying which registry scheme matched.
type DoctorMatch struct {
	Doctor       *Doctor
	RegistryType string
}

// PatientMatch is a resolver result carrying which identifier scheme matched.
type PatientMatch struct {
	Patient        *Patient
	IdentifierType string
}
