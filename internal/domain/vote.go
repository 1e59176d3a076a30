package domain

import "time"

type Artist struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	SortOrder int       `json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
}

// Vote es un registro inmutable; la unicidad por
// (voter_identity_key, artist_id, created_on) la garantiza el almacen.
type Vote struct {
	ID               string    `json:"id"`
	ArtistID         string    `json:"artist_id"`
	VoterIdentityKey string    `json:"voter_identity_key"`
	SubjectID        string    `json:"subject_id,omitempty"`
	VoterName        string    `json:"voter_name"`
	Message          string    `json:"message,omitempty"`
	CreatedOn        string    `json:"created_on"`
	IsApproved       bool      `json:"is_approved"`
	CreatedAt        time.Time `json:"created_at"`
}

// ArtistTally es una proyeccion desnormalizada del conteo de votos;
// solo se muta por suma, nunca por sobrescritura directa.
type ArtistTally struct {
	ArtistID  string    `json:"artist_id"`
	Points    int64     `json:"points"`
	UpdatedAt time.Time `json:"updated_at"`
}
