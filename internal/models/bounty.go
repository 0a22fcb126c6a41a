package models

// BountyContext describes the listing a submission is judged against.
// It is built once by the caller and never mutated.
type BountyContext struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Requirements []string `json:"requirements"`
	TechStack    []string `json:"techStack"`
}
