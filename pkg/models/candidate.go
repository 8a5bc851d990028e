package models

import "time"

// Candidate is a ballot option. VoteCount is a denormalized hint maintained
// by the vote path; every read path recomputes Votes from user records and
// never trusts the stored counter.
type Candidate struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	LinkedInURL string    `json:"linkedinUrl"`
	Party       string    `json:"party"`
	Team        string    `json:"team"`
	ImageURL    string    `json:"img"`
	VoteCount   int       `json:"-"`
	CreatedAt   time.Time `json:"createdAt"`

	// Votes is the authoritative tally recomputed from user records
	Votes int `json:"votes"`
}
