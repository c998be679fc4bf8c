package domain

// Profile is the role a user acts under.
type Profile struct {
	ID    int64 `json:"id"`
	Value Role  `json:"value"`
}

// Actor is the authenticated identity of a request.
type Actor struct {
	ID      int64   `json:"id"`
	Profile Profile `json:"profile"`
}

// UserSummary is the submitter attached to a reconstructed record.
type UserSummary struct {
	ID        int64  `json:"id"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Email     string `json:"email"`
}
