package domain

type Question struct {
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
}

type Survey struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Payout      int        `json:"payout"`
	Currency    string     `json:"currency"`
	Premium     bool       `json:"premium"`
	Status      string     `json:"status"`
	Items       []Question `json:"items"`
	CreatedAt   int64      `json:"createdAt"`
	UpdatedAt   int64      `json:"updatedAt"`
}

// User mirrors the profile the consuming app keeps client-side. The generator
// never fills it; the type only pins the element shape of Document.Users.
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Plan      string `json:"plan"`
	Balance   int    `json:"balance"`
	CreatedAt int64  `json:"createdAt"`
}

type Document struct {
	Users   []User   `json:"users"`
	Surveys []Survey `json:"surveys"`
}
