package domain

// UserDetails identifies the actor behind a mutation. It is embedded into
// audit fields and role assignments.
type UserDetails struct {
	UserID   string        `json:"userId"`
	UserName string        `json:"userName,omitempty"`
	Email    string        `json:"email,omitempty"`
	Name     string        `json:"name,omitempty"`
	Source   ChannelSource `json:"source,omitempty"`
}

// User is an authenticated account in the system.
type User struct {
	ID                     string
	UserID                 string
	Name                   string
	Email                  string
	PasswordHash           string
	Active                 bool
	ChangePasswordRequired bool
	CreatedAt              int64
	UpdatedAt              int64
	LastLoginAt            int64
}
