package domain

// Account is the top of the hierarchy. Independent aggregate, referenced from
// incidents by AccountIdentifier only.
type Account struct {
	ID                string
	AccountIdentifier string
	Name              string
	CreatedAt         int64
	UpdatedAt         int64
	CreatedBy         string
	UpdatedBy         string
	Removed           bool
}

// Organization belongs to an account.
type Organization struct {
	ID                string
	OrgIdentifier     string
	AccountIdentifier string
	Name              string
	CreatedAt         int64
	UpdatedAt         int64
	CreatedBy         string
	UpdatedBy         string
	Removed           bool
}

// Project belongs to an organization.
type Project struct {
	ID                string
	ProjectIdentifier string
	OrgIdentifier     string
	AccountIdentifier string
	Name              string
	CreatedAt         int64
	UpdatedAt         int64
	CreatedBy         string
	UpdatedBy         string
	Removed           bool
}

// UserMapping links a user to an (account, org, project) triple. A user may
// have many mappings but at most one with IsDefault set.
type UserMapping struct {
	ID                string
	UserID            string
	AccountIdentifier string
	OrgIdentifier     string
	ProjectIdentifier string
	IsDefault         bool
	CreatedAt         int64
	UpdatedAt         int64
	Removed           bool
}
