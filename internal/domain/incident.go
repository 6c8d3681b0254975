package domain

// Status is the lifecycle state of an incident. The string values are the
// wire format: they are persisted as-is and written verbatim into timeline
// audit entries, so they must never change.
type Status string

const (
	StatusStarted       Status = "STARTED"
	StatusAcknowledged  Status = "ACKNOWLEDGED"
	StatusInvestigating Status = "INVESTIGATING"
	StatusIdentified    Status = "IDENTIFIED"
	StatusMitigated     Status = "MITIGATED"
	StatusResolved      Status = "RESOLVED"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusStarted, StatusAcknowledged, StatusInvestigating,
		StatusIdentified, StatusMitigated, StatusResolved:
		return true
	}
	return false
}

// Statuses returns all statuses in lifecycle order.
func Statuses() []Status {
	return []Status{
		StatusStarted,
		StatusAcknowledged,
		StatusInvestigating,
		StatusIdentified,
		StatusMitigated,
		StatusResolved,
	}
}

// Severity classifies incident impact.
type Severity string

const (
	SeveritySev0 Severity = "SEV0"
	SeveritySev1 Severity = "SEV1"
	SeveritySev2 Severity = "SEV2"
)

func (s Severity) IsValid() bool {
	switch s {
	case SeveritySev0, SeveritySev1, SeveritySev2:
		return true
	}
	return false
}

// Severities returns all severities, highest impact first.
func Severities() []Severity {
	return []Severity{SeveritySev0, SeveritySev1, SeveritySev2}
}

// Type is the incident category.
type Type string

const (
	TypeAvailability Type = "AVAILABILITY"
	TypeLatency      Type = "LATENCY"
	TypeSecurity     Type = "SECURITY"
	TypeOther        Type = "OTHER"
)

func (t Type) IsValid() bool {
	switch t {
	case TypeAvailability, TypeLatency, TypeSecurity, TypeOther:
		return true
	}
	return false
}

// Types returns all incident types.
func Types() []Type {
	return []Type{TypeAvailability, TypeLatency, TypeSecurity, TypeOther}
}

// RoleType is a named responsibility on an incident. At most one user holds
// a given role type at a time; the reconciler enforces this.
type RoleType string

const (
	RoleIncidentCommander  RoleType = "INCIDENT_COMMANDER"
	RoleCommunicationsLead RoleType = "COMMUNICATIONS_LEAD"
)

func (r RoleType) IsValid() bool {
	switch r {
	case RoleIncidentCommander, RoleCommunicationsLead:
		return true
	}
	return false
}

// RoleTypes returns all assignable role types.
func RoleTypes() []RoleType {
	return []RoleType{RoleIncidentCommander, RoleCommunicationsLead}
}

// Role binds a role type to the user currently holding it.
type Role struct {
	RoleType    RoleType    `json:"roleType"`
	UserDetails UserDetails `json:"userDetails"`
}

// ChangeType identifies which field-level mutation a timeline entry records.
type ChangeType string

const (
	ChangeCreated        ChangeType = "CREATED"
	ChangeStatus         ChangeType = "STATUS"
	ChangeSeverity       ChangeType = "SEVERITY"
	ChangeSummary        ChangeType = "SUMMARY"
	ChangeComment        ChangeType = "COMMENT"
	ChangeRoles          ChangeType = "ROLES"
	ChangeChannelCreated ChangeType = "CHANNEL_CREATED"
)

// AttachmentType classifies incident attachments.
type AttachmentType string

const AttachmentLink AttachmentType = "LINK"

// AttachmentTypes returns all supported attachment types.
func AttachmentTypes() []AttachmentType {
	return []AttachmentType{AttachmentLink}
}

// ChannelSource identifies which chat system a channel belongs to.
type ChannelSource string

const ChannelSourceSlack ChannelSource = "SLACK"

// ChannelStatus is the operational state of a chat channel.
type ChannelStatus string

const ChannelStatusOperational ChannelStatus = "OPERATIONAL"

// IncidentChannelType identifies the kind of incident channel binding.
type IncidentChannelType string

const IncidentChannelSlack IncidentChannelType = "SLACK"

// Channel is a chat channel associated with an incident.
type Channel struct {
	ID     string        `json:"id"`
	TeamID string        `json:"teamId,omitempty"`
	Name   string        `json:"name,omitempty"`
	Source ChannelSource `json:"source,omitempty"`
	URL    string        `json:"url,omitempty"`
	Status ChannelStatus `json:"status,omitempty"`
}

// ChannelDetail carries the full description of the chat channel bound to an
// incident. The field names mirror the persisted document shape.
type ChannelDetail struct {
	TeamID             string        `json:"teamId,omitempty"`
	TeamName           string        `json:"teamName,omitempty"`
	TeamDomain         string        `json:"teamDomain,omitempty"`
	ChannelID          string        `json:"channelId,omitempty"`
	ChannelName        string        `json:"channelName,omitempty"`
	ChannelReference   string        `json:"channelReference,omitempty"`
	ChannelDescription string        `json:"channelDescription,omitempty"`
	ChannelStatus      ChannelStatus `json:"channelStatus,omitempty"`
}

// IncidentChannel binds an incident to the chat channel coordinating it.
type IncidentChannel struct {
	Type    IncidentChannelType `json:"type"`
	Channel *ChannelDetail      `json:"channel,omitempty"`
}

// Conference holds video-call coordinates for an incident.
type Conference struct {
	ConferenceID string `json:"conferenceId,omitempty"`
	Type         string `json:"type,omitempty"`
	URL          string `json:"url,omitempty"`
}

// Stage records how long an incident spent in one status.
type Stage struct {
	StageID     string       `json:"stageId,omitempty"`
	Type        Status       `json:"type,omitempty"`
	Duration    int64        `json:"duration,omitempty"`
	CreatedAt   int64        `json:"createdAt,omitempty"`
	UpdatedAt   int64        `json:"updatedAt,omitempty"`
	UserDetails *UserDetails `json:"userDetails,omitempty"`
}

// Attachment is a link or artifact attached to an incident.
type Attachment struct {
	Type        AttachmentType `json:"type"`
	Description string         `json:"description,omitempty"`
	URL         string         `json:"url,omitempty"`
}

// Service is an affected service reference.
type Service struct {
	ServiceID   string `json:"serviceId"`
	ServiceName string `json:"serviceName,omitempty"`
}

// Environment is an affected environment reference.
type Environment struct {
	EnvironmentID   string `json:"environmentId"`
	EnvironmentName string `json:"environmentName,omitempty"`
}

// Functionality is an affected functionality reference.
type Functionality struct {
	FunctionalityID   string `json:"functionalityId"`
	FunctionalityName string `json:"functionalityName,omitempty"`
}

// RoleSnapshot is the full before/after role state carried by ROLES timeline
// entries so consumers can render complete state without replaying history.
type RoleSnapshot struct {
	PreviousState []Role `json:"previousState"`
	CurrentState  []Role `json:"currentState"`
}

// TimelineEntry is one immutable audit record of a single mutation.
// Entries are created once, appended to the incident's timeline and never
// edited afterwards.
type TimelineEntry struct {
	ID            string         `json:"id"`
	Type          ChangeType     `json:"type"`
	CreatedAt     int64          `json:"createdAt"`
	UpdatedAt     int64          `json:"updatedAt"`
	PreviousState string         `json:"previousState,omitempty"`
	CurrentState  string         `json:"currentState,omitempty"`
	Channel       *ChannelDetail `json:"channel,omitempty"`
	UserDetails   UserDetails    `json:"userDetails"`
	Message       string         `json:"message,omitempty"`
	// AdditionalDetails is set only on ROLES entries and carries a
	// *RoleSnapshot on write (a decoded map on read).
	AdditionalDetails any `json:"additionalDetails,omitempty"`
}

// Incident is the aggregate root. Timeline entries and roles are embedded and
// have no independent lifecycle; hierarchy entities are referenced by
// identifier strings only.
type Incident struct {
	ID                string // internal, store-assigned, immutable
	Version           int64  // optimistic lock for targeted field updates
	AccountIdentifier string
	OrgIdentifier     string
	ProjectIdentifier string
	Identifier        string // business key "<unixSeconds>-<uuid>", immutable
	Name              string
	Description       string
	Tags              []string
	Type              Type
	Severity          Severity
	Status            Status
	Summary           string
	Comments          []string
	Active            bool
	Services          []Service
	Environments      []Environment
	Functionalities   []Functionality
	Roles             []Role
	Timeline          []TimelineEntry
	Stages            []Stage
	Channels          []Channel
	IncidentChannel   *IncidentChannel
	ConferenceDetails []Conference
	Attachments       []Attachment
	CreatedAt         int64
	UpdatedAt         int64
	CreatedBy         *UserDetails
	UpdatedBy         *UserDetails
	RemovedAt         int64
	Removed           bool
}
