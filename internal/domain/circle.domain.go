package domain

import "time"

const (
	CircleStatusPending = "pending"
	CircleStatusActive  = "active"

	InvitationPending  = "pending"
	InvitationAccepted = "accepted"
	InvitationDeclined = "declined"

	RoleMember = "member"
	RoleAdmin  = "admin"

	// QuorumThreshold is the accepted-invitation count that flips a circle
	// from pending to active.
	QuorumThreshold = 10

	// MinInvitedMembers is the minimum invite list size at creation.
	MinInvitedMembers = 10
)

type Circle struct {
	ID                   int64     `json:"circle_id"`
	Name                 string    `json:"circle_name"`
	Description          string    `json:"description"`
	ProfilePhoto         string    `json:"profile_photo,omitempty"`
	Categories           []string  `json:"categories"`
	CircleType           string    `json:"circle_type"` // public, private
	OnlyAdminCanPost     bool      `json:"only_admin_can_post"`
	AllowJoinRequest     bool      `json:"allow_join_request"`
	CreatedBy            int64     `json:"created_by"`
	Status               string    `json:"status"` // pending, active
	InvitationsSent      int       `json:"invitations_sent"`
	InvitationsAccepted  int       `json:"invitations_accepted"`
	InvitationsDeclined  int       `json:"invitations_declined"`
	CreatedAt            time.Time `json:"created_at"`
}

type CircleInvitation struct {
	ID         int64      `json:"id"`
	CircleID   int64      `json:"circle_id"`
	UserID     int64      `json:"user_id"`
	Status     string     `json:"status"` // pending, accepted, declined
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
	DeclinedAt *time.Time `json:"declined_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

type CircleMember struct {
	ID       int64     `json:"id"`
	CircleID int64     `json:"circle_id"`
	UserID   int64     `json:"user_id"`
	Role     string    `json:"role"` // member, admin
	JoinedAt time.Time `json:"joined_at"`
}

// ReachedQuorum reports whether an accepted count activates a pending circle.
func (c *Circle) ReachedQuorum() bool {
	return c.Status == CircleStatusPending && c.InvitationsAccepted >= QuorumThreshold
}
