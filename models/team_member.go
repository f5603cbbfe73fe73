package models

import "time"

type TeamMemberRole string

const (
	TeamRoleCaptain   TeamMemberRole = "captain"
	TeamRoleVolunteer TeamMemberRole = "volunteer"
)

type TeamMemberStatus string

const (
	MemberStatusActive   TeamMemberStatus = "active"
	MemberStatusInactive TeamMemberStatus = "inactive"
	MemberStatusRemoved  TeamMemberStatus = "removed"
)

type TeamMember struct {
	ID         int              `json:"id" db:"id"`
	TeamID     int              `json:"team_id" db:"team_id"`
	UserID     int              `json:"user_id" db:"user_id"`
	RoleInTeam TeamMemberRole   `json:"role_in_team" db:"role_in_team"`
	Status     TeamMemberStatus `json:"status" db:"status"`
	JoinedAt   time.Time        `json:"joined_at" db:"joined_at"`

	User *User `json:"user,omitempty" db:"-"`
	Team *Team `json:"team,omitempty" db:"-"`
}
