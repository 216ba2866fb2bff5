package model

import (
	"time"
)

type AdminRole string

const (
	RoleSuperAdmin AdminRole = "SUPER_ADMIN"
	RoleAdmin      AdminRole = "ADMIN"
	RoleOrganizer  AdminRole = "ORGANIZER"
	RoleJudge      AdminRole = "JUDGE"
)

type Permission string

const (
	PermViewTeams        Permission = "view_teams"
	PermManageTeams      Permission = "manage_teams"
	PermDeleteTeams      Permission = "delete_teams"
	PermExportData       Permission = "export_data"
	PermViewAnalytics    Permission = "view_analytics"
	PermScoreSubmissions Permission = "score_submissions"
	PermManageCriteria   Permission = "manage_criteria"
	PermManageAdmins     Permission = "manage_admins"
)

var rolePermissions = map[AdminRole][]Permission{
	RoleAdmin: {
		PermViewTeams, PermManageTeams, PermDeleteTeams, PermExportData,
		PermViewAnalytics, PermManageCriteria,
	},
	RoleOrganizer: {PermViewTeams, PermExportData, PermViewAnalytics},
	RoleJudge:     {PermViewTeams, PermScoreSubmissions},
}

func (r AdminRole) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleOrganizer, RoleJudge:
		return true
	}
	return false
}

// Can reports whether the role grants p. SUPER_ADMIN holds every permission.
func (r AdminRole) Can(p Permission) bool {
	if r == RoleSuperAdmin {
		return true
	}
	for _, granted := range rolePermissions[r] {
		if granted == p {
			return true
		}
	}
	return false
}

type Admin struct {
	ID           string     `json:"id" db:"id"`
	Email        string     `json:"email" db:"email"`
	Name         string     `json:"name" db:"name"`
	PasswordHash string     `json:"-" db:"password_hash"`
	Role         AdminRole  `json:"role" db:"role"`
	Active       bool       `json:"active" db:"active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`
	LastLoginIP  *string    `json:"last_login_ip,omitempty" db:"last_login_ip"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

type AdminSession struct {
	ID        string    `json:"id" db:"id"`
	AdminID   string    `json:"admin_id" db:"admin_id"`
	TokenHash string    `json:"-" db:"token_hash"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	IPAddress *string   `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent *string   `json:"user_agent,omitempty" db:"user_agent"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
