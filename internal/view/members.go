package view

import (
	"strings"

	"github.com/Marga-Ghale/ora-scrum-client/internal/models"
	"github.com/Marga-Ghale/ora-scrum-client/internal/types"
)

const unknownUserName = "Unknown User"

// MemberRow is a membership ready for display. Only direct rows may be
// edited; inherited ones belong to the ancestor named by Origin.
type MemberRow struct {
	models.Member
	Name     string `json:"name"`
	Email    string `json:"email"`
	Editable bool   `json:"editable"`
	Origin   string `json:"origin"`
}

// MemberFilter selects which members FilterMembers keeps.
type MemberFilter string

const (
	FilterAll       MemberFilter = "all"
	FilterDirect    MemberFilter = "direct"
	FilterInherited MemberFilter = "inherited"
)

// ParseMemberFilter falls back to FilterAll for unknown values.
func ParseMemberFilter(s string) MemberFilter {
	switch f := MemberFilter(strings.ToLower(strings.TrimSpace(s))); f {
	case FilterDirect, FilterInherited:
		return f
	default:
		return FilterAll
	}
}

// IsInherited reports whether the membership was granted by an ancestor.
func IsInherited(m models.Member) bool {
	return m.IsInherited || m.InheritedFrom != ""
}

// NewMemberRow resolves display fields for m.
func NewMemberRow(m models.Member) MemberRow {
	row := MemberRow{Member: m, Editable: !IsInherited(m), Origin: m.EntityType}
	if IsInherited(m) && m.InheritedFrom != "" {
		row.Origin = m.InheritedFrom
	}
	row.Name = unknownUserName
	if m.User != nil {
		row.Name = DisplayName(*m.User)
		row.Email = m.User.Email
	}
	return row
}

// PartitionMembers splits an effective member list into direct and
// inherited rows. Every input lands in exactly one of the two, in order.
func PartitionMembers(list []models.Member) (direct, inherited []MemberRow) {
	direct, inherited = []MemberRow{}, []MemberRow{}
	for _, m := range list {
		row := NewMemberRow(m)
		if row.Editable {
			direct = append(direct, row)
		} else {
			inherited = append(inherited, row)
		}
	}
	return direct, inherited
}

// FilterMembers returns the rows matching f.
func FilterMembers(list []models.Member, f MemberFilter) []MemberRow {
	direct, inherited := PartitionMembers(list)
	switch f {
	case FilterDirect:
		return direct
	case FilterInherited:
		return inherited
	}
	rows := make([]MemberRow, 0, len(list))
	for _, m := range list {
		rows = append(rows, NewMemberRow(m))
	}
	return rows
}

// AvailableMembers lists workspace members not yet on the project.
func AvailableMembers(workspaceMembers, projectMembers []models.Member) []models.Member {
	onProject := make(map[string]bool, len(projectMembers))
	for _, m := range projectMembers {
		onProject[m.UserID] = true
	}
	out := []models.Member{}
	for _, m := range workspaceMembers {
		if !onProject[m.UserID] {
			out = append(out, m)
		}
	}
	return out
}

// CanManageMembers reports whether role may add, edit or remove members.
func CanManageMembers(role string) bool {
	return types.RoleAtLeast(role, types.RoleAdmin)
}

// DisplayName falls back to the email, then to a placeholder.
func DisplayName(u models.User) string {
	if name := strings.TrimSpace(u.Name); name != "" {
		return name
	}
	if u.Email != "" {
		return u.Email
	}
	return unknownUserName
}
