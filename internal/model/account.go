package model

import "time"

// Role is the closed set of account roles.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Status is the closed set of account states. Deactivation moves an account
// from ACTIVE to INACTIVE; no reactivation path exists.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
)

func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

// Account is the full write model, including credential fields.
// RefreshTokenHash is nil when no refresh token has been issued — distinct
// from a hash of the empty string.
type Account struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	PasswordHash     string    `json:"-"`
	FirstName        string    `json:"firstName"`
	LastName         string    `json:"lastName"`
	Phone            string    `json:"phone,omitempty"`
	Role             Role      `json:"role"`
	Status           Status    `json:"status"`
	RefreshTokenHash *string   `json:"-"`
	CreatedAt        time.Time `json:"createdTimestamp"`
	UpdatedAt        time.Time `json:"updatedTimestamp"`
}

// AccountFilter narrows listing queries. Zero-valued fields impose no
// constraint. Email matches as a case-insensitive substring; Role and Status
// match exactly.
type AccountFilter struct {
	Email  string
	Role   Role
	Status Status
}

// AccountPatch carries a partial update. Nil fields are left untouched.
type AccountPatch struct {
	FirstName *string
	LastName  *string
	Phone     *string
	Role      *Role
	Status    *Status
}

// Fields returns the supplied fields as a map, as carried by the
// user.updated event payload.
func (p AccountPatch) Fields() map[string]any {
	fields := make(map[string]any)
	if p.FirstName != nil {
		fields["firstName"] = *p.FirstName
	}
	if p.LastName != nil {
		fields["lastName"] = *p.LastName
	}
	if p.Phone != nil {
		fields["phone"] = *p.Phone
	}
	if p.Role != nil {
		fields["role"] = string(*p.Role)
	}
	if p.Status != nil {
		fields["status"] = string(*p.Status)
	}
	return fields
}

// AccountPage is one page of a filtered listing. Total counts every matching
// account, not just the page, so callers can derive the page count.
type AccountPage struct {
	Accounts []Account `json:"accounts"`
	Total    int64     `json:"total"`
}
