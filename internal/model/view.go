package model

import "time"

// AccountView is the externally exposed projection of an account.
// It never carries the password hash or the refresh-token reference.
type AccountView struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Phone     string    `json:"phone,omitempty"`
	Role      Role      `json:"role"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdTimestamp"`
	UpdatedAt time.Time `json:"updatedTimestamp"`
}

func NewAccountView(a *Account) *AccountView {
	return &AccountView{
		ID:        a.ID,
		Email:     a.Email,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Phone:     a.Phone,
		Role:      a.Role,
		Status:    a.Status,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// AccountPageView is the listing response shape.
type AccountPageView struct {
	Accounts []AccountView `json:"accounts"`
	Total    int64         `json:"total"`
}

func NewAccountPageView(p *AccountPage) *AccountPageView {
	views := make([]AccountView, 0, len(p.Accounts))
	for i := range p.Accounts {
		views = append(views, *NewAccountView(&p.Accounts[i]))
	}
	return &AccountPageView{Accounts: views, Total: p.Total}
}
