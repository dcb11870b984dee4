package api

import "time"

type User struct {
	UID       string    `json:"uid"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	PhotoURL  string    `json:"photo_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Group struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	JoinCode  string    `json:"join_code"`
	CreatedBy string    `json:"created_by"`
	Members   []string  `json:"members"`
	CreatedAt time.Time `json:"created_at"`
}

type Expense struct {
	ID              string    `json:"id"`
	GroupID         string    `json:"group_id"`
	Description     string    `json:"description"`
	TotalAmount     float64   `json:"total_amount"`
	PaidBy          string    `json:"paid_by"`
	SplitAmong      []string  `json:"split_among"`
	PerPersonAmount float64   `json:"per_person_amount"`
	CreatedAt       time.Time `json:"created_at"`
}

type Transaction struct {
	ID        string    `json:"id"`
	GroupID   string    `json:"group_id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Amount    float64   `json:"amount"`
	ExpenseID string    `json:"expense_id"`
	CreatedAt time.Time `json:"created_at"`
}

// BalanceSummary is the caller's own view of a group.
// NetBalance is OthersOweYou - YouOwe.
type BalanceSummary struct {
	TotalPaid     float64 `json:"total_paid"`
	PersonalShare float64 `json:"personal_share"`
	YouOwe        float64 `json:"you_owe"`
	OthersOweYou  float64 `json:"others_owe_you"`
	NetBalance    float64 `json:"net_balance"`
	// NetBalanceDisplay is NetBalance rounded for display, e.g. "₹200.00".
	NetBalanceDisplay string `json:"net_balance_display"`
}

// UserBalance is one roster row. NetBalance is TotalPaid - TotalOwed.
type UserBalance struct {
	UserID            string  `json:"user_id"`
	UserName          string  `json:"user_name"`
	UserPhoto         string  `json:"user_photo,omitempty"`
	TotalPaid         float64 `json:"total_paid"`
	TotalOwed         float64 `json:"total_owed"`
	NetBalance        float64 `json:"net_balance"`
	NetBalanceDisplay string  `json:"net_balance_display"`
}

// Auth

type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type RegisterResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignInResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

type SignOutRequest struct{}

type SignOutResponse struct{}

type GetCurrentUserRequest struct{}

type GetCurrentUserResponse struct {
	User *User `json:"user"`
}

// Groups

type CreateGroupRequest struct {
	Name string `json:"name"`
}

type CreateGroupResponse struct {
	Group *Group `json:"group"`
}

type JoinGroupRequest struct {
	JoinCode string `json:"join_code"`
}

type JoinGroupResponse struct {
	Group *Group `json:"group"`
	// AlreadyMember is set when the caller was a member before the call.
	AlreadyMember bool `json:"already_member"`
}

type GetGroupRequest struct {
	GroupID string `json:"group_id"`
}

type GetGroupResponse struct {
	Group *Group `json:"group"`
	// Members holds one profile per member, in member order.
	Members []*User `json:"members"`
}

type ListGroupsRequest struct{}

type ListGroupsResponse struct {
	Groups []*Group `json:"groups"`
}

type WatchGroupsRequest struct{}

type WatchGroupsResponse struct {
	Groups []*Group `json:"groups"`
}

// Expenses

type RecordExpenseRequest struct {
	GroupID     string   `json:"group_id"`
	Description string   `json:"description"`
	TotalAmount float64  `json:"total_amount"`
	PaidBy      string   `json:"paid_by"`
	SplitAmong  []string `json:"split_among"`
}

type RecordExpenseResponse struct {
	Expense      *Expense       `json:"expense"`
	Transactions []*Transaction `json:"transactions"`
}

type ListExpensesRequest struct {
	GroupID string `json:"group_id"`
}

type ListExpensesResponse struct {
	Expenses []*Expense `json:"expenses"`
}

type ListTransactionsRequest struct {
	GroupID string `json:"group_id"`
}

type ListTransactionsResponse struct {
	Transactions []*Transaction `json:"transactions"`
}

// Balances

type GetUserBalanceRequest struct {
	GroupID string `json:"group_id"`
}

type GetUserBalanceResponse struct {
	Summary *BalanceSummary `json:"summary"`
}

type GetGroupBalancesRequest struct {
	GroupID string `json:"group_id"`
}

type GetGroupBalancesResponse struct {
	Balances []*UserBalance `json:"balances"`
}

type WatchGroupRequest struct {
	GroupID string `json:"group_id"`
}

// GroupSnapshot is the full state of a group as seen by the caller.
type GroupSnapshot struct {
	Group        *Group          `json:"group"`
	Members      []*User         `json:"members"`
	Expenses     []*Expense      `json:"expenses"`
	Transactions []*Transaction  `json:"transactions"`
	MySummary    *BalanceSummary `json:"my_summary"`
	Balances     []*UserBalance  `json:"balances"`
}
