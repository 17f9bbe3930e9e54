package models

// Member is a membership fact supplied by the group management collaborator.
type Member struct {
	GroupID  string `json:"group_id"`
	UserID   string `json:"user_id"`
	Active   bool   `json:"active"`
	JoinedAt int64  `json:"joined_at"`
}
