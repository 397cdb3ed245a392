package models

// UserStats is the aggregate shown on the admin dashboard.
type UserStats struct {
	TotalUsers       int64 `json:"totalUsers"`
	ActiveUsers      int64 `json:"activeUsers"`
	InactiveUsers    int64 `json:"inactiveUsers"`
	AdminUsers       int64 `json:"adminUsers"`
	RegularUsers     int64 `json:"regularUsers"`
	VerifiedUsers    int64 `json:"verifiedUsers"`
	UnverifiedUsers  int64 `json:"unverifiedUsers"`
	RecentUsers      int64 `json:"recentUsers"`
	ActiveInLastWeek int64 `json:"activeInLastWeek"`
}
