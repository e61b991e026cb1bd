package session

// Record is the persisted session value for one identity.
type Record struct {
	RefreshToken string `json:"refresh_token"`
}
