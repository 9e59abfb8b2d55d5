package domain

import "time"

// Roles. Broadcast fan-out targets admins; the service role is for
// machine-to-machine event producers (triggers, webhooks).
const (
	RoleAdmin   = "admin"
	RoleUser    = "user"
	RoleService = "service"
)

// User is a recipient identity from the user directory. This engine never
// creates or mutates users; it only enumerates admins for fan-out and
// resolves display names for the normalizer.
type User struct {
	UserID    string    `json:"id" dynamodbav:"user_id"`
	Username  string    `json:"username" dynamodbav:"username"`
	FirstName string    `json:"first_name" dynamodbav:"first_name"`
	LastName  string    `json:"last_name" dynamodbav:"last_name"`
	Role      string    `json:"role" dynamodbav:"role"`
	Enable    int       `json:"enable" dynamodbav:"enable"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
}

// DisplayName prefers "First Last", falling back to the username.
func (u User) DisplayName() string {
	if u.FirstName == "" && u.LastName == "" {
		return u.Username
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
