package domain

// User is the owner of a chronicle. The system runs under a single fixed
// username, but the store keeps users as rows so entries have an owner id.
type User struct {
	ID        UserID
	Username  string
	CreatedAt Timestamp
}
