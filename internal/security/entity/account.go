package entity

// Account is the authenticated owner of a session.
type Account struct {
	ID    string
	Label string
}
