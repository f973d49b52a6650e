package user

// User identifies the story owner. Credentials are mocked; the id namespaces
// the user's stories in the archive.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Session is the process-lifetime login state, including the UI theme
// preference that rides along with it.
type Session struct {
	User  User   `json:"user"`
	Theme string `json:"theme"`
}
