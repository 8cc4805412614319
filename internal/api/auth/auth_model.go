package auth

// SignUpRequest carries the sign-up form fields. Bodies arrive
// form-encoded from the web frontend; the JSON tags cover API clients.
type SignUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	Remember bool   `json:"remember,omitempty"`
}

// LoginRequest carries the login form fields. Identifier is either an
// email address or a username; the presence of "@" decides which.
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
	Remember   bool   `json:"remember,omitempty"`
}
