package client

import "time"

// User is the authenticated identity as reported by the current-user endpoint.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Task is the server's representation of a task. Fields the server owns are
// carried verbatim and never computed locally.
type Task struct {
	ID          string     `json:"id" yaml:"id"`
	Title       string     `json:"title" yaml:"title"`
	Description *string    `json:"description,omitempty" yaml:"description,omitempty"`
	IsCompleted bool       `json:"is_completed" yaml:"is_completed"`
	UserID      string     `json:"user_id,omitempty" yaml:"user_id,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// TaskPage is one page of the task listing.
type TaskPage struct {
	Items      []Task `json:"items" yaml:"items"`
	Total      int    `json:"total" yaml:"total"`
	Page       int    `json:"page" yaml:"page"`
	PageSize   int    `json:"page_size" yaml:"page_size"`
	TotalPages int    `json:"total_pages" yaml:"total_pages"`
}

// TaskCreate is the create-task request body.
type TaskCreate struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
}

// TaskPatch is a partial update; nil fields are left untouched by the server.
type TaskPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	IsCompleted *bool   `json:"is_completed,omitempty"`
}

// IsEmpty reports whether the patch sets no field.
func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.IsCompleted == nil
}

// CredentialsRequest is the sign-in and sign-up request body.
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// authResponse is whatever sign-in/sign-up returned. The token may be absent
// when the server delivers the credential as a cookie only.
type authResponse struct {
	AccessToken string `json:"access_token"`
	Token       string `json:"token"`
	Message     string `json:"message"`
}

func (r authResponse) token() string {
	if r.AccessToken != "" {
		return r.AccessToken
	}
	return r.Token
}
