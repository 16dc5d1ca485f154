package domain

import "time"

// Category is a named grouping of pages with a like counter.
type Category struct {
	ID    int
	Name  string
	Slug  string
	Likes int
}

// Page is an external link belonging to exactly one category.
type Page struct {
	ID         int
	CategoryID int
	Title      string
	URL        string
	Views      int
}

// User is an authenticated identity, without its credential.
type User struct {
	ID         int
	Username   string
	Email      string
	IsActive   bool
	DateJoined time.Time
}

// UserProfile is the per-user supplement linked one-to-one with a User.
// Picture holds a media storage key, empty when no picture was uploaded.
type UserProfile struct {
	ID      int
	UserID  int
	Website string
	Picture string
}

// ProfileSummary joins a profile with its owner's username for listings.
type ProfileSummary struct {
	Username string
	Profile  UserProfile
}

// CategoryForm is the add-category form.
type CategoryForm struct {
	Name string `form:"name" binding:"required,notblank,max=128"`
}

// PageForm is the add-page form.
type PageForm struct {
	Title string `form:"title" binding:"required,notblank,max=128"`
	URL   string `form:"url" binding:"required,max=200,url"`
}

// UserForm holds the identity half of the registration form.
type UserForm struct {
	Username string `form:"username" binding:"required,notblank,max=150,username"`
	Email    string `form:"email" binding:"omitempty,email"`
	Password string `form:"password" binding:"required,min=1,max=72"`
}

// ProfileForm holds the profile half of the registration form and the
// profile-completion form. The picture is read separately from the
// multipart body.
type ProfileForm struct {
	Website string `form:"website" binding:"omitempty,max=200,url"`
}

// LoginForm is the login form.
type LoginForm struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}
