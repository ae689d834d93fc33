package view

import "webcrud/internal/model"

// UserForm is the state of the create and edit forms.
type UserForm struct {
	Name    string
	Email   string
	Phone   string
	Errors  map[string]string
	Message string
}

// FormFromUser fills a form with the stored values.
func FormFromUser(u *model.User) UserForm {
	return UserForm{Name: u.Name, Email: u.EmailValue(), Phone: u.Phone}
}

// UsersPage is the listing with the create form underneath.
type UsersPage struct {
	Title string
	Users []model.User
	Form  UserForm
}

// UserPage backs both the detail page and the edit form.
type UserPage struct {
	Title string
	User  *model.User
	Form  UserForm
}

// UploadPage is the upload form, optionally with a rejection message.
type UploadPage struct {
	Title    string
	Error    string
	Allowed  string
	MaxSize  string
	MaxFiles int
}

// UploadResultPage lists stored files.
type UploadResultPage struct {
	Title string
	Files []model.UploadedFile
}

// ErrorPage is shown for failures outside a form.
type ErrorPage struct {
	Title   string
	Status  int
	Message string
}
