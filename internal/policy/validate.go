package policy

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/UkralStul/blog-service/internal/domain"
)

const (
	MaxTitleLength    = 100
	MaxUsernameLength = 150
)

// usernamePattern - буквы, цифры и @/./+/-/_ (в Unicode).
var usernamePattern = regexp.MustCompile(`^[\p{L}\p{N}_.@+-]+$`)

// Registration - поля формы регистрации.
type Registration struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// CleanPost обрезает пробелы по краям заголовка и текста и проверяет их.
// Сохранять нужно именно возвращенные значения.
func CleanPost(title, text string) (string, string, error) {
	title, text = strings.TrimSpace(title), strings.TrimSpace(text)

	v := &domain.ValidationError{}
	switch {
	case title == "":
		v.Add("title", "this field is required")
	case utf8.RuneCountInString(title) > MaxTitleLength:
		v.Add("title", "ensure this value has at most 100 characters")
	}
	if text == "" {
		v.Add("text", "this field is required")
	}
	return title, text, v.OrNil()
}

// CleanComment обрезает пробелы по краям текста комментария и проверяет его.
func CleanComment(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", domain.NewValidationError("text", "this field is required")
	}
	return text, nil
}

// CleanUsername приводит имя пользователя к виду, в котором оно хранится и ищется.
func CleanUsername(username string) string {
	return strings.TrimSpace(username)
}

// CleanRegistration обрезает пробелы во всех полях, кроме пароля,
// и проверяет наличие обязательных полей и формат имени и почты.
// Уникальность имени проверяет хранилище идентичностей.
func CleanRegistration(r Registration) (Registration, error) {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Username = CleanUsername(r.Username)
	r.Email = strings.TrimSpace(r.Email)

	v := &domain.ValidationError{}
	required := []struct{ field, value string }{
		{"first_name", r.FirstName},
		{"last_name", r.LastName},
		{"username", r.Username},
		{"email", r.Email},
		{"password", strings.TrimSpace(r.Password)},
	}
	for _, f := range required {
		if f.value == "" {
			v.Add(f.field, "this field is required")
		}
	}

	if r.Username != "" {
		switch {
		case utf8.RuneCountInString(r.Username) > MaxUsernameLength:
			v.Add("username", "ensure this value has at most 150 characters")
		case !usernamePattern.MatchString(r.Username):
			v.Add("username", "enter a valid username: letters, numbers and @/./+/-/_ characters only")
		}
	}
	if r.Email != "" {
		if _, err := mail.ParseAddress(r.Email); err != nil {
			v.Add("email", "enter a valid email address")
		}
	}
	return r, v.OrNil()
}
