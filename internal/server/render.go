package server

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"net/http"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/validate"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

func parseTemplates() (*template.Template, error) {
	return template.ParseFS(templateFS, "templates/*.html")
}

// User-facing messages. Login and recovery failures never say which input
// was wrong.
const (
	msgEmailInUse        = "Email already in use."
	msgNameInUse         = "Name already in use."
	msgInvalidLogin      = "Invalid email/password combination."
	msgWrongAnswer       = "Incorrect answer to the security question."
	msgPasswordsMismatch = "Passwords do not match"
	msgPasswordChanged   = "Your password has been changed successfully. Please log in again."
)

var fieldLabels = map[string]string{
	validate.FieldIdentity:       "Name",
	validate.FieldEmail:          "Email",
	validate.FieldSecret:         "Password",
	validate.FieldNewSecret:      "Password",
	validate.FieldSecurityAnswer: "Security answer",
}

// validationMessage turns the first failing field into a form message.
func validationMessage(err error) string {
	var verr *goSession.ValidationError
	if !errors.As(err, &verr) {
		return "Invalid input."
	}
	label, ok := fieldLabels[verr.Field]
	if !ok {
		label = "Answer"
	}
	switch verr.Reason {
	case validate.ReasonRequired:
		return label + " is required."
	case validate.ReasonTooLong:
		return label + " is too long."
	default:
		return label + " is invalid."
	}
}

type question struct {
	Name   string
	Text   string
	Answer string
}

var quizQuestions = []question{
	{Name: "question1", Text: "What is your favourite colour?"},
	{Name: "question2", Text: "Which season do you like best?"},
	{Name: "question3", Text: "What was your first programming language?"},
	{Name: "question4", Text: "Cats or dogs?"},
}

// pageData is the single view model shared by every template.
type pageData struct {
	Title         string
	Authenticated bool
	Error         string
	Success       string
	Email         string
	Form          map[string]string
	Profile       goSession.Profile
	Questions     []question
}

// render executes page into a buffer first so a template failure still
// produces a clean 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, page string, data pageData) {
	if data.Title == "" {
		data.Title = page
	}
	if sess, ok := goSession.SessionFromContext(r.Context()); ok {
		_, data.Authenticated = sess.Authenticated()
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, page, data); err != nil {
		s.log(r).Error("render template", zap.String("template", page), zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
