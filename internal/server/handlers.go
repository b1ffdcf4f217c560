package server

import (
	"errors"
	"net/http"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/validate"
)

func (s *Server) landing(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "landing", pageData{Title: "Welcome"})
}

/*
====================================
SIGNUP
====================================
*/

func (s *Server) signupForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "signup", pageData{Title: "Sign up"})
}

func (s *Server) signupSubmit(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionOf(w, r)
	if !ok {
		return
	}
	req := goSession.SignupRequest{
		Identity:       r.PostFormValue(validate.FieldIdentity),
		Email:          r.PostFormValue(validate.FieldEmail),
		Secret:         r.PostFormValue(validate.FieldSecret),
		SecurityAnswer: r.PostFormValue(validate.FieldSecurityAnswer),
	}

	err := s.engine.Signup(r.Context(), sess, req)
	if err == nil {
		http.Redirect(w, r, "/main", http.StatusFound)
		return
	}

	data := pageData{
		Title: "Sign up",
		Form:  map[string]string{validate.FieldIdentity: req.Identity, validate.FieldEmail: req.Email},
	}
	switch {
	case errors.Is(err, goSession.ErrValidation):
		data.Error = validationMessage(err)
	case errors.Is(err, goSession.ErrDuplicateEmail):
		data.Error = msgEmailInUse
	case errors.Is(err, goSession.ErrDuplicateIdentity):
		data.Error = msgNameInUse
	default:
		s.fail(w, r, err)
		return
	}
	s.render(w, r, "signup", data)
}

/*
====================================
LOGIN
====================================
*/

func (s *Server) loginForm(w http.ResponseWriter, r *http.Request) {
	data := pageData{Title: "Log in"}
	if r.URL.Query().Get("changed") != "" {
		data.Success = msgPasswordChanged
	}
	s.render(w, r, "login", data)
}

func (s *Server) loginSubmit(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionOf(w, r)
	if !ok {
		return
	}
	email := r.PostFormValue(validate.FieldEmail)

	err := s.engine.Login(r.Context(), sess, email, r.PostFormValue(validate.FieldSecret))
	switch {
	case err == nil:
		http.Redirect(w, r, "/main", http.StatusFound)
	case errors.Is(err, goSession.ErrValidation),
		errors.Is(err, goSession.ErrUserNotFound),
		errors.Is(err, goSession.ErrInvalidCredentials):
		s.render(w, r, "login", pageData{
			Title: "Log in",
			Error: msgInvalidLogin,
			Form:  map[string]string{validate.FieldEmail: email},
		})
	default:
		s.fail(w, r, err)
	}
}

/*
====================================
RECOVERY
====================================
*/

func (s *Server) recoveryStartForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "changePassword", pageData{Title: "Reset your password"})
}

func (s *Server) recoveryStartSubmit(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionOf(w, r)
	if !ok {
		return
	}
	email := r.PostFormValue(validate.FieldEmail)

	err := s.engine.RecoveryStart(r.Context(), sess, email, r.PostFormValue(validate.FieldSecurityAnswer))
	if err == nil {
		http.Redirect(w, r, "/resetPassword", http.StatusFound)
		return
	}

	data := pageData{
		Title: "Reset your password",
		Form:  map[string]string{validate.FieldEmail: email},
	}
	switch {
	case errors.Is(err, goSession.ErrValidation):
		data.Error = validationMessage(err)
	case errors.Is(err, goSession.ErrRecoveryFailed):
		data.Error = msgWrongAnswer
	default:
		s.fail(w, r, err)
		return
	}
	s.render(w, r, "changePassword", data)
}

func (s *Server) recoveryCompleteForm(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionOf(w, r)
	if !ok {
		return
	}
	pending, ok := sess.RecoveryPending()
	if !ok {
		http.Redirect(w, r, "/changePassword", http.StatusFound)
		return
	}
	s.render(w, r, "resetPassword", pageData{Title: "Choose a new password", Email: pending.Email})
}

func (s *Server) recoveryCompleteSubmit(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionOf(w, r)
	if !ok {
		return
	}
	pending, _ := sess.RecoveryPending()

	err := s.engine.RecoveryComplete(r.Context(), sess,
		r.PostFormValue(validate.FieldNewSecret),
		r.PostFormValue(validate.FieldConfirmSecret),
	)
	if err == nil {
		http.Redirect(w, r, "/login?changed=1", http.StatusFound)
		return
	}

	data := pageData{Title: "Choose a new password", Email: pending.Email}
	switch {
	case errors.Is(err, goSession.ErrNoRecoveryInProgress):
		http.Redirect(w, r, "/changePassword", http.StatusFound)
		return
	case errors.Is(err, goSession.ErrValidation):
		data.Error = validationMessage(err)
	case errors.Is(err, goSession.ErrSecretMismatch):
		data.Error = msgPasswordsMismatch
	default:
		s.fail(w, r, err)
		return
	}
	s.render(w, r, "resetPassword", data)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionOf(w, r)
	if !ok {
		return
	}
	if err := s.engine.Logout(r.Context(), sess); err != nil {
		s.fail(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

/*
====================================
MEMBERS
====================================
*/

// profile loads the account behind the session. A vanished account sends
// the client back to the landing page.
func (s *Server) profile(w http.ResponseWriter, r *http.Request) (goSession.Profile, bool) {
	sess, ok := s.sessionOf(w, r)
	if !ok {
		return goSession.Profile{}, false
	}
	p, err := s.engine.Profile(r.Context(), sess)
	switch {
	case err == nil:
		return p, true
	case errors.Is(err, goSession.ErrUnauthorized):
		http.Redirect(w, r, "/", http.StatusFound)
	default:
		s.fail(w, r, err)
	}
	return goSession.Profile{}, false
}

func (s *Server) mainPage(w http.ResponseWriter, r *http.Request) {
	p, ok := s.profile(w, r)
	if !ok {
		return
	}
	s.render(w, r, "main", pageData{Title: "Main", Profile: p})
}

func (s *Server) quizForm(w http.ResponseWriter, r *http.Request) {
	p, ok := s.profile(w, r)
	if !ok {
		return
	}
	s.render(w, r, "quiz", pageData{Title: "Quiz", Profile: p, Questions: questionsWith(p.QuizAnswers, false)})
}

func (s *Server) quizWelcome(w http.ResponseWriter, r *http.Request) {
	p, ok := s.profile(w, r)
	if !ok {
		return
	}
	s.render(w, r, "quizWelcome", pageData{Title: "Quiz", Profile: p})
}

func (s *Server) quizSubmit(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionOf(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	answers := make(map[string]string, len(validate.QuizFields))
	for _, name := range validate.QuizFields {
		answers[name] = r.PostForm.Get(name)
	}

	err := s.engine.SaveQuizAnswers(r.Context(), sess, answers)
	switch {
	case err == nil:
		http.Redirect(w, r, "/members", http.StatusFound)
	case errors.Is(err, goSession.ErrValidation):
		p, ok := s.profile(w, r)
		if !ok {
			return
		}
		s.render(w, r, "quiz", pageData{
			Title:     "Quiz",
			Error:     validationMessage(err),
			Profile:   p,
			Questions: questionsWith(answers, false),
		})
	case errors.Is(err, goSession.ErrUnauthorized):
		http.Redirect(w, r, "/", http.StatusFound)
	default:
		s.fail(w, r, err)
	}
}

func (s *Server) members(w http.ResponseWriter, r *http.Request) {
	p, ok := s.profile(w, r)
	if !ok {
		return
	}
	s.render(w, r, "members", pageData{Title: "Members", Profile: p, Questions: questionsWith(p.QuizAnswers, true)})
}

// questionsWith pairs the quiz questions with answers. answeredOnly drops
// questions without an answer.
func questionsWith(answers map[string]string, answeredOnly bool) []question {
	out := make([]question, 0, len(quizQuestions))
	for _, q := range quizQuestions {
		q.Answer = answers[q.Name]
		if answeredOnly && q.Answer == "" {
			continue
		}
		out = append(out, q)
	}
	return out
}
