package validate

// Form field names shared by the schemas, the engine and the HTTP forms.
const (
	FieldIdentity       = "identity"
	FieldEmail          = "email"
	FieldSecret         = "secret"
	FieldSecurityAnswer = "securityAnswer"
	FieldNewSecret      = "newSecret"
	FieldConfirmSecret  = "confirmSecret"
)

// QuizFields are the optional answers accepted by the quiz form.
var QuizFields = []string{"question1", "question2", "question3", "question4"}

const (
	identityMaxLength = 20
	emailMaxLength    = 254
	// EmailMaxBytes keeps a multi-byte address inside the session record's
	// one-byte length prefix.
	EmailMaxBytes = 254
	// SecretMaxBytes is the bcrypt input limit. The normalised security
	// answer is hashed the same way and shares it.
	SecretMaxBytes      = 72
	answerMaxLength     = 128
	quizAnswerMaxLength = 200
	identityPattern     = `^[a-zA-Z0-9]+$`
	emailPattern        = `^[^\s@]+@[^\s@]+$`
)

var (
	identityField = Field{Name: FieldIdentity, Required: true, MaxLength: identityMaxLength, Pattern: identityPattern, Trim: true}
	emailField    = Field{Name: FieldEmail, Required: true, MaxLength: emailMaxLength, MaxBytes: EmailMaxBytes, Pattern: emailPattern, Trim: true, Lower: true}
	secretField   = Field{Name: FieldSecret, Required: true, MaxBytes: SecretMaxBytes}
	answerField   = Field{Name: FieldSecurityAnswer, Required: true, MaxLength: answerMaxLength, MaxBytes: SecretMaxBytes, Trim: true, Lower: true}
)

var (
	Signup = MustSchema("signup", identityField, emailField, secretField, answerField)

	Login = MustSchema("login", emailField, secretField)

	RecoveryStart = MustSchema("recovery-start", emailField, answerField)

	RecoveryComplete = MustSchema("recovery-complete",
		Field{Name: FieldNewSecret, Required: true, MaxBytes: SecretMaxBytes},
	)

	Quiz = MustSchema("quiz", quizFields()...)
)

func quizFields() []Field {
	fields := make([]Field, len(QuizFields))
	for i, name := range QuizFields {
		fields[i] = Field{Name: name, MaxLength: quizAnswerMaxLength, Trim: true}
	}
	return fields
}
