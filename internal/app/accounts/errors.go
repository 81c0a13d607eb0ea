package accounts

// Error is an application-layer error that can be mapped to an HTTP response.
type Error struct {
	Status  int
	Code    string
	Message string
	Details map[string]any
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}

// Stable error codes surfaced to callers.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeInvalidPassword    = "INVALID_PASSWORD"
	CodeEmailInUse         = "EMAIL_ALREADY_IN_USE"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeEmailNotFound      = "EMAIL_NOT_FOUND"
	CodeMissingField       = "MISSING_FIELD"
	CodeAccountNotFound    = "ACCOUNT_NOT_FOUND"
)

func validationError(message string, details map[string]any) *Error {
	return &Error{Status: 422, Code: CodeValidation, Message: message, Details: details}
}

func invalidPasswordError(violations []string) *Error {
	return &Error{
		Status:  422,
		Code:    CodeInvalidPassword,
		Message: "password does not meet the policy",
		Details: map[string]any{"violations": violations},
	}
}

func emailInUseError() *Error {
	return &Error{Status: 409, Code: CodeEmailInUse, Message: "an account already uses this email"}
}

func invalidCredentialsError() *Error {
	return &Error{Status: 401, Code: CodeInvalidCredentials, Message: "invalid email or password"}
}

func emailNotFoundError() *Error {
	return &Error{Status: 404, Code: CodeEmailNotFound, Message: "email not found"}
}

func accountNotFoundError() *Error {
	return &Error{Status: 404, Code: CodeAccountNotFound, Message: "account not found"}
}
