package httpserver

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// maxJobIDLen bounds ids that end up in URLs and Kafka keys.
const maxJobIDLen = 100

var validJobID = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidationError describes one rejected field.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult represents the result of validation
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

func invalid(field, code, msg string) ValidationResult {
	return ValidationResult{Errors: []ValidationError{{Field: field, Code: code, Message: msg}}}
}

// ValidateJobID validates a job ID taken from a path or request body.
func ValidateJobID(jobID string) ValidationResult {
	switch {
	case jobID == "":
		return invalid("job_id", "REQUIRED", "Job ID is required")
	case len(jobID) > maxJobIDLen:
		return invalid("job_id", "TOO_LONG", "Job ID is too long (max 100 characters)")
	case !validJobID.MatchString(jobID):
		return invalid("job_id", "INVALID_FORMAT", "Job ID contains invalid characters")
	}
	return ValidationResult{Valid: true}
}

// ValidateTopN parses the top_n query parameter. Empty means every candidate.
func ValidateTopN(raw string) (int, ValidationResult) {
	if raw == "" {
		return 0, ValidationResult{Valid: true}
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, invalid("top_n", "INVALID_FORMAT", "top_n must be a non-negative integer")
	}
	return n, ValidationResult{Valid: true}
}

// ValidateEmail checks the candidate email used to address a re-evaluation.
func ValidateEmail(email string) ValidationResult {
	if strings.TrimSpace(email) == "" {
		return invalid("email", "REQUIRED", "Candidate email is required")
	}
	if err := getValidator().Var(email, "email"); err != nil {
		return invalid("email", "INVALID_FORMAT", "Candidate email is not a valid address")
	}
	return ValidationResult{Valid: true}
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New(validator.WithRequiredStructEnabled()) })
	return vld
}

// validationDetails flattens validator errors into field -> tag pairs.
func validationDetails(err error) map[string]string {
	out := map[string]string{}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			out[strings.ToLower(fe.Field())] = fe.Tag()
		}
	}
	return out
}

// resultDetails converts a failed ValidationResult into response details.
func resultDetails(res ValidationResult) map[string]string {
	out := make(map[string]string, len(res.Errors))
	for _, e := range res.Errors {
		out[e.Field] = e.Code
	}
	return out
}
