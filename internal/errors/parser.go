package errors

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrorInfo is a client-safe code and message derived from an internal error
type ErrorInfo struct {
	Code    string
	Message string
}

// IsDuplicateKey reports a unique constraint violation from any supported driver.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "duplicate key") || strings.Contains(lower, "unique constraint")
}

// ParseError maps storage errors to a code and message without leaking SQL detail.
// context names the operation, e.g. "create report".
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{Code: InternalServerError, Message: "Internal server error"}
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{Code: ResourceNotFound, Message: notFoundMessage(context)}
	}

	if IsDuplicateKey(err) {
		return parseDuplicateKeyError(err.Error())
	}

	errLower := strings.ToLower(err.Error())
	if errors.Is(err, gorm.ErrForeignKeyViolated) || strings.Contains(errLower, "foreign key constraint") {
		return ErrorInfo{Code: ResourceNotFound, Message: "Referenced record does not exist"}
	}
	if strings.Contains(errLower, "violates not-null constraint") || strings.Contains(errLower, "not null constraint") {
		return ErrorInfo{Code: ValidationRequired, Message: "A required field is missing"}
	}

	if strings.Contains(errLower, "connection refused") || strings.Contains(errLower, "timeout") {
		return ErrorInfo{Code: InternalDatabaseError, Message: "Database temporarily unavailable, please retry"}
	}

	return ErrorInfo{Code: InternalServerError, Message: defaultErrorMessage(context)}
}

func parseDuplicateKeyError(errStr string) ErrorInfo {
	errLower := strings.ToLower(errStr)

	switch {
	case strings.Contains(errLower, "mobile_no"):
		return ErrorInfo{Code: AuthAccountExists, Message: "An account with this mobile number already exists"}
	case strings.Contains(errLower, "user_pan"):
		return ErrorInfo{Code: AuthPANAlreadyUsed, Message: "This PAN is already registered to another account"}
	case strings.Contains(errLower, "attestation"):
		return ErrorInfo{Code: ReportAlreadyAttested, Message: "You have already attested this report"}
	case strings.Contains(errLower, "gstin"):
		return ErrorInfo{Code: ResourceAlreadyExists, Message: "This GSTIN is already registered"}
	}
	return ErrorInfo{Code: ResourceAlreadyExists, Message: "Record already exists"}
}

func notFoundMessage(context string) string {
	contextLower := strings.ToLower(context)
	switch {
	case strings.Contains(contextLower, "account"):
		return "Account not found"
	case strings.Contains(contextLower, "business"):
		return "Business not found"
	case strings.Contains(contextLower, "report"):
		return "Report not found"
	}
	return "Requested record not found"
}

func defaultErrorMessage(context string) string {
	contextLower := strings.ToLower(context)
	switch {
	case strings.Contains(contextLower, "create"):
		return "Failed to create record, please retry"
	case strings.Contains(contextLower, "update"):
		return "Failed to update record, please retry"
	}
	return "Internal server error"
}
