package errors

// Error code constants returned in the "code" field of error bodies.
// Format: CATEGORY_SPECIFIC_DETAIL. Clients map messages from these codes.

const (
	// ==================== Authentication (AUTH_) ====================
	AuthUnauthorized    = "AUTH_UNAUTHORIZED"
	AuthTokenExpired    = "AUTH_TOKEN_EXPIRED"
	AuthTokenInvalid    = "AUTH_TOKEN_INVALID"
	AuthTokenRevoked    = "AUTH_TOKEN_REVOKED"
	AuthAccountNotFound = "AUTH_ACCOUNT_NOT_FOUND"
	AuthAccountExists   = "AUTH_ACCOUNT_EXISTS"
	AuthPANAlreadyUsed  = "AUTH_PAN_ALREADY_USED"
	AuthCodeInvalid     = "AUTH_CODE_INVALID"
	AuthSessionExpired  = "AUTH_SESSION_EXPIRED"
	AuthSessionNotFound = "AUTH_SESSION_NOT_FOUND"
	AuthSessionMismatch = "AUTH_SESSION_MISMATCH"
	AuthPhaseAdvanced   = "AUTH_PHASE_ALREADY_ADVANCED"
	AuthPhaseOrder      = "AUTH_PHASE_ORDER"
	AuthAlreadyVerified = "AUTH_ALREADY_VERIFIED"
	AuthWeakPassword    = "AUTH_WEAK_PASSWORD"

	// ==================== Authorization (AUTHZ_) ====================
	AuthzOwnerOnly = "AUTHZ_OWNER_ONLY"

	// ==================== Validation (VALIDATION_) ====================
	ValidationInvalidInput  = "VALIDATION_INVALID_INPUT"
	ValidationInvalidMobile = "VALIDATION_INVALID_MOBILE"
	ValidationInvalidPAN    = "VALIDATION_INVALID_PAN"
	ValidationInvalidGSTIN  = "VALIDATION_INVALID_GSTIN"
	ValidationInvalidFormat = "VALIDATION_INVALID_FORMAT"
	ValidationRequired      = "VALIDATION_REQUIRED"

	// ==================== Resources (RESOURCE_) ====================
	ResourceNotFound      = "RESOURCE_NOT_FOUND"
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS"

	// ==================== GST registry (GST_) ====================
	GSTNotFound         = "GST_NOT_FOUND"
	GSTBusinessNotFound = "GST_BUSINESS_NOT_FOUND"

	// ==================== Reports (REPORT_) ====================
	ReportNotFound        = "REPORT_NOT_FOUND"
	ReportSelfReport      = "REPORT_SELF_REPORT"
	ReportSelfAttestation = "REPORT_SELF_ATTESTATION"
	ReportAlreadyAttested = "REPORT_ALREADY_ATTESTED"
	ReportNotVerified     = "REPORT_NOT_VERIFIED"

	// ==================== Upload (UPLOAD_) ====================
	UploadInvalidFileType = "UPLOAD_INVALID_FILE_TYPE"
	UploadFailed          = "UPLOAD_FAILED"

	// ==================== Upstream services (UPSTREAM_) ====================
	UpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	UpstreamRejected    = "UPSTREAM_REJECTED"

	// ==================== Internal (INTERNAL_) ====================
	InternalServerError   = "INTERNAL_SERVER_ERROR"
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR"
)
