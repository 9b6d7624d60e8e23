package dynamo

// DynamoDB attribute names used in update expressions across all repos.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldEnable           = "enable"
	fieldDeletedAt        = "deleted_at"
	fieldUpdatedAt        = "updated_at"
	fieldIsRead           = "is_read"
	fieldRefreshToken     = "refresh_token"
	fieldRefreshExpiresAt = "refresh_expires_at"
	fieldTwoFactorEnabled = "two_factor_enabled"
	fieldTwoFactorSecret  = "two_factor_secret"
	fieldBackupCodes      = "backup_codes"
	fieldStatus           = "status"
	fieldIsActive         = "is_active"
)
