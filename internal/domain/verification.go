package domain

const (
	// VerificationOTP is the emailed sign-in code.
	VerificationOTP = "otp"
	// VerificationChallenge marks a redeemed second-factor challenge (subject
	// is the token id) so it cannot be replayed before it expires.
	VerificationChallenge = "challenge"
)

// Verification stores the latest sign-in challenge for an email address.
// PK: subject (normalized email), SK: type. Issuing a new challenge overwrites
// the previous one, so only the most recent code can ever match.
// ExpiresAt is a Unix timestamp used as DynamoDB TTL. Failures counts wrong
// guesses against this code.
type Verification struct {
	Subject   string `json:"subject" dynamodbav:"subject"`
	Type      string `json:"type" dynamodbav:"type"`
	CodeHash  string `json:"-" dynamodbav:"code_hash,omitempty"`
	IssuedAt  int64  `json:"issued_at" dynamodbav:"issued_at"`
	ExpiresAt int64  `json:"expires_at" dynamodbav:"expires_at"` // TTL (Unix seconds)
	Failures  int    `json:"failures" dynamodbav:"failures"`
}
