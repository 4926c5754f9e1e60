package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
)

// Attribute keys shared by every package that logs.
const (
	KeyComponent = "component"
	KeyJobID     = "job_id"
	KeyState     = "state"
	KeyUserHash  = "user_hash"
	KeyError     = "error"
)

// WithComponent tags logger with a component name. A nil logger means
// slog.Default().
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With(slog.String(KeyComponent, component))
}

// WithJob tags logger with a job id.
func WithJob(logger *slog.Logger, jobID string) *slog.Logger {
	return logger.With(JobID(jobID))
}

// JobID is the job id attribute.
func JobID(id string) slog.Attr {
	return slog.String(KeyJobID, id)
}

// State is the job lifecycle state attribute.
func State(state string) slog.Attr {
	return slog.String(KeyState, state)
}

// Err is the error attribute. A nil err yields an empty group, which slog
// drops from the output.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// AnonymizeEmail hashes an address so log lines about the same person can be
// correlated without the address itself appearing. Case and surrounding
// space are ignored.
func AnonymizeEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(email))
	return "user:" + hex.EncodeToString(sum[:8])
}

// UserHash is the anonymized address attribute.
func UserHash(email string) slog.Attr {
	return slog.String(KeyUserHash, AnonymizeEmail(email))
}

// ExtractDomain returns the lowercased domain of an address, or "" when it
// is not of the form local@domain.
func ExtractDomain(email string) string {
	local, domain, ok := strings.Cut(strings.TrimSpace(email), "@")
	if !ok || local == "" || domain == "" || strings.Contains(domain, "@") {
		return ""
	}
	return strings.ToLower(domain)
}

// AttendeeDomains returns the distinct attendee domains in first-seen order.
func AttendeeDomains(attendees []string) []string {
	seen := make(map[string]bool, len(attendees))
	var out []string
	for _, a := range attendees {
		d := ExtractDomain(a)
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	return out
}
