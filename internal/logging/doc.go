// Package logging holds the slog attribute helpers used across meetgate.
//
//	logger := logging.WithJob(logging.WithComponent(nil, "orchestrator"), jobID)
//	logger.Info("decision recorded", logging.State(string(j.State)))
//	logger.Info("booking created", logging.UserHash(requester))
//
// Email addresses are hashed before they reach a log line. Transcript text
// is only ever logged at Debug.
package logging
