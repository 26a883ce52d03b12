package model

import "time"

// EmailMessage is the plain-text view of an inbound message as delivered by
// the mailbox collaborator. MIME decoding happens upstream; the pipeline only
// ever sees subject, body text, and the sender address.
type EmailMessage struct {
	MessageID    string    `json:"message_id"`
	ThreadID     string    `json:"thread_id,omitempty"`
	FromName     string    `json:"from_name,omitempty"`
	FromEmail    string    `json:"from_email"`
	Subject      string    `json:"subject"`
	Snippet      string    `json:"snippet,omitempty"`
	BodyText     string    `json:"body_text"`
	InternalDate int64     `json:"internal_date,omitempty"`
	ReceivedAt   time.Time `json:"received_at,omitempty"`
	Processed    bool      `json:"processed"`
}

// RelevanceDecision is the outcome of the lead relevance classifier.
// A false ShouldProcess short-circuits all further work on the email.
type RelevanceDecision struct {
	ShouldProcess bool   `json:"should_process"`
	Reason        string `json:"reason"`
}
