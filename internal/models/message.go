package models

import (
	"time"
)

// Message is a stored chat message. ID and Timestamp are assigned by the
// store at creation and never change afterwards. The optional attachment and
// reply fields are pointers so that "absent" is distinguishable from an empty
// value; absent fields are omitted from JSON.
//
// The reply fields are a denormalized snapshot of the referenced message
// taken at creation time, not a live reference.
type Message struct {
	ID         int64     `json:"id"`
	Content    string    `json:"content"`
	SenderName string    `json:"senderName"`
	Timestamp  time.Time `json:"timestamp"`

	// File attachment data
	FileName *string `json:"fileName,omitempty"`
	FileSize *int64  `json:"fileSize,omitempty"`
	FileType *string `json:"fileType,omitempty"`
	FileURL  *string `json:"fileUrl,omitempty"`

	// Reply snapshot
	ReplyToID      *int64  `json:"replyToId,omitempty"`
	ReplyToContent *string `json:"replyToContent,omitempty"`
	ReplyToSender  *string `json:"replyToSender,omitempty"`
}

// MessageDraft is an inbound message before the store assigns its identity.
// Timestamp is optional; the store fills it with the current time when nil.
type MessageDraft struct {
	Content    string     `json:"content"`
	SenderName string     `json:"senderName"`
	Timestamp  *time.Time `json:"timestamp,omitempty"`

	FileName *string `json:"fileName,omitempty"`
	FileSize *int64  `json:"fileSize,omitempty"`
	FileType *string `json:"fileType,omitempty"`
	FileURL  *string `json:"fileUrl,omitempty"`

	ReplyToID      *int64  `json:"replyToId,omitempty"`
	ReplyToContent *string `json:"replyToContent,omitempty"`
	ReplyToSender  *string `json:"replyToSender,omitempty"`
}

// HasFile reports whether the draft carries attachment metadata.
func (d *MessageDraft) HasFile() bool {
	return d.FileURL != nil
}

// StringPtr returns a pointer to s, for building optional fields.
func StringPtr(s string) *string {
	return &s
}

// Int64Ptr returns a pointer to n, for building optional fields.
func Int64Ptr(n int64) *int64 {
	return &n
}
