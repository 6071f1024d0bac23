package jobs

import "time"

const TaskConvert = "convert:url"

// ConvertPayload carries one accepted request from the Telegram listener to
// the conversion worker. Enqueued with MaxRetry(0): a failed conversion is
// terminal and the user resubmits.
type ConvertPayload struct {
	RequestID   string    `json:"request_id"` // ULID, also the temp subdir name
	ChatID      int64     `json:"chat_id"`
	UserID      int64     `json:"user_id"`
	URL         string    `json:"url"`
	StatusMsgID int       `json:"status_msg_id"` // message edited as progress
	ReceivedAt  time.Time `json:"received_at"`
}
