package models

// MessageType identifies an inbound or outbound WebSocket frame
type MessageType string

const (
	MessageUpdate           MessageType = "update"
	MessageRegister         MessageType = "register"
	MessageTrack            MessageType = "track"
	MessagePosition         MessageType = "position"
	MessageActivity         MessageType = "activity"
	MessagePace             MessageType = "pace"
	MessageQuestion         MessageType = "question"
	MessageCancel           MessageType = "cancel"
	MessageComplete         MessageType = "complete"
	MessageAnswerKey        MessageType = "answerkey"
	MessageAnnotation       MessageType = "annotation"
	MessageAnnotationConfig MessageType = "annotationConfig"
	MessageFeedback         MessageType = "feedback"
	MessageFollow           MessageType = "follow"

	// MessageCurrent is outbound only: the presenter's live position
	MessageCurrent MessageType = "current"
)

// Pace values accepted from the audience
const (
	PaceGood    = "good"
	PaceTooFast = "too_fast"
	PaceTooSlow = "too_slow"
)

// CurrentMessage is the outbound position broadcast
type CurrentMessage struct {
	Message   string `json:"message"`
	Current   int    `json:"current"`
	Increment int    `json:"increment"`
}

// ActivityMessage reports the number of viewers still working on the
// current slide's activity
type ActivityMessage struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}
