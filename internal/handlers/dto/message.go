package dto

// AttachmentInput — вложение в запросе отправки сообщения
type AttachmentInput struct {
	Name string `json:"name" binding:"required"`
	URL  string `json:"url" binding:"required"`
	Type string `json:"type"`
}

type PostMessageRequest struct {
	Content     string            `json:"content"`
	Attachments []AttachmentInput `json:"attachments"`
}
