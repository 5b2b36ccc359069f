package models

// ConversationRequest asks the messaging service to create or reuse a conversation.
type ConversationRequest struct {
	Type         string   `json:"type"`
	Name         string   `json:"name"`
	Avatar       string   `json:"avatar"`
	Participants []string `json:"participants"`
	TaskID       string   `json:"taskId"`
}

// Message is a chat message posted into a conversation.
type Message struct {
	Content      string `json:"content"`
	SenderID     string `json:"senderId"`
	SenderName   string `json:"senderName"`
	SenderAvatar string `json:"senderAvatar"`
	Type         string `json:"type"`
}

// GeocodeSuggestion is one address candidate from the geocoding provider.
type GeocodeSuggestion struct {
	PlaceName string  `json:"placeName"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
