package api

import "time"

// Peer is another registered user as returned by the roster endpoint.
// Snapshots are immutable; a re-fetch replaces them wholesale.
type Peer struct {
	ID        string `json:"_id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// Message is the backend's persisted message record. It is also the payload
// of realtime newMessage events, so both paths decode into the same type.
type Message struct {
	ID             string    `json:"_id"`
	Text           string    `json:"text"`
	SenderID       string    `json:"senderId"`
	ReceiverID     string    `json:"receiverId"`
	SenderUsername string    `json:"senderUsername,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// AuthUser is the identity block returned by the auth endpoints.
type AuthUser struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// AuthResult is the response of a successful login or OTP verification.
type AuthResult struct {
	Token string   `json:"token"`
	User  AuthUser `json:"user"`
}

type sendRequest struct {
	Text string `json:"text"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}
