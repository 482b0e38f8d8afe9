package domain

import "time"

// UserRegisteredEvent signals a new pending account.
type UserRegisteredEvent struct {
	EventID      string
	UserID       string
	Email        string
	Role         string
	RegisteredAt time.Time
}

// UserActivatedEvent signals a completed email verification.
type UserActivatedEvent struct {
	EventID     string
	UserID      string
	Email       string
	ActivatedAt time.Time
}

// UserLoggedInEvent signals a successful credential login.
type UserLoggedInEvent struct {
	EventID    string
	UserID     string
	Email      string
	LoggedInAt time.Time
}

// UserLoggedOutEvent signals an explicit session revocation.
type UserLoggedOutEvent struct {
	EventID     string
	UserID      string
	Email       string
	LoggedOutAt time.Time
}

// PasswordResetRequestedEvent signals that a reset code was issued.
type PasswordResetRequestedEvent struct {
	EventID     string
	Email       string
	RequestedAt time.Time
	ExpiresAt   time.Time
}

// PasswordChangedEvent signals a completed password reset.
type PasswordChangedEvent struct {
	EventID   string
	Email     string
	ChangedAt time.Time
}
