// Package gateway runs farmer requests that arrive as chat messages and
// delivers the results back to the chat.
package gateway

import (
	"context"

	"github.com/abutispinach/agroplan/internal/agent"
)

// File kinds understood by SendFile.
const (
	KindAudio    = "audio"
	KindDocument = "document"
)

// File is an in-memory attachment.
type File struct {
	Name string
	Kind string
	Data []byte
}

// Messenger defines the interface for communication gateways (Telegram, Discord, etc.)
type Messenger interface {
	Name() string
	// Start listens for messages until ctx is done
	Start(ctx context.Context) error
	// Send sends a message to a specific chat
	Send(chatID string, text string) error
	// SendFile uploads an attachment. Data is not retained after it returns.
	SendFile(chatID string, f File) error
	// Stop gracefully shuts down the gateway
	Stop() error
}

// RunService executes one farmer request.
type RunService interface {
	Run(ctx context.Context, req agent.Request, sink agent.Sink) (*agent.Report, error)
}
