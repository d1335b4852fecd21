package dispatch

import "context"

const ActionGenerateReply = "generateReply"

// Message is one generation request as received from a caller.
type Message struct {
	Action       string `json:"action"`
	TweetContent string `json:"tweetContent"`
}

// Response carries either a reply or a human-readable error, never both.
type Response struct {
	Success bool   `json:"success"`
	Reply   string `json:"reply,omitempty"`
	Error   string `json:"error,omitempty"`
}

//go:generate go run go.uber.org/mock/mockgen -source=dispatch.go -destination=mocks/mock.go
type Client interface {
	// Dispatch routes a message. Malformed messages are answered synchronously
	// before Dispatch returns; well-formed ones are answered asynchronously.
	// respond is invoked exactly once per message.
	Dispatch(ctx context.Context, msg Message, respond func(Response))
}
