package domain

type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// ChatEntry is one line of a conversation as shown to the user.
// The gateway never stores these; the presentation layer builds them.
type ChatEntry struct {
	Sender      Sender
	Text        string
	ImageRef    string
	DocumentRef string
	IsError     bool
}
