package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"voice-campaign/internal/llm"
	"voice-campaign/internal/script"
	"voice-campaign/pkg/models"
)

var ErrEmptyReply = errors.New("dialogue: model returned an empty reply")

const defaultMaxSentences = 3

// Completer produces the next assistant message for a chat transcript.
type Completer interface {
	Complete(ctx context.Context, messages []llm.Message) (string, error)
}

// Policy decides what the agent says next.
type Policy struct {
	completer     Completer
	script        *script.Script
	historyWindow int
	maxSentences  int
}

type Option func(*Policy)

// WithHistoryWindow limits how many trailing turns are sent to the model.
// By default the whole conversation is sent.
func WithHistoryWindow(n int) Option {
	return func(p *Policy) {
		if n > 0 {
			p.historyWindow = n
		}
	}
}

// WithMaxSentences caps the length of a reply.
func WithMaxSentences(n int) Option {
	return func(p *Policy) {
		if n > 0 {
			p.maxSentences = n
		}
	}
}

func NewPolicy(c Completer, s *script.Script, opts ...Option) *Policy {
	p := &Policy{
		completer:     c,
		script:        s,
		maxSentences:  defaultMaxSentences,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NextUtterance returns the agent's next line given the conversation so far.
// Any error means the caller should fall back to a fixed utterance.
func (p *Policy) NextUtterance(ctx context.Context, history []models.Turn, contact *models.Contact) (string, error) {
	system, err := p.SystemPrompt(contact)
	if err != nil {
		return "", err
	}

	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: system})
	messages = append(messages, Messages(history, p.historyWindow)...)

	reply, err := p.completer.Complete(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("generate reply: %w", err)
	}
	reply = TrimSentences(reply, p.maxSentences)
	if reply == "" {
		return "", ErrEmptyReply
	}
	return reply, nil
}

// SystemPrompt renders the script instructions followed by the contact block.
func (p *Policy) SystemPrompt(contact *models.Contact) (string, error) {
	base, err := p.script.RenderSystemPrompt(contact)
	if err != nil {
		return "", fmt.Errorf("render system prompt: %w", err)
	}
	if block := ContactBlock(contact); block != "" {
		base += "\n\n" + block
	}
	return base, nil
}

// ContactBlock lists what the agent may know about the contact. Sensitive
// identifiers only ever appear as masked suffixes.
func ContactBlock(c *models.Contact) string {
	if c == nil {
		return ""
	}
	var lines []string
	add := func(label, value string) {
		if strings.TrimSpace(value) != "" {
			lines = append(lines, label+": "+value)
		}
	}
	add("NOMBRE COMPLETO", c.FullName)
	add("PRIMER NOMBRE", c.FirstName())
	add("DIRECCIÓN", c.Address)
	add("CÓDIGO POSTAL", c.PostalCode)
	add("TELÉFONO", c.Phone)
	add("EMAIL", c.Email)
	add("IBAN", c.MaskedIBANSuffix)
	add("DNI", c.MaskedIDSuffix)
	if len(lines) == 0 {
		return ""
	}
	return "DATOS DEL CLIENTE ACTUAL:\n" + strings.Join(lines, "\n")
}

// Messages maps the last window turns to chat roles.
func Messages(history []models.Turn, window int) []llm.Message {
	if window > 0 && len(history) > window {
		history = history[len(history)-window:]
	}
	out := make([]llm.Message, 0, len(history))
	for _, t := range history {
		role := llm.RoleUser
		if t.Speaker == models.SpeakerAgent {
			role = llm.RoleAssistant
		}
		out = append(out, llm.Message{Role: role, Content: t.Text})
	}
	return out
}

// TrimSentences keeps at most n sentences of text.
func TrimSentences(text string, n int) string {
	text = strings.TrimSpace(text)
	if n <= 0 || text == "" {
		return text
	}
	runes := []rune(text)
	count := 0
	for i, r := range runes {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		// a sentence ends at terminal punctuation followed by space or end of text
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		count++
		if count == n {
			return strings.TrimSpace(string(runes[:i+1]))
		}
	}
	return text
}
