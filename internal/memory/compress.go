package memory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ShayCichocki/wkagent/internal/events"
	"github.com/ShayCichocki/wkagent/internal/llm"
	"github.com/ShayCichocki/wkagent/pkg/models"
)

// SummaryKind tells how a summary was produced.
type SummaryKind string

const (
	SummaryLLM   SummaryKind = "llm_compressed"
	SummaryBasic SummaryKind = "basic_summary"
)

// Summary is a medium-term record created by compression. It is never
// modified after creation.
type Summary struct {
	Kind    SummaryKind `json:"type"`
	Content string      `json:"content"`
	// Sections lists each structured section of an LLM summary, in order.
	Sections          []Section `json:"structuredSections,omitempty"`
	KeyPoints         []string  `json:"keyPoints"`
	OriginalCount     int       `json:"originalCount"`
	CompressionRatio  int       `json:"compressionRatio"`
	UserMessages      int       `json:"userMessages,omitempty"`
	AssistantMessages int       `json:"assistantMessages,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
}

// Section is one titled block of an LLM summary.
type Section struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

var errEmptyCompression = errors.New("compression returned empty content")

func (m *Manager) shouldCompress() bool {
	return len(m.short) > m.cfg.CompressThreshold || m.tokenRatio() > m.cfg.TokenThreshold
}

// Compress forces a compression pass.
func (m *Manager) Compress(ctx context.Context) {
	m.compress(ctx)
}

// compress folds all but the newest messages into a summary. It never
// fails: any LLM problem degrades to the basic summary. The caller must not
// hold m.mu; it is released while the summary is built and while the event
// is emitted. Messages appended meanwhile stay in short-term memory.
func (m *Manager) compress(ctx context.Context) {
	m.mu.Lock()
	if m.compressing || len(m.short) <= keepRecent {
		m.mu.Unlock()
		return
	}
	m.compressing = true
	gen := m.gen
	old := append([]models.Message(nil), m.short[:len(m.short)-keepRecent]...)
	m.mu.Unlock()

	s := m.summarize(ctx, old)

	m.mu.Lock()
	m.compressing = false
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	m.medium = append(m.medium, s)
	if over := len(m.medium) - m.cfg.MaxMediumTerm; over > 0 {
		m.medium = append([]Summary(nil), m.medium[over:]...)
	}
	m.short = append([]models.Message(nil), m.short[len(old):]...)
	m.stats.CompressionCount++
	m.stats.LastCompressionTime = time.Now()
	m.stats.TokenUsage = m.shortTermTokens()
	ev := events.Event{
		Name:            events.MemoryCompress,
		OriginalCount:   s.OriginalCount,
		CompressedCount: len(m.short),
		Ratio:           s.CompressionRatio,
		Message:         string(s.Kind),
	}
	m.mu.Unlock()

	m.events.Emit(ev)
}

func (m *Manager) summarize(ctx context.Context, msgs []models.Message) Summary {
	if !m.cfg.LLMCompression {
		return basicSummary(msgs)
	}
	s, err := m.llmSummary(ctx, msgs)
	if err != nil {
		m.log.Warn("LLM compression failed, using basic compression", "error", err)
		return basicSummary(msgs)
	}
	return s
}

func (m *Manager) llmSummary(ctx context.Context, msgs []models.Message) (Summary, error) {
	text, err := m.caller.Call(ctx, llm.Request{
		Messages: []llm.Message{
			llm.System("You compress conversation history into an eight-section structured summary. Keep technical details accurate and preserve continuity."),
			llm.User(compressionPrompt(msgs)),
		},
		Temperature: 0.2,
	})
	if err != nil {
		return Summary{}, fmt.Errorf("compress %d messages: %w", len(msgs), err)
	}
	if strings.TrimSpace(text) == "" {
		return Summary{}, errEmptyCompression
	}
	return Summary{
		Kind:             SummaryLLM,
		Content:          text,
		Sections:         ParseSections(text),
		KeyPoints:        KeyPoints(text),
		OriginalCount:    len(msgs),
		CompressionRatio: CompressionRatio(msgs, text),
		Timestamp:        time.Now(),
	}, nil
}

var summarySections = []string{
	"Background Context",
	"Key Decisions",
	"Tool Usage Log",
	"User Intent Evolution",
	"Execution Results",
	"Errors and Solutions",
	"Open Issues",
	"Future Plans",
}

func compressionPrompt(msgs []models.Message) string {
	var b strings.Builder
	b.WriteString("Compress the following conversation history into eight structured sections.\n\nConversation:\n")
	for _, msg := range msgs {
		fmt.Fprintf(&b, "%s: %s\n", msg.Role, msg.Content)
	}
	b.WriteString("\nUse exactly this layout:\n\n")
	for i, title := range summarySections {
		fmt.Fprintf(&b, "## %d. %s\n- ...\n\n", i+1, title)
	}
	b.WriteString("Be accurate and concise, keep continuity, and drop redundant content.")
	return b.String()
}

func basicSummary(msgs []models.Message) Summary {
	var users, assistants int
	var userMsgs []string
	for _, msg := range msgs {
		switch msg.Role {
		case models.RoleUser:
			users++
			userMsgs = append(userMsgs, msg.Content)
		case models.RoleAssistant:
			assistants++
		}
	}
	if len(userMsgs) > 3 {
		userMsgs = userMsgs[len(userMsgs)-3:]
	}
	points := make([]string, len(userMsgs))
	for i, u := range userMsgs {
		points[i] = truncateRunes(u, 100)
	}

	content := fmt.Sprintf("Compressed %d messages (%d user, %d assistant).", len(msgs), users, assistants)
	if len(points) > 0 {
		content += " Recent requests: " + strings.Join(points, " | ")
	}
	return Summary{
		Kind:              SummaryBasic,
		Content:           content,
		KeyPoints:         points,
		OriginalCount:     len(msgs),
		UserMessages:      users,
		AssistantMessages: assistants,
		Timestamp:         time.Now(),
	}
}

var (
	sectionPattern  = regexp.MustCompile(`(?m)^## \d+\.\s*([^\n]+)\n([^#]*)`)
	sentenceBreaker = regexp.MustCompile(`[。！？\n]`)
)

// ParseSections splits "## N. Title" blocks of an LLM summary.
func ParseSections(content string) []Section {
	var out []Section
	for _, match := range sectionPattern.FindAllStringSubmatch(content, -1) {
		title := strings.TrimSpace(match[1])
		if title == "" {
			continue
		}
		out = append(out, Section{Title: title, Body: strings.TrimSpace(match[2])})
	}
	return out
}

// KeyPoints returns the first five sentences longer than ten characters.
func KeyPoints(content string) []string {
	var out []string
	for _, s := range sentenceBreaker.Split(content, -1) {
		if utf8.RuneCountInString(strings.TrimSpace(s)) > 10 {
			out = append(out, s)
			if len(out) == 5 {
				break
			}
		}
	}
	return out
}

// CompressionRatio returns the percentage saved by replacing msgs with
// compressed, rounded. It is 0 when the originals were empty.
func CompressionRatio(msgs []models.Message, compressed string) int {
	original := 0
	for _, msg := range msgs {
		original += utf8.RuneCountInString(msg.Content)
	}
	if original == 0 {
		return 0
	}
	return int(math.Round((1 - float64(utf8.RuneCountInString(compressed))/float64(original)) * 100))
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
