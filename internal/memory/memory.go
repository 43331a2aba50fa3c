// Package memory implements the three-tier conversational memory: raw
// short-term turns, compressed medium-term summaries, and a bounded
// long-term fact store that can be mirrored to a Persister.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ShayCichocki/wkagent/internal/events"
	"github.com/ShayCichocki/wkagent/internal/llm"
	"github.com/ShayCichocki/wkagent/internal/logging"
	"github.com/ShayCichocki/wkagent/internal/tokens"
	"github.com/ShayCichocki/wkagent/pkg/models"
)

// Long-term pruning bounds.
const (
	LongTermLimit = 50
	LongTermKeep  = 30
)

// keepRecent is how many short-term messages survive a compression.
const keepRecent = 5

// Config holds memory tuning values.
type Config struct {
	CompressThreshold int
	MaxMediumTerm     int
	// TokenThreshold is the short-term token usage ratio that forces compression.
	TokenThreshold float64
	// MaxTokens is the completion budget the token ratio is measured against.
	MaxTokens      int
	LLMCompression bool
	// PersistenceKey names the snapshot in the Persister.
	PersistenceKey string
}

// DefaultConfig returns the stock memory settings.
func DefaultConfig() Config {
	return Config{
		CompressThreshold: 15,
		MaxMediumTerm:     30,
		TokenThreshold:    0.92,
		MaxTokens:         4000,
		LLMCompression:    true,
		PersistenceKey:    "wkagent-longterm-memory",
	}
}

// Manager owns all memory tiers. It is safe for concurrent use.
type Manager struct {
	mu sync.Mutex

	cfg       Config
	caller    *llm.Caller
	estimator tokens.Estimator
	events    *events.Registry
	persister Persister
	log       logging.Logger

	short  []models.Message
	medium []Summary
	long   *LongTermStore
	stats  models.MemoryStats

	// compressing is set while a summary is built outside the lock. gen
	// changes on Clear so an in-flight summary of cleared messages is dropped.
	compressing bool
	gen         uint64

	lastKey int64
}

// Option configures a Manager.
type Option func(*Manager)

// WithCaller sets the completion caller used for LLM compression.
func WithCaller(c *llm.Caller) Option { return func(m *Manager) { m.caller = c } }

// WithEstimator sets the token estimator.
func WithEstimator(e tokens.Estimator) Option { return func(m *Manager) { m.estimator = e } }

// WithEvents sets the event registry.
func WithEvents(r *events.Registry) Option { return func(m *Manager) { m.events = r } }

// WithPersister mirrors long-term memory to p.
func WithPersister(p Persister) Option { return func(m *Manager) { m.persister = p } }

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option { return func(m *Manager) { m.log = l } }

// New creates a Manager. Zero config fields take their defaults.
func New(cfg Config, opts ...Option) *Manager {
	def := DefaultConfig()
	if cfg.CompressThreshold <= 0 {
		cfg.CompressThreshold = def.CompressThreshold
	}
	if cfg.MaxMediumTerm <= 0 {
		cfg.MaxMediumTerm = def.MaxMediumTerm
	}
	if cfg.TokenThreshold <= 0 {
		cfg.TokenThreshold = def.TokenThreshold
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	if cfg.PersistenceKey == "" {
		cfg.PersistenceKey = def.PersistenceKey
	}

	m := &Manager{
		cfg:       cfg,
		estimator: tokens.Heuristic{},
		log:       logging.Nop(),
		long:      NewLongTermStore(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.caller == nil {
		m.caller = llm.NewCaller(llm.Disabled{}, m.log)
	}
	m.log = m.log.With("component", "memory")
	return m
}

// Append stamps msg with its token estimate and importance, adds it to
// short-term memory, and compresses before returning if the threshold is
// crossed.
func (m *Manager) Append(ctx context.Context, msg models.Message) {
	m.mu.Lock()

	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	msg.Metadata.TokenUsage = m.estimator.Count(msg.Content)
	msg.Metadata.Importance = Importance(msg)

	m.short = append(m.short, msg)
	m.stats.TotalMessages++
	m.stats.TokenUsage = m.shortTermTokens()
	due := m.shouldCompress()
	m.mu.Unlock()

	if due {
		m.compress(ctx)
	}
}

func (m *Manager) shortTermTokens() int {
	total := 0
	for _, msg := range m.short {
		if msg.Metadata.TokenUsage > 0 {
			total += msg.Metadata.TokenUsage
		} else {
			total += m.estimator.Count(msg.Content)
		}
	}
	return total
}

// TokenRatio is the short-term token estimate over the configured budget.
func (m *Manager) TokenRatio() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokenRatio()
}

func (m *Manager) tokenRatio() float64 {
	return float64(m.shortTermTokens()) / float64(m.cfg.MaxTokens)
}

// ShortTerm returns a copy of the short-term messages, oldest first.
func (m *Manager) ShortTerm() []models.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Message(nil), m.short...)
}

// Recent returns up to n of the newest short-term messages.
func (m *Manager) Recent(n int) []models.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	start := len(m.short) - n
	if start < 0 {
		start = 0
	}
	return append([]models.Message(nil), m.short[start:]...)
}

// Summaries returns a copy of the medium-term summaries.
func (m *Manager) Summaries() []Summary {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Summary(nil), m.medium...)
}

// LongTerm returns the long-term entries, oldest first.
func (m *Manager) LongTerm() []LongTermRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.long.Records()
}

// Stats returns a copy of the counters.
func (m *Manager) Stats() models.MemoryStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// Usage reports the size of each tier.
func (m *Manager) Usage() models.MemoryUsage {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := models.MemoryUsage{
		ShortTerm:  len(m.short),
		MediumTerm: len(m.medium),
		LongTerm:   m.long.Len(),
	}
	u.Total = u.ShortTerm + u.MediumTerm + u.LongTerm
	return u
}

// Remember stores a long-term fact under "<category>_<unixnano>", prunes
// the store, and returns the key.
func (m *Manager) Remember(category, content, contextSummary string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	n := now.UnixNano()
	if n <= m.lastKey {
		n = m.lastKey + 1
	}
	m.lastKey = n
	key := fmt.Sprintf("%s_%d", category, n)
	m.long.Set(key, LongTermEntry{Content: content, Context: contextSummary, Timestamp: now})
	m.pruneLongTerm()
	return key
}

func (m *Manager) pruneLongTerm() {
	before := m.long.Len()
	dropped := m.long.Prune(LongTermLimit, LongTermKeep)
	if dropped == 0 {
		return
	}
	m.stats.TotalMessages -= dropped
	if m.stats.TotalMessages < 0 {
		m.stats.TotalMessages = 0
	}
	m.log.Debug("long-term memory pruned", "kept", m.long.Len(), "before", before)
}

// Clear empties every tier, resets the counters, and deletes the persisted
// snapshot.
func (m *Manager) Clear(ctx context.Context) {
	m.mu.Lock()
	m.short = nil
	m.medium = nil
	m.long.Clear()
	m.stats = models.MemoryStats{}
	m.gen++
	p := m.persister
	m.mu.Unlock()

	if p != nil {
		if err := p.Delete(ctx, m.cfg.PersistenceKey); err != nil {
			m.log.Warn("failed to delete persisted memory", "error", err)
		}
	}
}
