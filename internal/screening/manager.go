// Package screening runs PHQ-9 screenings for many concurrent conversations.
//
// Each conversation owns one questionnaire.Session. Turns of one conversation are serialized, turns of different
// conversations run in parallel. Sessions are cached in memory with an idle expiry and persisted after every turn so a
// conversation survives eviction and restarts.
package screening

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/myrjola/phq9bot/internal/errors"
	"github.com/myrjola/phq9bot/internal/logging"
	"github.com/myrjola/phq9bot/internal/questionnaire"
	"github.com/myrjola/phq9bot/internal/random"
	"github.com/myrjola/phq9bot/internal/repositories"
)

var (
	ErrNoScreening  = errors.NewSentinel("no screening for conversation")
	ErrEmptyMessage = errors.NewSentinel("empty message")
)

// StartTrigger begins a screening when sent as the whole message, ignoring case and surrounding space.
const StartTrigger = "start"

// Intro precedes the first question when small talk leads into a screening.
const Intro = "Of course, I'm here to help. The PHQ-9 assessment can help us understand how you've been feeling. " +
	"You can take your time with each response."

// offerMarkers in a small talk reply mean the assistant offered the screening.
var offerMarkers = []string{"PHQ-9", "Would you like to", "start a quick screening"}

// Chatter answers free conversation before a screening has started.
type Chatter interface {
	Chat(ctx context.Context, message string) (string, error)
}

// Store persists session snapshots. Load returns an error matching repositories.ErrNotFound for unknown
// conversations.
type Store interface {
	Load(ctx context.Context, conversationID string) (questionnaire.Snapshot, error)
	Save(ctx context.Context, conversationID string, snapshot questionnaire.Snapshot) error
	Delete(ctx context.Context, conversationID string) error
	DeleteStale(ctx context.Context, cutoff time.Time) (int64, error)
}

type Config struct {
	Classifier questionnaire.Classifier
	Empathizer questionnaire.Empathizer
	Summarizer questionnaire.Summarizer
	Chatter    Chatter
	// Store is optional. Without it conversations live only in memory.
	Store Store
	// CallTimeout bounds each language model call.
	CallTimeout time.Duration
	// SessionTTL is how long an idle conversation stays in memory.
	SessionTTL time.Duration
	// MaxSessions bounds the in-memory conversations. Zero means unbounded.
	MaxSessions int
	// Retention is the age after which persisted screenings are swept. Zero disables sweeping.
	Retention time.Duration
	// Source seeds confirmation phrase choice. Defaults to the global random source.
	Source random.Source
	Logger *slog.Logger
}

// Reply is the outcome of one chat message.
type Reply struct {
	Message     string
	Interrupted bool
	Phase       questionnaire.Phase
	Score       int
	// Band is set once the screening completed.
	Band questionnaire.Band
	// Retry is true when the message could not be processed and should be sent again.
	Retry bool
	// Answer is the answer recorded by this message, if any.
	Answer *questionnaire.Answer
}

type conversation struct {
	mu      sync.Mutex
	loaded  bool
	session *questionnaire.Session
	// refs counts the turns holding or waiting for mu. Guarded by Manager.mu.
	refs int
}

type Manager struct {
	cfg    Config
	logger *slog.Logger
	filter *questionnaire.SafetyFilter
	phrase *questionnaire.Phraser

	mu            sync.Mutex
	conversations *expirable.LRU[string, *conversation]
	// inFlight holds the conversations with a turn in progress. The cache may evict them, this map may not, so a
	// conversation never has two live copies.
	inFlight map[string]*conversation
}

func NewManager(cfg Config) *Manager {
	if cfg.Source == nil {
		cfg.Source = random.NewSource()
	}
	logger := cfg.Logger.With(slog.String("source", "screening.Manager"))
	return &Manager{
		cfg:           cfg,
		logger:        logger,
		filter:        questionnaire.NewSafetyFilter(),
		phrase:        questionnaire.NewPhraser(cfg.Source),
		mu:            sync.Mutex{},
		conversations: expirable.NewLRU[string, *conversation](cfg.MaxSessions, nil, cfg.SessionTTL),
		inFlight:      make(map[string]*conversation),
	}
}

func (m *Manager) dependencies() questionnaire.Dependencies {
	return questionnaire.Dependencies{
		Classifier:   m.cfg.Classifier,
		Empathizer:   m.cfg.Empathizer,
		Summarizer:   m.cfg.Summarizer,
		Phraser:      m.phrase,
		SafetyFilter: m.filter,
		CallTimeout:  m.cfg.CallTimeout,
		Logger:       m.logger,
	}
}

// acquire returns the locked conversation. The caller must hand it back with release.
func (m *Manager) acquire(ctx context.Context, conversationID string) (*conversation, error) {
	m.mu.Lock()
	c, ok := m.inFlight[conversationID]
	if !ok {
		if c, ok = m.conversations.Get(conversationID); !ok {
			c = &conversation{mu: sync.Mutex{}, loaded: false, session: nil, refs: 0}
		}
		m.inFlight[conversationID] = c
	}
	c.refs++
	// Re-adding refreshes the idle expiry.
	m.conversations.Add(conversationID, c)
	m.mu.Unlock()

	c.mu.Lock()
	if c.loaded {
		return c, nil
	}
	session, err := m.load(ctx, conversationID)
	if err != nil {
		m.release(conversationID, c)
		return nil, errors.Wrap(err, "load conversation")
	}
	c.session = session
	c.loaded = true
	return c, nil
}

// release unlocks c. The last turn to leave puts it back into the cache in case it was evicted meanwhile.
func (m *Manager) release(conversationID string, c *conversation) {
	c.mu.Unlock()
	m.mu.Lock()
	defer m.mu.Unlock()
	c.refs--
	if c.refs == 0 {
		delete(m.inFlight, conversationID)
		m.conversations.Add(conversationID, c)
	}
}

func (m *Manager) load(ctx context.Context, conversationID string) (*questionnaire.Session, error) {
	if m.cfg.Store == nil {
		return questionnaire.NewSession(m.dependencies()), nil
	}
	snapshot, err := m.cfg.Store.Load(ctx, conversationID)
	if errors.Is(err, repositories.ErrNotFound) {
		return questionnaire.NewSession(m.dependencies()), nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "load snapshot")
	}
	session, err := questionnaire.Restore(m.dependencies(), snapshot)
	if err != nil {
		// A corrupt row must not lock the user out. Start over.
		m.logger.LogAttrs(ctx, slog.LevelError, "discarding invalid stored screening", errors.SlogError(err))
		return questionnaire.NewSession(m.dependencies()), nil
	}
	return session, nil
}

func (m *Manager) save(ctx context.Context, conversationID string, session *questionnaire.Session) {
	if m.cfg.Store == nil {
		return
	}
	// The in-memory session stays authoritative, so a failed write is logged and the turn still succeeds.
	if err := m.cfg.Store.Save(context.WithoutCancel(ctx), conversationID, session.Snapshot()); err != nil {
		m.logger.LogAttrs(ctx, slog.LevelError, "failed to persist screening", errors.SlogError(err))
	}
}

func isStartTrigger(message string) bool {
	return strings.EqualFold(strings.TrimSpace(message), StartTrigger)
}

func isOffer(reply string) bool {
	for _, marker := range offerMarkers {
		if strings.Contains(reply, marker) {
			return true
		}
	}
	return false
}

// Chat handles one message of a conversation.
//
// Before a screening starts, the message goes to small talk and a screening begins on the start trigger or when the
// small talk reply offers one. During a screening the message answers the open question. After a screening finished,
// the start trigger begins a fresh one and anything else replays the closing message.
//
// A Reply with Retry set comes with an error matching questionnaire.ErrCapabilityUnavailable.
func (m *Manager) Chat(ctx context.Context, conversationID string, message string) (Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Reply{}, errors.Wrap(ErrEmptyMessage, "chat")
	}
	ctx = logging.WithAttrs(ctx, logging.ConversationAttr(conversationID))

	c, err := m.acquire(ctx, conversationID)
	if err != nil {
		return Reply{}, errors.Wrap(err, "acquire conversation")
	}
	defer m.release(conversationID, c)

	switch phase := c.session.Phase(); {
	case phase == questionnaire.PhaseNotStarted:
		return m.smallTalk(ctx, conversationID, c, message)
	case phase.Terminal() && isStartTrigger(message):
		c.session = questionnaire.NewSession(m.dependencies())
		m.logger.LogAttrs(ctx, slog.LevelInfo, "restarting screening", slog.String("previous_phase", string(phase)))
		return m.start(ctx, conversationID, c, "")
	}

	turn, err := c.session.Respond(ctx, message)
	reply := Reply{
		Message:     turn.Message,
		Interrupted: turn.Interrupted,
		Phase:       turn.Phase,
		Score:       c.session.Snapshot().Score,
		Band:        "",
		Retry:       false,
		Answer:      turn.Answer,
	}
	if turn.Phase == questionnaire.PhaseCompleted {
		reply.Band = questionnaire.BandFor(reply.Score)
	}
	if errors.Is(err, questionnaire.ErrCapabilityUnavailable) {
		reply.Retry = true
		return reply, errors.Wrap(err, "respond")
	}
	if err != nil {
		return Reply{}, errors.Wrap(err, "respond")
	}
	if turn.Answer != nil || turn.Interrupted {
		m.save(ctx, conversationID, c.session)
	}
	return reply, nil
}

func (m *Manager) smallTalk(ctx context.Context, conversationID string, c *conversation, message string) (Reply, error) {
	if isStartTrigger(message) {
		return m.start(ctx, conversationID, c, "")
	}
	if m.filter.Check(message) {
		m.logger.LogAttrs(ctx, slog.LevelWarn, "safety filter triggered before screening")
		return Reply{
			Message:     questionnaire.CrisisMessage,
			Interrupted: true,
			Phase:       questionnaire.PhaseNotStarted,
			Score:       0,
			Band:        "",
			Retry:       false,
			Answer:      nil,
		}, nil
	}

	callCtx := ctx
	if m.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, m.cfg.CallTimeout)
		defer cancel()
	}
	text, err := m.cfg.Chatter.Chat(callCtx, message)
	if err != nil {
		m.logger.LogAttrs(ctx, slog.LevelWarn, "small talk failed", errors.SlogError(err))
		return Reply{
			Message:     questionnaire.RetryMessage,
			Interrupted: false,
			Phase:       questionnaire.PhaseNotStarted,
			Score:       0,
			Band:        "",
			Retry:       true,
			Answer:      nil,
		}, errors.Wrap(errors.Join(questionnaire.ErrCapabilityUnavailable, err), "small talk")
	}
	if isOffer(text) {
		return m.start(ctx, conversationID, c, Intro)
	}
	return Reply{
		Message:     text,
		Interrupted: false,
		Phase:       questionnaire.PhaseNotStarted,
		Score:       0,
		Band:        "",
		Retry:       false,
		Answer:      nil,
	}, nil
}

func (m *Manager) start(ctx context.Context, conversationID string, c *conversation, intro string) (Reply, error) {
	first, err := c.session.Start()
	if err != nil {
		return Reply{}, errors.Wrap(err, "start session")
	}
	m.logger.LogAttrs(ctx, slog.LevelInfo, "screening started")
	m.save(ctx, conversationID, c.session)
	message := first
	if intro != "" {
		message = intro + "\n\n" + first
	}
	return Reply{
		Message:     message,
		Interrupted: false,
		Phase:       c.session.Phase(),
		Score:       0,
		Band:        "",
		Retry:       false,
		Answer:      nil,
	}, nil
}

// Start begins a screening explicitly and returns the first question. It fails with questionnaire.ErrAlreadyStarted
// while a screening is in progress and restarts a finished one.
func (m *Manager) Start(ctx context.Context, conversationID string) (Reply, error) {
	ctx = logging.WithAttrs(ctx, logging.ConversationAttr(conversationID))
	c, err := m.acquire(ctx, conversationID)
	if err != nil {
		return Reply{}, errors.Wrap(err, "acquire conversation")
	}
	defer m.release(conversationID, c)
	if c.session.Phase().Terminal() {
		c.session = questionnaire.NewSession(m.dependencies())
	}
	return m.start(ctx, conversationID, c, "")
}

// Result returns the current state of the conversation's screening or ErrNoScreening if none was started.
func (m *Manager) Result(ctx context.Context, conversationID string) (questionnaire.Snapshot, error) {
	c, err := m.acquire(ctx, conversationID)
	if err != nil {
		return questionnaire.Snapshot{}, errors.Wrap(err, "acquire conversation")
	}
	defer m.release(conversationID, c)
	snapshot := c.session.Snapshot()
	if snapshot.Phase == questionnaire.PhaseNotStarted {
		return questionnaire.Snapshot{}, errors.Wrap(ErrNoScreening, "result")
	}
	return snapshot, nil
}

// Reset tears the conversation down. The next message starts from small talk.
func (m *Manager) Reset(ctx context.Context, conversationID string) error {
	ctx = logging.WithAttrs(ctx, logging.ConversationAttr(conversationID))
	c, err := m.acquire(ctx, conversationID)
	if err != nil {
		return errors.Wrap(err, "acquire conversation")
	}
	defer m.release(conversationID, c)
	c.session = questionnaire.NewSession(m.dependencies())
	if m.cfg.Store != nil {
		if err = m.cfg.Store.Delete(ctx, conversationID); err != nil {
			return errors.Wrap(err, "delete screening")
		}
	}
	m.logger.LogAttrs(ctx, slog.LevelInfo, "conversation reset")
	return nil
}

// Active returns the number of conversations held in memory.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conversations.Len()
}
