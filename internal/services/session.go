package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"dragon-treasure/internal/genlayer"
	"dragon-treasure/internal/models"
)

var (
	ErrNoContract      = errors.New("no contract connected")
	ErrClaimInProgress = errors.New("a claim is already in progress")
)

// SessionManager keeps the live GameSession of every active player in memory
// and restores sessions from the store on demand.
type SessionManager struct {
	store           SessionStore
	newChain        ChainFactory
	wait            ReceiptWait
	defaultContract string

	mu       sync.Mutex
	sessions map[string]*GameSession
}

func NewSessionManager(store SessionStore, newChain ChainFactory, wait ReceiptWait, defaultContract string) *SessionManager {
	return &SessionManager{
		store:           store,
		newChain:        newChain,
		wait:            wait,
		defaultContract: defaultContract,
		sessions:        make(map[string]*GameSession),
	}
}

// Create starts a session with a freshly generated account.
func (m *SessionManager) Create(ctx context.Context) (*models.PlayerSession, error) {
	key, err := genlayer.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	account, err := genlayer.ParsePrivateKey(key)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	session := &models.PlayerSession{
		ID:             models.GenerateSessionID(),
		AccountAddress: account.Address.Hex(),
		CreatedAt:      now,
		LastAccessed:   now,
	}

	if err := m.store.StorePlayerSession(ctx, session); err != nil {
		return nil, err
	}
	if err := m.store.StoreAccountKey(ctx, session.ID, key); err != nil {
		return nil, err
	}
	if m.defaultContract != "" {
		if addr, err := models.ValidateContractAddress(m.defaultContract); err == nil {
			if err := m.store.StoreContractAddress(ctx, session.ID, addr); err != nil {
				return nil, err
			}
		}
	}

	log.WithFields(log.Fields{
		"session_id": session.ID,
		"account":    session.AccountAddress,
	}).Info("Player session created")

	return session, nil
}

// Get returns the live session, loading it from the store if needed.
func (m *SessionManager) Get(ctx context.Context, sessionID string) (*GameSession, error) {
	m.mu.Lock()
	gs, ok := m.sessions[sessionID]
	m.mu.Unlock()
	if ok {
		gs.touch()
		return gs, nil
	}

	gs, err := m.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[sessionID]; ok {
		return existing, nil
	}
	m.sessions[sessionID] = gs
	return gs, nil
}

func (m *SessionManager) load(ctx context.Context, sessionID string) (*GameSession, error) {
	player, err := m.store.GetPlayerSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	stored, err := m.store.GetAccountKey(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	key, generated, err := genlayer.EnsurePrivateKey(stored)
	if err != nil {
		return nil, err
	}
	account, err := genlayer.ParsePrivateKey(key)
	if err != nil {
		return nil, err
	}
	if generated {
		if err := m.store.StoreAccountKey(ctx, sessionID, key); err != nil {
			return nil, err
		}
		player.AccountAddress = account.Address.Hex()
		if err := m.store.StorePlayerSession(ctx, player); err != nil {
			return nil, err
		}
	}

	chain, err := m.newChain(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create chain client: %w", err)
	}

	contract, err := m.store.GetContractAddress(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	history, err := m.store.GetHistory(ctx, sessionID, models.MaxHistoryEntries)
	if err != nil {
		return nil, err
	}

	logger := log.WithField("session_id", sessionID)
	activity := NewActivityLog(logger)
	activity.Record(models.LogLevelSystem, "Client initialized", "account "+models.ShortHex(account.Address.Hex(), 10))

	return &GameSession{
		player:   player,
		store:    m.store,
		treasure: NewTreasureService(chain, activity, m.wait),
		activity: activity,
		logger:   logger,
		contract: contract,
		history:  history,
		lastUsed: time.Now(),
	}, nil
}

// Close drops the session from memory and deletes everything stored for it.
func (m *SessionManager) Close(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()

	return m.store.DeletePlayerSession(ctx, sessionID)
}

// CleanupIdle evicts in-memory sessions unused for longer than maxAge. Stored
// state is kept, so an evicted session is reloaded on its next request.
func (m *SessionManager) CleanupIdle(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for id, gs := range m.sessions {
		if gs.Claiming() || gs.idleFor() < maxAge {
			continue
		}
		delete(m.sessions, id)
		evicted++
	}
	if evicted > 0 {
		log.WithField("evicted", evicted).Info("Cleaned up idle sessions")
	}
	return evicted
}

func (m *SessionManager) ActiveSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// GameSession is the state of one player: connected contract, latest stats,
// latest result and plea history.
type GameSession struct {
	player   *models.PlayerSession
	store    SessionStore
	treasure *TreasureService
	activity *ActivityLog
	logger   *log.Entry

	claiming atomic.Bool

	mu       sync.RWMutex
	contract string
	stats    *models.GameStats
	latest   *models.GameResult
	history  []*models.GameHistoryEntry
	lastUsed time.Time
}

func (s *GameSession) ID() string {
	return s.player.ID
}

func (s *GameSession) Player() models.PlayerSession {
	return *s.player
}

func (s *GameSession) Activity() *ActivityLog {
	return s.activity
}

func (s *GameSession) Claiming() bool {
	return s.claiming.Load()
}

func (s *GameSession) ContractAddress() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.contract
}

func (s *GameSession) Stats() *models.GameStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

func (s *GameSession) LatestResult() *models.GameResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// History returns the plea history, newest first.
func (s *GameSession) History() []*models.GameHistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*models.GameHistoryEntry{}, s.history...)
}

// ConnectContract validates and stores the contract address, then loads its
// stats. A stats failure does not undo the connection.
func (s *GameSession) ConnectContract(ctx context.Context, address string) (string, error) {
	addr, err := models.ValidateContractAddress(address)
	if err != nil {
		return "", err
	}
	if err := s.store.StoreContractAddress(ctx, s.ID(), addr); err != nil {
		return "", err
	}

	s.mu.Lock()
	s.contract = addr
	s.stats = nil
	s.mu.Unlock()

	s.activity.Record(models.LogLevelSuccess, "Contract connected", "address: "+models.ShortHex(addr, 10))
	s.activity.Record(models.LogLevelSystem, "GenLayer studionet ready", "")

	if _, err := s.RefreshStats(ctx); err != nil {
		s.logger.WithError(err).Warn("Failed to fetch stats after connecting contract")
	}
	return addr, nil
}

// RefreshStats replaces the cached stats with a fresh read.
func (s *GameSession) RefreshStats(ctx context.Context) (*models.GameStats, error) {
	contract := s.ContractAddress()
	if contract == "" {
		return nil, ErrNoContract
	}

	stats, err := s.treasure.ReadGameStats(ctx, contract)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.stats = stats
	s.mu.Unlock()
	return stats, nil
}

func (s *GameSession) TreasureCount(ctx context.Context) (int64, error) {
	contract := s.ContractAddress()
	if contract == "" {
		return 0, ErrNoContract
	}
	return s.treasure.ReadTreasureCount(ctx, contract)
}

// SubmitPlea runs one claim to completion. Only one claim may be in flight
// per session, and the claim is not cancelled when ctx is.
func (s *GameSession) SubmitPlea(ctx context.Context, plea string) (*models.GameHistoryEntry, error) {
	req := models.PleaRequest{Plea: plea}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	contract := s.ContractAddress()
	if contract == "" {
		return nil, ErrNoContract
	}

	if !s.claiming.CompareAndSwap(false, true) {
		return nil, ErrClaimInProgress
	}
	defer s.claiming.Store(false)

	s.mu.Lock()
	s.latest = nil
	s.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	result, err := s.treasure.ClaimTreasure(ctx, contract, req.Normalized())
	if err != nil {
		return nil, err
	}

	entry := &models.GameHistoryEntry{
		ID:        models.GenerateHistoryID(),
		Plea:      req.Normalized(),
		Result:    *result,
		Timestamp: models.NowMillis(),
	}

	s.mu.Lock()
	s.latest = result
	history := make([]*models.GameHistoryEntry, 0, models.MaxHistoryEntries)
	history = append(history, entry)
	history = append(history, s.history[:min(len(s.history), models.MaxHistoryEntries-1)]...)
	s.history = history
	s.mu.Unlock()

	if err := s.store.PushHistory(ctx, s.ID(), entry); err != nil {
		s.logger.WithError(err).Error("Failed to persist history entry")
	}
	if _, err := s.RefreshStats(ctx); err != nil {
		s.logger.WithError(err).Warn("Failed to refresh stats after claim")
	}

	return entry, nil
}

func (s *GameSession) touch() {
	s.mu.Lock()
	s.lastUsed = time.Now()
	s.mu.Unlock()
}

func (s *GameSession) idleFor() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Since(s.lastUsed)
}
