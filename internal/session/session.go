// Package session implements the remote challenge room protocol: two
// independent session instances, one per participant, coordinating only
// through the shared remote store. There is no server-side referee; the
// design relies on write-ownership partitioning (each player writes only
// its own subtrees, the host alone writes questions and status).
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"whobible/backend/internal/config"
	"whobible/backend/internal/models"
	"whobible/backend/internal/quiz"
	"whobible/backend/internal/store"
)

var (
	ErrNameRequired    = errors.New("player name required")
	ErrInvalidSettings = errors.New("invalid room settings")
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomFull        = errors.New("room full")
	ErrRoomFinished    = errors.New("room finished")
	ErrNoActiveRoom    = errors.New("no active room")
	ErrSessionBusy     = errors.New("session already in a room")
	ErrNoFreeCode      = errors.New("could not allocate an unused room code")
)

const (
	hostSlot  = 1
	guestSlot = 2
)

// Session is one participant's view of a room. Instantiate one per
// connection attempt; it is not a process-wide singleton.
type Session struct {
	store  store.RemoteStore
	source quiz.Source
	events Events
	log    *zap.Logger

	// startMu serializes the host's both-ready check, which can be
	// triggered from SetReady and from the opponent subscription at once.
	startMu sync.Mutex

	mu                 sync.Mutex
	roomCode           string
	slot               int // 0 idle, 1 host, 2 guest
	selfReady          bool
	questionsWritten   bool
	questionsDelivered bool
	subs               []store.Subscription
}

// New builds an idle session. source may be nil for pure guests; events
// and log may be nil.
func New(st store.RemoteStore, source quiz.Source, events Events, log *zap.Logger) *Session {
	if events == nil {
		events = NopEvents{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{store: st, source: source, events: events, log: log}
}

func roomPath(code string) string { return "rooms/" + code }

func playerKey(slot int) string {
	if slot == hostSlot {
		return "player1"
	}
	return "player2"
}

// CreateRoom writes a fresh room record and assumes the host role. The
// room code is generated client-side; creation uses a conditional write
// and regenerates on collision rather than silently overwriting an
// existing room.
func (s *Session) CreateRoom(ctx context.Context, hostName string, settings models.RoomSettings) (models.RoomInfo, error) {
	if hostName == "" {
		return models.RoomInfo{}, ErrNameRequired
	}
	if err := applyDefaults(&settings); err != nil {
		return models.RoomInfo{}, err
	}

	s.mu.Lock()
	if s.slot != 0 {
		s.mu.Unlock()
		return models.RoomInfo{}, ErrSessionBusy
	}
	s.mu.Unlock()

	var code string
	for attempt := 0; attempt < config.RoomCodeAttempts; attempt++ {
		candidate := newRoomCode()
		room := models.Room{
			Code:      candidate,
			Host:      hostName,
			Status:    models.StatusWaiting,
			CreatedAt: time.Now().UnixMilli(),
			Settings:  settings,
			Players: models.RoomPlayers{
				Player1: &models.PlayerState{Name: hostName},
			},
		}
		ok, err := s.store.WriteIfAbsent(ctx, roomPath(candidate), room)
		if err != nil {
			return models.RoomInfo{}, fmt.Errorf("create room: %w", err)
		}
		if ok {
			code = candidate
			break
		}
		s.log.Info("room code collision, regenerating", zap.String("code", candidate))
	}
	if code == "" {
		return models.RoomInfo{}, ErrNoFreeCode
	}

	s.mu.Lock()
	s.roomCode = code
	s.slot = hostSlot
	s.mu.Unlock()

	if err := s.subscribeRoom(ctx, code, guestSlot); err != nil {
		s.LeaveRoom()
		return models.RoomInfo{}, err
	}

	return models.RoomInfo{
		RoomCode: code,
		ShareURL: config.ShareURLBase + "?room=" + code,
	}, nil
}

// JoinRoom occupies the guest slot of an existing room. The existence and
// occupancy checks are reads, but the slot write itself is conditional,
// so two simultaneous joiners cannot both win: the loser gets ErrRoomFull.
func (s *Session) JoinRoom(ctx context.Context, roomCode, playerName string) (*models.Room, error) {
	if playerName == "" {
		return nil, ErrNameRequired
	}
	code := NormalizeRoomCode(roomCode)

	s.mu.Lock()
	if s.slot != 0 {
		s.mu.Unlock()
		return nil, ErrSessionBusy
	}
	s.mu.Unlock()

	var room models.Room
	found, err := s.store.ReadOnce(ctx, roomPath(code), &room)
	if err != nil {
		return nil, fmt.Errorf("join room: %w", err)
	}
	if !found {
		return nil, ErrRoomNotFound
	}
	if room.Players.Player2 != nil {
		return nil, ErrRoomFull
	}
	// Both terminal states reject joins; abandoned rooms are just
	// finished rooms nobody completed.
	if room.Status == models.StatusCompleted || room.Status == models.StatusAbandoned {
		return nil, ErrRoomFinished
	}

	guest := models.PlayerState{Name: playerName}
	ok, err := s.store.WriteIfAbsent(ctx, roomPath(code)+"/players/player2", guest)
	if err != nil {
		return nil, fmt.Errorf("join room: %w", err)
	}
	if !ok {
		return nil, ErrRoomFull
	}

	s.mu.Lock()
	s.roomCode = code
	s.slot = guestSlot
	s.mu.Unlock()

	if err := s.subscribeRoom(ctx, code, hostSlot); err != nil {
		s.LeaveRoom()
		return nil, err
	}

	room.Players.Player2 = &guest
	return &room, nil
}

// SetReady flags this player as ready. The host additionally re-reads the
// room and, once both players are ready, generates the question list and
// flips the room active — the host is the sole authority for that
// transition; the guest just waits on its status subscription.
func (s *Session) SetReady(ctx context.Context) error {
	s.mu.Lock()
	code, slot := s.roomCode, s.slot
	if slot == 0 {
		s.mu.Unlock()
		return ErrNoActiveRoom
	}
	s.selfReady = true
	s.mu.Unlock()

	playerPath := roomPath(code) + "/players/" + playerKey(slot)
	if err := s.store.Update(ctx, playerPath, map[string]any{"ready": true}); err != nil {
		return fmt.Errorf("set ready: %w", err)
	}

	if slot == hostSlot {
		return s.maybeStartQuiz(ctx)
	}
	return nil
}

// maybeStartQuiz is the host's both-ready check. It runs after the host's
// own ready write and again when the opponent's ready flag arrives, so
// the order in which the two players ready up does not matter.
func (s *Session) maybeStartQuiz(ctx context.Context) error {
	s.startMu.Lock()
	defer s.startMu.Unlock()

	s.mu.Lock()
	code := s.roomCode
	ready := s.slot == hostSlot && s.selfReady && !s.questionsWritten
	s.mu.Unlock()
	if !ready {
		return nil
	}

	var room models.Room
	found, err := s.store.ReadOnce(ctx, roomPath(code), &room)
	if err != nil || !found {
		return err
	}
	if room.Status != models.StatusWaiting || room.Questions != nil {
		s.mu.Lock()
		s.questionsWritten = true
		s.mu.Unlock()
		return nil
	}
	p1, p2 := room.Players.Player1, room.Players.Player2
	if p1 == nil || p2 == nil || !p1.Ready || !p2.Ready {
		return nil
	}

	questions, err := s.source.Generate(room.Settings)
	if err != nil {
		return fmt.Errorf("generate questions: %w", err)
	}
	if err := s.store.Write(ctx, roomPath(code)+"/questions", questions); err != nil {
		return fmt.Errorf("write questions: %w", err)
	}
	if err := s.store.Write(ctx, roomPath(code)+"/status", models.StatusActive); err != nil {
		return fmt.Errorf("activate room: %w", err)
	}

	s.mu.Lock()
	s.questionsWritten = true
	s.mu.Unlock()
	return nil
}

// SubmitAnswer records one answered question: score/streak update on the
// player's own record plus an append to its results subtree. The read and
// the writes are separate round trips; at-most-once submission per
// question index is the caller's contract.
func (s *Session) SubmitAnswer(ctx context.Context, questionIndex int, correct bool, timeTaken int) error {
	s.mu.Lock()
	code, slot := s.roomCode, s.slot
	s.mu.Unlock()
	if slot == 0 {
		return ErrNoActiveRoom
	}

	playerPath := roomPath(code) + "/players/" + playerKey(slot)
	var p models.PlayerState
	found, err := s.store.ReadOnce(ctx, playerPath, &p)
	if err != nil {
		return fmt.Errorf("submit answer: %w", err)
	}
	if !found {
		return ErrRoomNotFound
	}

	score, streak := p.Score, 0
	if correct {
		score++
		streak = p.Streak + 1
	}
	err = s.store.Update(ctx, playerPath, map[string]any{
		"score":           score,
		"streak":          streak,
		"currentQuestion": questionIndex + 1,
	})
	if err != nil {
		return fmt.Errorf("submit answer: %w", err)
	}

	record := models.AnswerRecord{
		QuestionIndex: questionIndex,
		Correct:       correct,
		TimeTaken:     timeTaken,
		Timestamp:     time.Now().UnixMilli(),
	}
	resultPath := roomPath(code) + "/results/" + playerKey(slot) + "/" + strconv.Itoa(questionIndex)
	if err := s.store.Write(ctx, resultPath, record); err != nil {
		return fmt.Errorf("submit answer: %w", err)
	}
	return nil
}

// CompleteChallenge marks the room completed (either player may call it)
// and returns the final snapshot for results rendering. No reconciliation
// of the two results subtrees happens here.
func (s *Session) CompleteChallenge(ctx context.Context) (*models.Room, error) {
	s.mu.Lock()
	code, slot := s.roomCode, s.slot
	s.mu.Unlock()
	if slot == 0 {
		return nil, ErrNoActiveRoom
	}

	if err := s.store.Write(ctx, roomPath(code)+"/status", models.StatusCompleted); err != nil {
		return nil, fmt.Errorf("complete challenge: %w", err)
	}
	var room models.Room
	if _, err := s.store.ReadOnce(ctx, roomPath(code), &room); err != nil {
		return nil, fmt.Errorf("complete challenge: %w", err)
	}
	return &room, nil
}

// LeaveRoom detaches all subscriptions and resets local state. Idempotent
// and safe to call when nothing is active. The remote room is left as-is
// for the lifecycle sweeper.
func (s *Session) LeaveRoom() {
	s.mu.Lock()
	subs := s.subs
	s.subs = nil
	s.roomCode = ""
	s.slot = 0
	s.selfReady = false
	s.questionsWritten = false
	s.questionsDelivered = false
	s.mu.Unlock()

	for _, sub := range subs {
		if err := sub.Close(); err != nil {
			s.log.Warn("closing subscription", zap.Error(err))
		}
	}
}

// RoomState re-fetches the full room record. Never cached.
func (s *Session) RoomState(ctx context.Context) (*models.Room, error) {
	s.mu.Lock()
	code, slot := s.roomCode, s.slot
	s.mu.Unlock()
	if slot == 0 {
		return nil, ErrNoActiveRoom
	}

	var room models.Room
	found, err := s.store.ReadOnce(ctx, roomPath(code), &room)
	if err != nil {
		return nil, fmt.Errorf("room state: %w", err)
	}
	if !found {
		return nil, ErrRoomNotFound
	}
	return &room, nil
}

// RoomCode returns the code of the room this session is in, or "".
func (s *Session) RoomCode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomCode
}

// IsHost reports whether this session holds the host slot.
func (s *Session) IsHost() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slot == hostSlot
}

// subscribeRoom establishes the three long-lived listeners: room status,
// the opponent's player record, and the shared question list.
func (s *Session) subscribeRoom(ctx context.Context, code string, opponentSlot int) error {
	base := roomPath(code)

	paths := []struct {
		path string
		fn   func(raw []byte)
	}{
		{base + "/status", s.handleStatus},
		{base + "/players/" + playerKey(opponentSlot), s.handleOpponent},
		{base + "/questions", s.handleQuestions},
	}

	var subs []store.Subscription
	for _, p := range paths {
		sub, err := s.store.Subscribe(ctx, p.path, p.fn)
		if err != nil {
			for _, established := range subs {
				established.Close()
			}
			return fmt.Errorf("subscribe %s: %w", p.path, err)
		}
		subs = append(subs, sub)
	}

	s.mu.Lock()
	s.subs = append(s.subs, subs...)
	s.mu.Unlock()
	return nil
}

func (s *Session) handleStatus(raw []byte) {
	var status string
	if err := json.Unmarshal(raw, &status); err != nil || status == "" {
		return
	}
	s.events.OnStatusChange(status)
}

func (s *Session) handleOpponent(raw []byte) {
	var p *models.PlayerState
	if err := json.Unmarshal(raw, &p); err != nil || p == nil || p.Name == "" {
		return
	}
	s.events.OnOpponentUpdate(*p)

	// The guest may ready up before or after the host; re-run the host's
	// both-ready check whenever the opponent record changes.
	if p.Ready && s.IsHost() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.maybeStartQuiz(ctx); err != nil {
			s.log.Error("starting quiz from opponent update", zap.Error(err))
		}
	}
}

func (s *Session) handleQuestions(raw []byte) {
	var qs []models.Question
	if err := json.Unmarshal(raw, &qs); err != nil || len(qs) == 0 {
		return
	}
	s.mu.Lock()
	if s.questionsDelivered {
		s.mu.Unlock()
		return
	}
	s.questionsDelivered = true
	s.mu.Unlock()
	s.events.OnQuestionsReady(qs)
}

// applyDefaults validates settings and fills zero values.
func applyDefaults(settings *models.RoomSettings) error {
	if settings.Difficulty == "" {
		settings.Difficulty = models.DifficultyMedium
	}
	switch settings.Difficulty {
	case models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard:
	default:
		return ErrInvalidSettings
	}

	if settings.NumQuestions == 0 {
		settings.NumQuestions = config.DefaultQuestions
	}
	if settings.NumQuestions < config.MinQuestions || settings.NumQuestions > config.MaxQuestions {
		return ErrInvalidSettings
	}

	if settings.TimeLimit == 0 {
		settings.TimeLimit = int(config.DefaultTimeLimit.Seconds())
	}
	limit := time.Duration(settings.TimeLimit) * time.Second
	if limit < config.MinTimeLimit || limit > config.MaxTimeLimit {
		return ErrInvalidSettings
	}
	return nil
}
