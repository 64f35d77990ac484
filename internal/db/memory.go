package db

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"squadquiz-backend-go/internal/models"
)

// MemoryStore holds the state behind the in-memory repository
// implementations. It backs STORE_BACKEND=memory for local development
// without Firebase credentials, and the test suite. A single mutex
// serializes operations, which gives the same all-or-nothing semantics the
// Firestore implementations get from RunTransaction.
type MemoryStore struct {
	mu      sync.Mutex
	users   map[string]*models.User
	squads  map[string]*models.Squad
	quizzes map[string]*models.Quiz
	scores  []*models.ScoreEntry
	seq     int64
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[string]*models.User),
		squads:  make(map[string]*models.Squad),
		quizzes: make(map[string]*models.Quiz),
	}
}

func cloneUser(u *models.User) *models.User {
	c := *u
	return &c
}

func cloneSquad(s *models.Squad) *models.Squad {
	c := *s
	c.Members = append([]string(nil), s.Members...)
	return &c
}

func cloneQuiz(q *models.Quiz) *models.Quiz {
	c := *q
	c.Questions = append([]models.Question(nil), q.Questions...)
	return &c
}

// resolveSquad looks a squad up by raw or normalized legacy ID.
// Caller must hold the mutex.
func (m *MemoryStore) resolveSquad(squadID string) (*models.Squad, error) {
	if squad, ok := m.squads[squadID]; ok {
		return squad, nil
	}
	if normalized, ok := normalizeLegacySquadID(squadID); ok {
		if squad, ok := m.squads[normalized]; ok {
			return squad, nil
		}
	}
	return nil, fmt.Errorf("squad '%s': %w", squadID, ErrSquadNotFound)
}

// memoryUserRepository implements UserRepository over a MemoryStore.
type memoryUserRepository struct {
	s *MemoryStore
}

// NewMemoryUserRepository creates a UserRepository backed by store.
func NewMemoryUserRepository(store *MemoryStore) UserRepository {
	return &memoryUserRepository{s: store}
}

func (r *memoryUserRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	if userID == "" {
		return nil, errors.New("userID cannot be empty for GetByID operation")
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user, ok := r.s.users[userID]
	if !ok {
		return nil, fmt.Errorf("user '%s': %w", userID, ErrUserNotFound)
	}
	return cloneUser(user), nil
}

func (r *memoryUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		return errors.New("user ID cannot be empty for Create operation")
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[user.ID]; ok {
		return fmt.Errorf("user with ID '%s' already exists", user.ID)
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.s.users[user.ID] = cloneUser(user)
	return nil
}

func (r *memoryUserRepository) Update(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		return errors.New("user ID cannot be empty for Update operation")
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user.UpdatedAt = time.Now().UTC()
	r.s.users[user.ID] = cloneUser(user)
	return nil
}

func (r *memoryUserRepository) ClearSquadRef(ctx context.Context, userID, squadID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user, ok := r.s.users[userID]
	if !ok {
		return fmt.Errorf("user '%s': %w", userID, ErrUserNotFound)
	}
	if user.SquadID == squadID {
		user.SquadID = ""
		user.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (r *memoryUserRepository) RecordQuizResult(ctx context.Context, userID, quizID string, score int64, day string) (*models.ScoreEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user, ok := r.s.users[userID]
	if !ok {
		return nil, fmt.Errorf("user '%s': %w", userID, ErrUserNotFound)
	}
	if user.LastCompletedDate == day {
		return nil, fmt.Errorf("user '%s' on %s: %w", userID, day, ErrAlreadyCompleted)
	}
	if _, ok := r.s.quizzes[quizID]; !ok {
		return nil, fmt.Errorf("quiz '%s': %w", quizID, ErrQuizNotFound)
	}

	now := time.Now().UTC()
	squadID := user.SquadID
	if squadID != "" {
		squad, ok := r.s.squads[squadID]
		if !ok {
			// Stale reference; self-heal.
			user.SquadID = ""
			squadID = ""
		} else {
			squad.TotalScore += score
			squad.UpdatedAt = now
		}
	}
	user.TotalScore += score
	user.LastCompletedDate = day
	user.UpdatedAt = now

	r.s.seq++
	entry := &models.ScoreEntry{
		ID:          fmt.Sprintf("score_%d", r.s.seq),
		UserID:      userID,
		DisplayName: user.DisplayName,
		SquadID:     squadID,
		QuizID:      quizID,
		Score:       score,
		Day:         day,
		CreatedAt:   now,
	}
	r.s.scores = append(r.s.scores, entry)

	out := *entry
	return &out, nil
}

func (r *memoryUserRepository) TopByScore(ctx context.Context, limit int) ([]*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	users := make([]*models.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		users = append(users, cloneUser(u))
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].TotalScore != users[j].TotalScore {
			return users[i].TotalScore > users[j].TotalScore
		}
		return users[i].ID < users[j].ID
	})
	if len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

// memorySquadRepository implements SquadRepository over a MemoryStore.
type memorySquadRepository struct {
	s *MemoryStore
}

// NewMemorySquadRepository creates a SquadRepository backed by store.
func NewMemorySquadRepository(store *MemoryStore) SquadRepository {
	return &memorySquadRepository{s: store}
}

func (r *memorySquadRepository) CreateWithFounder(ctx context.Context, squad *models.Squad, founderID string) error {
	if founderID == "" {
		return errors.New("founderID cannot be empty for CreateWithFounder operation")
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	nameLower := strings.ToLower(squad.Name)
	for _, existing := range r.s.squads {
		if existing.NameLower == nameLower {
			return fmt.Errorf("squad name '%s': %w", squad.Name, ErrNameTaken)
		}
	}
	founder, ok := r.s.users[founderID]
	if !ok {
		return fmt.Errorf("founder '%s': %w", founderID, ErrUserNotFound)
	}
	if founder.SquadID != "" {
		return fmt.Errorf("founder '%s': %w", founderID, ErrAlreadyInSquad)
	}

	now := time.Now().UTC()
	squad.ID = newSquadID()
	squad.NameLower = nameLower
	squad.OwnerID = founderID
	squad.Members = []string{founderID}
	squad.TotalScore = 0
	squad.CreatedAt = now
	squad.UpdatedAt = now

	r.s.squads[squad.ID] = cloneSquad(squad)
	founder.SquadID = squad.ID
	founder.UpdatedAt = now
	return nil
}

func (r *memorySquadRepository) GetByID(ctx context.Context, squadID string) (*models.Squad, error) {
	if squadID == "" {
		return nil, errors.New("squadID cannot be empty for GetByID operation")
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	squad, err := r.s.resolveSquad(squadID)
	if err != nil {
		return nil, err
	}
	return cloneSquad(squad), nil
}

func (r *memorySquadRepository) Search(ctx context.Context, term string, limit int) ([]*models.Squad, error) {
	needle := strings.ToLower(strings.TrimSpace(term))
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var squads []*models.Squad
	for _, squad := range r.s.squads {
		if strings.Contains(squad.NameLower, needle) {
			squads = append(squads, cloneSquad(squad))
		}
	}
	sort.Slice(squads, func(i, j int) bool { return squads[i].NameLower < squads[j].NameLower })
	if len(squads) > limit {
		squads = squads[:limit]
	}
	return squads, nil
}

func (r *memorySquadRepository) UpdateInfo(ctx context.Context, squadID, requestorID string, name, bio, image *string) (*models.Squad, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	squad, err := r.s.resolveSquad(squadID)
	if err != nil {
		return nil, err
	}
	if squad.OwnerID != requestorID {
		return nil, fmt.Errorf("user '%s' on squad '%s': %w", requestorID, squad.ID, ErrNotOwner)
	}
	if name != nil {
		newLower := strings.ToLower(*name)
		if newLower != squad.NameLower {
			for id, existing := range r.s.squads {
				if id != squad.ID && existing.NameLower == newLower {
					return nil, fmt.Errorf("squad name '%s': %w", *name, ErrNameTaken)
				}
			}
		}
		squad.Name = *name
		squad.NameLower = newLower
	}
	if bio != nil {
		squad.Bio = *bio
	}
	if image != nil {
		squad.Image = *image
	}
	squad.UpdatedAt = time.Now().UTC()
	return cloneSquad(squad), nil
}

func (r *memorySquadRepository) AddMember(ctx context.Context, squadID, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	squad, err := r.s.resolveSquad(squadID)
	if err != nil {
		return err
	}
	user, ok := r.s.users[userID]
	if !ok {
		return fmt.Errorf("user '%s': %w", userID, ErrUserNotFound)
	}
	if squad.HasMember(userID) {
		return fmt.Errorf("user '%s' in squad '%s': %w", userID, squad.ID, ErrAlreadyMember)
	}
	if user.SquadID != "" {
		return fmt.Errorf("user '%s': %w", userID, ErrAlreadyInSquad)
	}
	if len(squad.Members) >= models.MaxSquadMembers {
		return fmt.Errorf("squad '%s': %w", squad.ID, ErrSquadFull)
	}

	now := time.Now().UTC()
	squad.Members = append(squad.Members, userID)
	squad.UpdatedAt = now
	user.SquadID = squad.ID
	user.UpdatedAt = now
	return nil
}

func (r *memorySquadRepository) RemoveMember(ctx context.Context, squadID, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	squad, err := r.s.resolveSquad(squadID)
	if err != nil {
		return err
	}
	if !squad.HasMember(userID) {
		return fmt.Errorf("user '%s' in squad '%s': %w", userID, squad.ID, ErrNotMember)
	}
	if squad.OwnerID == userID {
		return fmt.Errorf("user '%s' owns squad '%s': %w", userID, squad.ID, ErrOwnerCannotLeave)
	}

	now := time.Now().UTC()
	members := squad.Members[:0]
	for _, id := range squad.Members {
		if id != userID {
			members = append(members, id)
		}
	}
	squad.Members = members
	squad.UpdatedAt = now

	if user, ok := r.s.users[userID]; ok && user.SquadID == squad.ID {
		user.SquadID = ""
		user.UpdatedAt = now
	}
	return nil
}

func (r *memorySquadRepository) DeleteWithMembers(ctx context.Context, squadID, requestorID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	squad, err := r.s.resolveSquad(squadID)
	if err != nil {
		return err
	}
	if squad.OwnerID != requestorID {
		return fmt.Errorf("user '%s' on squad '%s': %w", requestorID, squad.ID, ErrNotOwner)
	}

	now := time.Now().UTC()
	for _, memberID := range squad.Members {
		if user, ok := r.s.users[memberID]; ok && user.SquadID == squad.ID {
			user.SquadID = ""
			user.UpdatedAt = now
		}
	}
	delete(r.s.squads, squad.ID)
	return nil
}

func (r *memorySquadRepository) TopByScore(ctx context.Context, limit int) ([]*models.Squad, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	squads := make([]*models.Squad, 0, len(r.s.squads))
	for _, s := range r.s.squads {
		squads = append(squads, cloneSquad(s))
	}
	sort.Slice(squads, func(i, j int) bool {
		if squads[i].TotalScore != squads[j].TotalScore {
			return squads[i].TotalScore > squads[j].TotalScore
		}
		return squads[i].NameLower < squads[j].NameLower
	})
	if len(squads) > limit {
		squads = squads[:limit]
	}
	return squads, nil
}

// memoryQuizRepository implements QuizRepository over a MemoryStore.
type memoryQuizRepository struct {
	s *MemoryStore
}

// NewMemoryQuizRepository creates a QuizRepository backed by store.
func NewMemoryQuizRepository(store *MemoryStore) QuizRepository {
	return &memoryQuizRepository{s: store}
}

func (r *memoryQuizRepository) GetByID(ctx context.Context, quizID string) (*models.Quiz, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	quiz, ok := r.s.quizzes[quizID]
	if !ok {
		return nil, fmt.Errorf("quiz '%s': %w", quizID, ErrQuizNotFound)
	}
	return cloneQuiz(quiz), nil
}

func (r *memoryQuizRepository) List(ctx context.Context) ([]*models.Quiz, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	quizzes := make([]*models.Quiz, 0, len(r.s.quizzes))
	for _, q := range r.s.quizzes {
		quizzes = append(quizzes, cloneQuiz(q))
	}
	sort.Slice(quizzes, func(i, j int) bool { return quizzes[i].ID < quizzes[j].ID })
	return quizzes, nil
}

func (r *memoryQuizRepository) Create(ctx context.Context, quiz *models.Quiz) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.seq++
	quiz.ID = fmt.Sprintf("quiz_%d", r.s.seq)
	quiz.CreatedAt = time.Now().UTC()
	r.s.quizzes[quiz.ID] = cloneQuiz(quiz)
	return quiz.ID, nil
}

// memoryScoreRepository implements ScoreRepository over a MemoryStore.
type memoryScoreRepository struct {
	s *MemoryStore
}

// NewMemoryScoreRepository creates a ScoreRepository backed by store.
func NewMemoryScoreRepository(store *MemoryStore) ScoreRepository {
	return &memoryScoreRepository{s: store}
}

func (r *memoryScoreRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*models.ScoreEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var entries []*models.ScoreEntry
	for i := len(r.s.scores) - 1; i >= 0 && len(entries) < limit; i-- {
		if r.s.scores[i].UserID == userID {
			e := *r.s.scores[i]
			entries = append(entries, &e)
		}
	}
	return entries, nil
}

func (r *memoryScoreRepository) ListByDay(ctx context.Context, day string, limit int) ([]*models.ScoreEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var entries []*models.ScoreEntry
	for _, s := range r.s.scores {
		if s.Day == day {
			e := *s
			entries = append(entries, &e)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Score > entries[j].Score })
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
