package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rhobart/minimart/internal/domain"
	"github.com/shopspring/decimal"
)

// UserStore is a mutex-guarded in-memory domain.UserStore.
type UserStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*domain.User
}

var _ domain.UserStore = (*UserStore)(nil)

// NewUserStore creates an empty in-memory user store.
func NewUserStore() *UserStore {
	return &UserStore{nextID: 1, users: make(map[int64]*domain.User)}
}

// Seed inserts users directly, for tests.
func (s *UserStore) Seed(users ...domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range users {
		if u.ID == 0 {
			u.ID = s.nextID
		}
		if u.ID >= s.nextID {
			s.nextID = u.ID + 1
		}
		cp := u
		s.users[u.ID] = &cp
	}
}

func (s *UserStore) Create(ctx context.Context, input domain.UserInput) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == input.Email {
			return nil, domain.ErrEmailTaken
		}
	}

	u := &domain.User{
		ID:            s.nextID,
		Username:      input.Username,
		Email:         input.Email,
		PasswordHash:  input.PasswordHash,
		Address:       input.Address,
		Contact:       input.Contact,
		Role:          input.Role,
		WalletBalance: decimal.Zero,
		CreatedAt:     time.Now(),
	}
	s.nextID++
	s.users[u.ID] = u

	cp := *u
	return &cp, nil
}

func (s *UserStore) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (s *UserStore) List(ctx context.Context) ([]domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *UserStore) Update(ctx context.Context, id int64, input domain.UserInput, allowRole bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}

	if input.Email != "" {
		for _, other := range s.users {
			if other.ID != id && other.Email == input.Email {
				return domain.ErrEmailTaken
			}
		}
		u.Email = input.Email
	}
	if input.Username != "" {
		u.Username = input.Username
	}
	if input.Address != "" {
		u.Address = input.Address
	}
	if input.Contact != "" {
		u.Contact = input.Contact
	}
	if input.PasswordHash != "" {
		u.PasswordHash = input.PasswordHash
	}
	if allowRole && input.Role != "" {
		u.Role = input.Role
	}
	return nil
}

// DeductWalletBalance mirrors the guarded SQL UPDATE: the deduction happens
// only when the balance covers it, under the store lock.
func (s *UserStore) DeductWalletBalance(ctx context.Context, userID int64, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return domain.Invalid("user.deduct_wallet", "deduction amount must not be negative")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	if u.WalletBalance.LessThan(amount) {
		return domain.ErrInsufficientBalance
	}
	u.WalletBalance = u.WalletBalance.Sub(amount)
	return nil
}
