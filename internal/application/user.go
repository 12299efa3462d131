package app

import (
	"context"
	"errors"
	"sync"

	"leafscan/internal/domain/entity"
	"leafscan/internal/domain/port"
)

// ErrUserBusy для пользователя уже идёт анализ
var ErrUserBusy = errors.New("previous photo is still being processed")

// UserService управляет состоянием диалога с ботом.
// Переходы состояний выполняются под mu, проверка занятости и смена состояния атомарны.
type UserService struct {
	mu   sync.Mutex
	repo port.UserRepository
}

func NewUserService(repo port.UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) Get(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	return s.repo.Get(ctx, userID, chatID)
}

func (s *UserService) SetState(ctx context.Context, userID, chatID int64, state entity.UserState) (*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.setState(ctx, userID, chatID, state)
}

func (s *UserService) BeginCheck(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	return s.SetState(ctx, userID, chatID, entity.StateAwaitingPhoto)
}

func (s *UserService) Cancel(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	return s.SetState(ctx, userID, chatID, entity.StateMainMenu)
}

// StartProcessing переводит пользователя в обработку, если он не занят.
func (s *UserService) StartProcessing(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.repo.Get(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	if user.IsBusy() {
		return nil, ErrUserBusy
	}
	return s.setState(ctx, userID, chatID, entity.StateProcessing)
}

// FinishProcessing возвращает пользователя в меню и запоминает проверку.
func (s *UserService) FinishProcessing(ctx context.Context, userID, chatID int64, recordID string) (*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.setState(ctx, userID, chatID, entity.StateMainMenu)
	if err != nil {
		return nil, err
	}
	if recordID == "" {
		return user, nil
	}
	if err := s.repo.SetLastRecord(ctx, userID, recordID); err != nil {
		return nil, err
	}
	user.LastRecordID = recordID
	return user, nil
}

func (s *UserService) setState(ctx context.Context, userID, chatID int64, state entity.UserState) (*entity.User, error) {
	// Get создаёт пользователя, если его ещё нет
	user, err := s.repo.Get(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateState(ctx, userID, state); err != nil {
		return nil, err
	}

	user.SetState(state)
	return user, nil
}
