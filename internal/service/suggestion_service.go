package service

import (
	"pai-photo-go/internal/model"
	"pai-photo-go/internal/repository"
)

// SuggestionService 接口定义了 AI 候选标签的业务操作。
type SuggestionService interface {
	ListPending(userID uint) ([]model.AiTagSuggestion, error)
	Adopt(userID, suggestionID uint) (*model.AiTagSuggestion, error)
	Dismiss(userID, suggestionID uint) error
}

// suggestionService 是 SuggestionService 接口的实现。
type suggestionService struct {
	suggestionRepo repository.SuggestionRepository
}

// NewSuggestionService 创建一个新的 SuggestionService 实例。
func NewSuggestionService(suggestionRepo repository.SuggestionRepository) SuggestionService {
	return &suggestionService{suggestionRepo: suggestionRepo}
}

// ListPending 返回用户所有待确认的候选标签。
func (s *suggestionService) ListPending(userID uint) ([]model.AiTagSuggestion, error) {
	return s.suggestionRepo.FindPendingByUserID(userID)
}

// Adopt 采纳一条候选标签：标记采纳并把标签挂到认领它的图片上。
func (s *suggestionService) Adopt(userID, suggestionID uint) (*model.AiTagSuggestion, error) {
	suggestion, err := s.suggestionRepo.FindByID(suggestionID, userID)
	if err != nil {
		return nil, err
	}
	if suggestion.IsAdopted {
		return suggestion, nil
	}
	if err := s.suggestionRepo.Adopt(suggestion); err != nil {
		return nil, err
	}
	return suggestion, nil
}

// Dismiss 忽略一条候选标签。
func (s *suggestionService) Dismiss(userID, suggestionID uint) error {
	suggestion, err := s.suggestionRepo.FindByID(suggestionID, userID)
	if err != nil {
		return err
	}
	return s.suggestionRepo.Delete(suggestion)
}
