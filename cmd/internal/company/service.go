package company

import (
	"context"
	"strings"
)

// Service implements company queries on top of a Repository.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// QueryPage returns one page of companies, offset/limit against storage.
func (s *Service) QueryPage(ctx context.Context, q PageQuery) (Page, error) {
	q = q.Normalize()

	total, err := s.repo.Count(ctx, q.Name)
	if err != nil {
		return Page{}, err
	}
	if total == 0 || int64(q.Page-1) > (total-1)/int64(q.Limit) {
		return newPage(q, total, nil), nil
	}

	list, err := s.repo.List(ctx, q.Name, q.Limit, q.offset())
	if err != nil {
		return Page{}, err
	}
	return newPage(q, total, list), nil
}

// Get loads one company.
func (s *Service) Get(ctx context.Context, id int64) (Company, error) {
	if id <= 0 {
		return Company{}, ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

// CompanyName returns the display name of company id.
func (s *Service) CompanyName(ctx context.Context, id int64) (string, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return c.Name, nil
}

// Create adds a company. Name is required.
func (s *Service) Create(ctx context.Context, c Company) (Company, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return Company{}, ErrInvalidInput
	}
	return s.repo.Create(ctx, c)
}
