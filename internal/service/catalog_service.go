package service

import (
	"context"
	"errors"
	"strings"

	"storefront/internal/domain"
	"storefront/internal/repository"
)

// CatalogService инкапсулирует чтение каталога и глоссария витрины
type CatalogService struct {
	repo    repository.CatalogRepository
	profile *domain.Profile
}

func NewCatalogService(repo repository.CatalogRepository, profile *domain.Profile) *CatalogService {
	return &CatalogService{repo: repo, profile: profile}
}

var ErrInvalidInput = errors.New("invalid input")

// Profile витрина, из которой загружен каталог
func (s *CatalogService) Profile() *domain.Profile { return s.profile }

func (s *CatalogService) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.GetByID(ctx, id)
}

func (s *CatalogService) List(ctx context.Context, f repository.ProductFilter) ([]domain.Product, error) {
	return s.repo.List(ctx, f)
}

// FindByName поиск товара по произнесённому названию
func (s *CatalogService) FindByName(ctx context.Context, name string) (*domain.Product, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.FindByName(ctx, name)
}

// Glossary поиск ингредиентов по имени или функции
func (s *CatalogService) Glossary(ctx context.Context, term string) ([]domain.Ingredient, error) {
	return s.repo.Ingredients(ctx, repository.IngredientFilter{Term: strings.TrimSpace(term)})
}
