package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/db"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/db/models"
	pkgerrors "github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/errors"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/money"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/pagination"
)

// Service exposes catalog reads for shoppers and writes for the admin.
type Service interface {
	List(ctx context.Context, input ListInput) (*pagination.Page[ProductDTO], error)
	Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	Create(ctx context.Context, input ProductInput) (*ProductDTO, error)
	Update(ctx context.Context, id uuid.UUID, input ProductPatch) (*ProductDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ProductDTO is the public shape of a product.
type ProductDTO struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Price       money.Money `json:"price"`
	Category    string      `json:"category"`
	Image       string      `json:"image,omitempty"`
	Images      []string    `json:"images"`
	Medium      *string     `json:"medium,omitempty"`
	Dimensions  *string     `json:"dimensions,omitempty"`
	IsActive    bool        `json:"is_active"`
}

type ListInput struct {
	Category        string
	IncludeInactive bool
	Limit           int
	Cursor          string
}

// ProductInput is a validated create payload.
type ProductInput struct {
	Name        string
	Description string
	Price       money.Money
	Category    string
	Images      []string
	Medium      *string
	Dimensions  *string
	IsActive    *bool
}

// ProductPatch carries optional updates; nil fields are left alone.
type ProductPatch struct {
	Name        *string
	Description *string
	Price       *money.Money
	Category    *string
	Images      *[]string
	Medium      *string
	Dimensions  *string
	IsActive    *bool
}

type service struct {
	repo Repository
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, input ListInput) (*pagination.Page[ProductDTO], error) {
	filter := listFilter{
		Category:        input.Category,
		IncludeInactive: input.IncludeInactive,
		Limit:           pagination.LimitWithBuffer(input.Limit),
	}
	if input.Cursor != "" {
		cursor, err := pagination.ParseCursor(input.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		filter.Cursor = cursor
	}

	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	page := pagination.Trim(rows, input.Limit, func(p models.Product) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})

	out := &pagination.Page[ProductDTO]{Items: make([]ProductDTO, 0, len(page.Items)), NextCursor: page.NextCursor}
	for i := range page.Items {
		out.Items = append(out.Items, toDTO(&page.Items[i]))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := toDTO(product)
	return &dto, nil
}

func (s *service) Create(ctx context.Context, input ProductInput) (*ProductDTO, error) {
	product := &models.Product{
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
		PriceCents:  input.Price,
		Category:    strings.TrimSpace(input.Category),
		ImageURLs:   cleanImages(input.Images),
		Medium:      input.Medium,
		Dimensions:  input.Dimensions,
		IsActive:    true,
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}
	if err := validateProduct(product); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	dto := toDTO(product)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, patch ProductPatch) (*ProductDTO, error) {
	product, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		product.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		product.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Price != nil {
		product.PriceCents = *patch.Price
	}
	if patch.Category != nil {
		product.Category = strings.TrimSpace(*patch.Category)
	}
	if patch.Images != nil {
		product.ImageURLs = cleanImages(*patch.Images)
	}
	if patch.Medium != nil {
		product.Medium = patch.Medium
	}
	if patch.Dimensions != nil {
		product.Dimensions = patch.Dimensions
	}
	if patch.IsActive != nil {
		product.IsActive = *patch.IsActive
	}
	if err := validateProduct(product); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	dto := toDTO(product)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func validateProduct(p *models.Product) error {
	switch {
	case p.Name == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	case !p.PriceCents.IsPositive():
		return pkgerrors.New(pkgerrors.CodeValidation, "price must be greater than zero")
	case p.Category == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "category is required")
	}
	return nil
}

func cleanImages(images []string) []string {
	out := make([]string, 0, len(images))
	for _, img := range images {
		if img = strings.TrimSpace(img); img != "" {
			out = append(out, img)
		}
	}
	return out
}

func toDTO(p *models.Product) ProductDTO {
	dto := ProductDTO{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.PriceCents,
		Category:    p.Category,
		Images:      p.ImageURLs,
		Medium:      p.Medium,
		Dimensions:  p.Dimensions,
		IsActive:    p.IsActive,
	}
	if dto.Images == nil {
		dto.Images = []string{}
	}
	if len(dto.Images) > 0 {
		dto.Image = dto.Images[0]
	}
	return dto
}
