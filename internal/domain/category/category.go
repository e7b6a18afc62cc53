package category

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/example/ec-cart/internal/apperr"
	"github.com/example/ec-cart/internal/logger"
	"github.com/google/uuid"
)

var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrInvalidName      = errors.New("name is required")
	ErrInvalidSlug      = errors.New("invalid slug format")
	ErrDuplicateSlug    = errors.New("slug already in use")
	ErrCategoryInUse    = errors.New("category still has products")
)

// slugRegex validates slug format (lowercase letters, numbers, hyphens)
var slugRegex = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

var (
	slugInvalidChars = regexp.MustCompile(`[^a-z0-9-]`)
	slugHyphenRuns   = regexp.MustCompile(`-+`)
)

// Category groups products for browsing.
type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type Repository interface {
	GetCategory(ctx context.Context, id string) (*Category, error)
	ListCategories(ctx context.Context) ([]*Category, error)
	SaveCategory(ctx context.Context, c *Category) error
	// DeleteCategory returns ErrCategoryInUse while products reference id.
	DeleteCategory(ctx context.Context, id string) error
}

type CreateInput struct {
	Name        string `json:"name"`
	Slug        string `json:"slug,omitempty"`
	Description string `json:"description,omitempty"`
}

// Service handles category administration.
type Service struct {
	repo Repository
	log  *logger.Logger
}

func NewService(repo Repository, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{repo: repo, log: log.Component("CategoryService")}
}

// Create creates a new category. The slug is derived from the name when
// left empty.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Category, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Invalid("Category", "name", in.Name, ErrInvalidName)
	}
	slug := in.Slug
	if slug == "" {
		slug = generateSlug(name)
	}
	if !slugRegex.MatchString(slug) {
		return nil, apperr.Invalid("Category", "slug", slug, ErrInvalidSlug)
	}

	c := &Category{
		ID:          uuid.New().String(),
		Name:        name,
		Slug:        slug,
		Description: in.Description,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.SaveCategory(ctx, c); err != nil {
		if errors.Is(err, ErrDuplicateSlug) {
			return nil, apperr.New(apperr.KindConflict, "Category", "slug", slug, ErrDuplicateSlug)
		}
		return nil, fmt.Errorf("save category: %w", err)
	}
	s.log.Info("category created", "category_id", c.ID, "slug", c.Slug)
	return c, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Category, error) {
	c, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return nil, NotFound(id, err)
	}
	return c, nil
}

func (s *Service) List(ctx context.Context) ([]*Category, error) {
	return s.repo.ListCategories(ctx)
}

// Delete removes an empty category. Products must be moved out first.
func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.repo.DeleteCategory(ctx, id)
	switch {
	case err == nil:
		s.log.Info("category deleted", "category_id", id)
		return nil
	case errors.Is(err, ErrCategoryInUse):
		return apperr.New(apperr.KindConflict, "Category", "categoryId", id, ErrCategoryInUse)
	default:
		return NotFound(id, err)
	}
}

// NotFound maps a repository miss to a not_found error and passes anything
// else through.
func NotFound(id string, err error) error {
	if errors.Is(err, ErrCategoryNotFound) {
		return apperr.NotFound("Category", "categoryId", id, ErrCategoryNotFound)
	}
	return err
}

// generateSlug creates a URL-friendly slug from a name
func generateSlug(name string) string {
	slug := strings.ToLower(name)
	slug = strings.ReplaceAll(slug, " ", "-")
	slug = strings.ReplaceAll(slug, "_", "-")
	slug = slugInvalidChars.ReplaceAllString(slug, "")
	slug = slugHyphenRuns.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}
