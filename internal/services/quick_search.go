package services

import (
	"context"
	"strings"

	"github.com/huangang/testdesk/internal/access"
	"github.com/huangang/testdesk/internal/models"
	"github.com/huangang/testdesk/internal/search"
	"gorm.io/gorm"
)

const quickSearchDefaultLimit = 5

type QuickSearchRequest struct {
	Query string `form:"q" binding:"required,max=200"`
	Limit int    `form:"limit" binding:"omitempty,min=1,max=20"`
}

// Hits is the head of one entity's matches plus the full match count.
type Hits[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
}

type QuickSearchResult struct {
	Projects     Hits[models.Project]     `json:"projects"`
	Requirements Hits[models.Requirement] `json:"requirements"`
	TestPlans    Hits[models.TestPlan]    `json:"test_plans"`
	Documents    Hits[models.Document]    `json:"documents"`
	Comments     Hits[models.Comment]     `json:"comments"`
}

// QuickSearchService runs the scoped search over every entity at once.
type QuickSearchService struct {
	db *gorm.DB
}

func NewQuickSearchService(db *gorm.DB) *QuickSearchService {
	return &QuickSearchService{db: db}
}

func (s *QuickSearchService) Search(ctx context.Context, caller access.Caller, req *QuickSearchRequest) (*QuickSearchResult, error) {
	term := strings.TrimSpace(req.Query)
	if term == "" {
		return nil, invalid("q must not be blank")
	}
	limit := req.Limit
	if limit <= 0 {
		limit = quickSearchDefaultLimit
	}
	params := search.Params{Search: term, Limit: limit}

	var (
		out QuickSearchResult
		err error
	)
	if out.Projects, err = hits[models.Project](ctx, s.db, search.Projects, caller, params); err != nil {
		return nil, err
	}
	if out.Requirements, err = hits[models.Requirement](ctx, s.db, search.Requirements, caller, params); err != nil {
		return nil, err
	}
	if out.TestPlans, err = hits[models.TestPlan](ctx, s.db, search.TestPlans, caller, params); err != nil {
		return nil, err
	}
	if out.Documents, err = hits[models.Document](ctx, s.db, search.Documents, caller, params); err != nil {
		return nil, err
	}
	if out.Comments, err = hits[models.Comment](ctx, s.db, search.Comments, caller, params); err != nil {
		return nil, err
	}
	return &out, nil
}

func hits[T any, PT interface {
	*T
	search.Decorated
}](ctx context.Context, db *gorm.DB, target search.Target, caller access.Caller, params search.Params) (Hits[T], error) {
	res, err := search.Run[T, PT](ctx, db, target, caller, params)
	if err != nil {
		return Hits[T]{}, err
	}
	return Hits[T]{Items: res.Items, Total: res.Total}, nil
}
