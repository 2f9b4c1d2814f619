// Package search runs the role-scoped paginated listing shared by every
// list endpoint: natural filter, visibility, free text, count, page, and
// display-ID decoration.
package search

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/huangang/testdesk/internal/access"
	"github.com/huangang/testdesk/internal/models"
	"gorm.io/gorm"
)

// Decorated is implemented by models embedding models.Sequenced.
type Decorated interface {
	GetSeq() int
	SetDisplayID(string)
}

// Target describes one searchable entity.
type Target struct {
	EntityType    string   // key of the IDFormat row
	Table         string   // projects, or a table with a project_id column
	SearchColumns []string // matched case-insensitively, OR-ed
	StatusColumn  string   // boolean column filtered by Params.Status, optional
	Preloads      []string
	Filter        func(*gorm.DB) *gorm.DB // extra natural filter, optional
}

// InProject narrows a child target to one project.
func (t Target) InProject(projectID uint) Target {
	return t.Where(t.Table+".project_id = ?", projectID)
}

// Where returns a copy of t with an additional condition.
func (t Target) Where(query string, args ...interface{}) Target {
	prev := t.Filter
	t.Filter = func(db *gorm.DB) *gorm.DB {
		if prev != nil {
			db = prev(db)
		}
		return db.Where(query, args...)
	}
	return t
}

func (t Target) isProject() bool { return t.Table == "projects" }

var (
	Projects = Target{
		EntityType:    models.EntityProject,
		Table:         "projects",
		SearchColumns: []string{"title", "description"},
		StatusColumn:  "is_active",
		Preloads:      []string{"Owner"},
	}
	Requirements = Target{
		EntityType:    models.EntityRequirement,
		Table:         "requirements",
		SearchColumns: []string{"title", "description"},
		Preloads:      []string{"Creator", "Assignee"},
	}
	TestPlans = Target{
		EntityType:    models.EntityTestPlan,
		Table:         "test_plans",
		SearchColumns: []string{"title", "description"},
		Preloads:      []string{"Creator", "Assignee"},
	}
	Documents = Target{
		EntityType:    models.EntityDocument,
		Table:         "documents",
		SearchColumns: []string{"name", "file_name", "description"},
		Preloads:      []string{"Creator"},
	}
	Comments = Target{
		EntityType:    models.EntityComment,
		Table:         "comments",
		SearchColumns: []string{"content"},
		Preloads:      []string{"Author"},
	}
)

// Params are the caller supplied inputs. Status is ignored for targets
// without a StatusColumn.
type Params struct {
	Search string
	Skip   int
	Limit  int
	Status *bool
}

type Result[T any] struct {
	Items []T
	Total int64
}

// Run returns one page of the entities of target visible to caller, newest
// first, plus the size of the whole filtered set.
func Run[T any, PT interface {
	*T
	Decorated
}](ctx context.Context, db *gorm.DB, target Target, caller access.Caller, p Params) (*Result[T], error) {
	if p.Skip < 0 {
		p.Skip = 0
	}
	if p.Limit <= 0 {
		p.Limit = DefaultPageSize
	}

	db = db.WithContext(ctx)

	format, err := LoadFormat(db, target.EntityType)
	if err != nil {
		return nil, err
	}

	q := db.Model(new(T)).Scopes(Scope(target, caller))
	if target.Filter != nil {
		q = q.Scopes(target.Filter)
	}
	if p.Status != nil && target.StatusColumn != "" {
		q = q.Where(target.Table+"."+target.StatusColumn+" = ?", *p.Status)
	}
	if term := strings.TrimSpace(p.Search); term != "" {
		q = q.Where(textCondition(db, target, format, term))
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, Classify(err)
	}

	items := make([]T, 0, p.Limit)
	if total == 0 || int64(p.Skip) >= total {
		return &Result[T]{Items: items, Total: total}, nil
	}

	fetch := q.Session(&gorm.Session{}).
		Order(target.Table + ".created_at DESC").
		Order(target.Table + ".id DESC").
		Offset(p.Skip).
		Limit(p.Limit)
	for _, preload := range target.Preloads {
		fetch = fetch.Preload(preload)
	}
	if err := fetch.Find(&items).Error; err != nil {
		return nil, Classify(err)
	}

	for i := range items {
		Decorate(format, PT(&items[i]))
	}
	return &Result[T]{Items: items, Total: total}, nil
}

// Scope applies the visibility rule appropriate for target's table.
func Scope(target Target, caller access.Caller) func(*gorm.DB) *gorm.DB {
	if target.isProject() {
		return access.ProjectScope(caller)
	}
	return access.ChildScope(caller, target.Table)
}

// Decorate stamps the formatted display ID on each record.
func Decorate(format models.IDFormat, records ...Decorated) {
	for _, r := range records {
		r.SetDisplayID(format.Format(r.GetSeq()))
	}
}

// LoadFormat reads the IDFormat row of entityType, falling back to the
// built-in default when the row is missing.
func LoadFormat(db *gorm.DB, entityType string) (models.IDFormat, error) {
	var format models.IDFormat
	err := db.Where("entity_type = ?", entityType).First(&format).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.DefaultIDFormat(entityType), nil
	}
	if err != nil {
		return models.IDFormat{}, Classify(err)
	}
	return format, nil
}

const likeEscape = "!"

// escapeLike neutralises LIKE wildcards in user input.
func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}

func textCondition(db *gorm.DB, target Target, format models.IDFormat, term string) *gorm.DB {
	pattern := "%" + escapeLike(strings.ToLower(term)) + "%"

	cond := db.Session(&gorm.Session{NewDB: true})
	for i, col := range target.SearchColumns {
		clause := fmt.Sprintf("LOWER(%s.%s) LIKE ? ESCAPE '%s'", target.Table, col, likeEscape)
		if i == 0 {
			cond = cond.Where(clause, pattern)
		} else {
			cond = cond.Or(clause, pattern)
		}
	}
	if seq, ok := ParseDisplayID(format, term); ok {
		cond = cond.Or(target.Table+".seq = ?", seq)
	}
	return cond
}

// ParseDisplayID extracts the sequence from a term shaped like the
// format's display IDs, e.g. "prj-0007" -> 7.
func ParseDisplayID(format models.IDFormat, term string) (int, bool) {
	term = strings.TrimSpace(term)
	if format.Prefix != "" {
		if len(term) <= len(format.Prefix) || !strings.EqualFold(term[:len(format.Prefix)], format.Prefix) {
			return 0, false
		}
		term = term[len(format.Prefix):]
	}
	for _, r := range term {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	seq, err := strconv.Atoi(term)
	if err != nil || seq <= 0 {
		return 0, false
	}
	return seq, true
}
