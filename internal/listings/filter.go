package listings

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"realestate-app/internal/apperr"
	domain "realestate-app/internal/domain/listings"
)

const (
	DefaultPage  = 1
	DefaultLimit = 5
)

// Param is a loosely typed request value. Clients send numbers either as
// JSON numbers or as strings; null and a missing key both mean "not set".
type Param struct {
	raw string
	set bool
}

func NewParam(s string) Param {
	return Param{raw: s, set: true}
}

func (p Param) IsSet() bool { return p.set }

func (p Param) String() string { return p.raw }

func (p *Param) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*p = Param{}
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*p = Param{raw: s, set: true}
		return nil
	}
	// numbers, booleans, objects: keep the literal and let Compile reject
	// whatever does not parse
	*p = Param{raw: string(b), set: true}
	return nil
}

// FilterRequest is the body of a listing search.
type FilterRequest struct {
	Page  Param `json:"page"`
	Limit Param `json:"limit"`
	Sort  Param `json:"sort"`

	FloorMin  Param `json:"floor_min"`
	FloorMax  Param `json:"floor_max"`
	SquareMin Param `json:"square_min"`
	SquareMax Param `json:"square_max"`
	PriceMin  Param `json:"price_min"`
	PriceMax  Param `json:"price_max"`
	RoomsMin  Param `json:"rooms_min"`
	RoomsMax  Param `json:"rooms_max"`

	RoomsType Param `json:"rooms_type"`
	Category  Param `json:"category"`
	Type      Param `json:"type"`
}

type SortKey string

const (
	SortNewest    SortKey = "newest"
	SortOldest    SortKey = "oldest"
	SortCheapest  SortKey = "cheapest"
	SortExpensive SortKey = "expensive"
)

func parseSort(p Param) (SortKey, bool) {
	if !p.IsSet() {
		return SortNewest, true
	}
	switch p.raw {
	case "newest":
		return SortNewest, true
	case "oldest":
		return SortOldest, true
	case "cheapest":
		return SortCheapest, true
	case "expensive", "most-expensive":
		return SortExpensive, true
	}
	return "", false
}

// orderBy lists ORDER BY terms. The id term keeps pages stable when the
// primary key ties.
func (s SortKey) orderBy() []string {
	switch s {
	case SortOldest:
		return []string{"created_date ASC", "id ASC"}
	case SortCheapest:
		return []string{"price ASC", "id ASC"}
	case SortExpensive:
		return []string{"price DESC", "id ASC"}
	default:
		return []string{"created_date DESC", "id DESC"}
	}
}

// Predicate is one "column op value" condition. Column and Op only ever
// come from the constants in this file.
type Predicate struct {
	Column string
	Op     string
	Value  any
}

func (p Predicate) clause() string {
	return p.Column + " " + p.Op + " ?"
}

// Plan is a validated search: predicates, ordering and a page window. It is
// only built by Compile and has no mutators.
type Plan struct {
	predicates []Predicate
	sort       SortKey
	page       int
	limit      int
}

func (p Plan) Predicates() []Predicate {
	out := make([]Predicate, len(p.predicates))
	copy(out, p.predicates)
	return out
}

func (p Plan) Sort() SortKey     { return p.sort }
func (p Plan) Page() int         { return p.page }
func (p Plan) Limit() int        { return p.limit }
func (p Plan) Offset() int       { return (p.page - 1) * p.limit }
func (p Plan) OrderBy() []string { return p.sort.orderBy() }

// TotalPages is ceil(total/limit).
func (p Plan) TotalPages(total int64) int64 {
	l := int64(p.limit)
	return (total + l - 1) / l
}

type rangeFilter struct {
	name     string
	column   string
	min, max Param
}

// Compile validates req and turns it into a Plan. maxLimit <= 0 disables
// the page size cap. Every failure is an apperr InvalidRequest.
func Compile(req FilterRequest, maxLimit int) (Plan, error) {
	page, err := positiveInt(req.Page, "page", DefaultPage)
	if err != nil {
		return Plan{}, err
	}
	limit, err := positiveInt(req.Limit, "limit", DefaultLimit)
	if err != nil {
		return Plan{}, err
	}
	if maxLimit > 0 && limit > maxLimit {
		return Plan{}, apperr.Invalid("limit cannot be greater than %d", maxLimit)
	}
	// the row offset (page-1)*limit has to fit an int
	if page-1 > math.MaxInt/limit {
		return Plan{}, apperr.Invalid("page must be a positive integer")
	}

	sort, ok := parseSort(req.Sort)
	if !ok {
		return Plan{}, apperr.Invalid("Invalid sort parameter")
	}

	plan := Plan{
		predicates: []Predicate{{Column: "status", Op: "=", Value: string(domain.StatusAvailable)}},
		sort:       sort,
		page:       page,
		limit:      limit,
	}

	ranges := []rangeFilter{
		{name: "floor", column: "floor", min: req.FloorMin, max: req.FloorMax},
		{name: "square", column: "square", min: req.SquareMin, max: req.SquareMax},
		{name: "price", column: "price", min: req.PriceMin, max: req.PriceMax},
		{name: "rooms", column: "rooms", min: req.RoomsMin, max: req.RoomsMax},
	}
	for _, rf := range ranges {
		preds, err := rf.compile()
		if err != nil {
			return Plan{}, err
		}
		plan.predicates = append(plan.predicates, preds...)
	}

	if req.RoomsType.IsSet() {
		pred, err := roomsBucket(req.RoomsType.raw)
		if err != nil {
			return Plan{}, err
		}
		plan.predicates = append(plan.predicates, pred)
	}

	if c := req.Category.raw; req.Category.IsSet() && c != "" {
		if !domain.Category(c).Valid() {
			return Plan{}, apperr.Invalid("Invalid category. Must be '%s' or '%s'.", domain.CategoryNewConstruction, domain.CategoryOldBuilding)
		}
		plan.predicates = append(plan.predicates, Predicate{Column: "category", Op: "=", Value: c})
	}

	if t := req.Type.raw; req.Type.IsSet() && t != "" {
		if !domain.PropertyType(t).Valid() {
			return Plan{}, apperr.Invalid("Invalid type. Must be '%s' or '%s'.", domain.TypeApartment, domain.TypeHouse)
		}
		plan.predicates = append(plan.predicates, Predicate{Column: "type", Op: "=", Value: t})
	}

	return plan, nil
}

func (rf rangeFilter) compile() ([]Predicate, error) {
	var preds []Predicate
	var lo, hi float64
	var err error

	if rf.min.IsSet() {
		if lo, err = parseNumber(rf.min); err != nil {
			return nil, apperr.Invalid("%s_min must be a valid number", rf.name)
		}
		preds = append(preds, Predicate{Column: rf.column, Op: ">=", Value: lo})
	}
	if rf.max.IsSet() {
		if hi, err = parseNumber(rf.max); err != nil {
			return nil, apperr.Invalid("%s_max must be a valid number", rf.name)
		}
		preds = append(preds, Predicate{Column: rf.column, Op: "<=", Value: hi})
	}
	if rf.min.IsSet() && rf.max.IsSet() && lo > hi {
		return nil, apperr.Invalid("%s_min cannot be greater than %s_max", rf.name, rf.name)
	}
	return preds, nil
}

func parseNumber(p Param) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(p.raw), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not a finite number: %q", p.raw)
	}
	return f, nil
}

func positiveInt(p Param, name string, def int) (int, error) {
	if !p.IsSet() {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(p.raw))
	if err != nil || n < 1 {
		return 0, apperr.Invalid("%s must be a positive integer", name)
	}
	return n, nil
}

func roomsBucket(v string) (Predicate, error) {
	switch strings.TrimSpace(v) {
	case "1":
		return Predicate{Column: "rooms", Op: "=", Value: 1}, nil
	case "2":
		return Predicate{Column: "rooms", Op: "=", Value: 2}, nil
	case "3":
		return Predicate{Column: "rooms", Op: "=", Value: 3}, nil
	case "4+":
		return Predicate{Column: "rooms", Op: ">=", Value: 4}, nil
	}
	return Predicate{}, apperr.Invalid("Invalid rooms_type. Must be 1, 2, 3 or 4+.")
}
