package listings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"realestate-app/internal/apperr"
	domain "realestate-app/internal/domain/listings"
	"realestate-app/internal/domain/media"
	"realestate-app/internal/infra/filestore"

	"gorm.io/gorm"
)

type Options struct {
	AllowHEIC            bool
	PhotoReadConcurrency int
	// Now defaults to time.Now; tests pin it.
	Now func() time.Time
}

// Engine runs listing queries and admin mutations against an explicit
// database handle and photo store.
type Engine struct {
	db      *gorm.DB
	store   filestore.Store
	photos  *PhotoResolver
	allowed map[string]bool
	now     func() time.Time
}

func NewEngine(db *gorm.DB, store filestore.Store, opts Options) *Engine {
	allowed := map[string]bool{"png": true, "jpg": true, "bmp": true}
	if opts.AllowHEIC {
		allowed["heic"] = true
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		db:      db,
		store:   store,
		photos:  NewPhotoResolver(store, opts.PhotoReadConcurrency),
		allowed: allowed,
		now:     now,
	}
}

func (e *Engine) filtered(ctx context.Context, plan Plan) *gorm.DB {
	q := e.db.WithContext(ctx).Model(&domain.Listing{})
	for _, p := range plan.predicates {
		q = q.Where(p.clause(), p.Value)
	}
	return q
}

// ListPage returns one page of available listings matching plan. A page past
// the end is empty, with totals still filled in.
func (e *Engine) ListPage(ctx context.Context, plan Plan) (Page, error) {
	var total int64
	if err := e.filtered(ctx, plan).Count(&total).Error; err != nil {
		return Page{}, apperr.Internal("Failed to load objects", err)
	}

	var rows []domain.Listing
	q := e.filtered(ctx, plan)
	for _, o := range plan.OrderBy() {
		q = q.Order(o)
	}
	if err := q.Offset(plan.Offset()).Limit(plan.Limit()).Find(&rows).Error; err != nil {
		return Page{}, apperr.Internal("Failed to load objects", err)
	}

	byListing, err := e.photosByListing(ctx, rows)
	if err != nil {
		return Page{}, err
	}

	page := Page{
		Objects:      make([]Item, 0, len(rows)),
		TotalObjects: total,
		TotalPages:   plan.TotalPages(total),
		CurrentPage:  plan.Page(),
	}
	for _, l := range rows {
		photos := byListing[l.ID]
		if photos == nil {
			photos = []PhotoPayload{}
		}
		page.Objects = append(page.Objects, Item{Summary: toSummary(l), Photos: photos})
	}
	return page, nil
}

// photosByListing loads every photo of rows in one query and resolves them
// together, keeping photo id order within each listing.
func (e *Engine) photosByListing(ctx context.Context, rows []domain.Listing) (map[uint][]PhotoPayload, error) {
	out := make(map[uint][]PhotoPayload, len(rows))
	if len(rows) == 0 {
		return out, nil
	}
	ids := make([]uint, 0, len(rows))
	for _, l := range rows {
		ids = append(ids, l.ID)
	}

	var photos []media.Photo
	if err := e.db.WithContext(ctx).
		Where("listing_id IN ?", ids).
		Order("id ASC").
		Find(&photos).Error; err != nil {
		return nil, apperr.Internal("Failed to load photos", err)
	}

	resolved, err := e.photos.resolveAligned(ctx, photos)
	if err != nil {
		return nil, err
	}
	for i, p := range resolved {
		if p == nil {
			continue
		}
		lid := photos[i].ListingID
		out[lid] = append(out[lid], *p)
	}
	return out, nil
}

// GetByID returns the full listing with all its photos, whatever its status.
func (e *Engine) GetByID(ctx context.Context, id uint) (Detail, error) {
	l, err := e.findListing(ctx, e.db, id)
	if err != nil {
		return Detail{}, err
	}

	var photos []media.Photo
	if err := e.db.WithContext(ctx).
		Where("listing_id = ?", id).
		Order("id ASC").
		Find(&photos).Error; err != nil {
		return Detail{}, apperr.Internal("Failed to load photos", err)
	}

	payloads, err := e.photos.Resolve(ctx, photos)
	if err != nil {
		return Detail{}, err
	}
	return toDetail(l, payloads), nil
}

func (e *Engine) findListing(ctx context.Context, db *gorm.DB, id uint) (domain.Listing, error) {
	var l domain.Listing
	if err := db.WithContext(ctx).First(&l, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Listing{}, apperr.NotFound("Object not found")
		}
		return domain.Listing{}, apperr.Internal("Failed to load object", err)
	}
	return l, nil
}

// ShortInfoBatch returns abbreviated records for the ids that exist, in id
// order. Unknown ids are skipped. Only the first photo of each listing is
// loaded.
func (e *Engine) ShortInfoBatch(ctx context.Context, ids []int64) ([]ShortInfo, error) {
	ids = uniqueIDs(ids)
	out := make([]ShortInfo, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var rows []domain.Listing
	if err := e.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, apperr.Internal("Failed to load objects", err)
	}
	if len(rows) == 0 {
		return out, nil
	}

	firstIDs := e.db.Model(&media.Photo{}).
		Select("MIN(id)").
		Where("listing_id IN ?", ids).
		Group("listing_id")

	var first []media.Photo
	if err := e.db.WithContext(ctx).
		Where("id IN (?)", firstIDs).
		Order("id ASC").
		Find(&first).Error; err != nil {
		return nil, apperr.Internal("Failed to load photos", err)
	}

	resolved, err := e.photos.resolveAligned(ctx, first)
	if err != nil {
		return nil, err
	}
	firstByListing := make(map[uint]*PhotoPayload, len(first))
	for i, p := range resolved {
		firstByListing[first[i].ListingID] = p
	}

	for _, l := range rows {
		out = append(out, ShortInfo{Summary: toSummary(l), Photo: firstByListing[l.ID]})
	}
	return out, nil
}

// GetPhoto returns one photo with its content.
func (e *Engine) GetPhoto(ctx context.Context, id uint) (media.Photo, PhotoPayload, error) {
	var p media.Photo
	if err := e.db.WithContext(ctx).First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return media.Photo{}, PhotoPayload{}, apperr.NotFound("Photo not found")
		}
		return media.Photo{}, PhotoPayload{}, apperr.Internal("Failed to load photo", err)
	}
	payload, err := e.photos.ResolveOne(ctx, p)
	if err != nil {
		return media.Photo{}, PhotoPayload{}, err
	}
	return p, payload, nil
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

var errObjectIDs = apperr.Invalid("Invalid object_ids. It should be a list of integers.")

// ParseObjectIDs validates the raw "object_ids" value of a favourites
// request. A missing value is an empty list; anything but an array of
// integers is rejected.
func ParseObjectIDs(raw json.RawMessage) ([]int64, error) {
	if len(raw) == 0 {
		return []int64{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var values []any
	if err := dec.Decode(&values); err != nil || values == nil {
		return nil, errObjectIDs
	}

	ids := make([]int64, 0, len(values))
	for _, v := range values {
		n, ok := v.(json.Number)
		if !ok || strings.ContainsAny(n.String(), ".eE") {
			return nil, errObjectIDs
		}
		id, err := n.Int64()
		if err != nil {
			return nil, errObjectIDs
		}
		ids = append(ids, id)
	}
	return ids, nil
}
