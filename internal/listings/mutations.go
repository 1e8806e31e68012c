package listings

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"mime"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"realestate-app/internal/apperr"
	domain "realestate-app/internal/domain/listings"
	"realestate-app/internal/domain/media"
	"realestate-app/internal/logging"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Upload is one photo file taken from a request.
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

type Created struct {
	ObjectID uint   `json:"object_id"`
	PhotoIDs []uint `json:"photo_ids"`
}

var requiredFields = []string{
	"title", "price", "square", "rooms", "total_floors",
	"location", "category", "heating", "code", "type",
}

var errCodeTaken = apperr.Conflict("Object with this code already exists")

// ParseNewListing validates form values for a new listing. Status and
// creation date are left for the caller to set.
func ParseNewListing(form url.Values) (domain.Listing, error) {
	for _, f := range requiredFields {
		if _, ok := form[f]; !ok {
			return domain.Listing{}, apperr.Invalid("Field %s is required", f)
		}
	}

	var l domain.Listing

	l.Title = form.Get("title")
	if !boundedText(l.Title) {
		return domain.Listing{}, apperr.Invalid("Invalid title. Must be a non-empty string with max length 255.")
	}

	price, ok := positiveDecimal(form.Get("price"), maxPrice)
	if !ok {
		return domain.Listing{}, apperr.Invalid("Invalid price. Must be a positive number.")
	}
	l.Price = price

	square, ok := positiveDecimal(form.Get("square"), maxSquare)
	if !ok {
		return domain.Listing{}, apperr.Invalid("Invalid square. Must be a positive number.")
	}
	l.Square = square

	if l.Rooms, ok = positiveInteger(form.Get("rooms")); !ok {
		return domain.Listing{}, apperr.Invalid("Invalid rooms. Must be a positive integer.")
	}
	if l.TotalFloors, ok = positiveInteger(form.Get("total_floors")); !ok {
		return domain.Listing{}, apperr.Invalid("Invalid total_floors. Must be a positive integer.")
	}

	if raw := strings.TrimSpace(form.Get("floor")); raw != "" {
		floor, err := strconv.Atoi(raw)
		if err != nil || floor < 0 {
			return domain.Listing{}, apperr.Invalid("Invalid floor. Must be a non-negative integer.")
		}
		l.Floor = &floor
	}

	l.Location = form.Get("location")
	if !boundedText(l.Location) {
		return domain.Listing{}, apperr.Invalid("Invalid location. Must be a non-empty string with max length 255.")
	}

	l.Category = domain.Category(form.Get("category"))
	if !l.Category.Valid() {
		return domain.Listing{}, apperr.Invalid("Invalid category. Must be '%s' or '%s'.", domain.CategoryNewConstruction, domain.CategoryOldBuilding)
	}

	l.Heating = domain.Heating(form.Get("heating"))
	if !l.Heating.Valid() {
		return domain.Listing{}, apperr.Invalid("Invalid heating. Must be '%s', '%s', or '%s'.", domain.HeatingCentralized, domain.HeatingAutonomous, domain.HeatingIndividual)
	}

	if l.Code, ok = positiveInteger(form.Get("code")); !ok {
		return domain.Listing{}, apperr.Invalid("Invalid code. Must be a positive integer.")
	}

	l.Type = domain.PropertyType(form.Get("type"))
	if !l.Type.Valid() {
		return domain.Listing{}, apperr.Invalid("Invalid type. Must be '%s' or '%s'.", domain.TypeApartment, domain.TypeHouse)
	}

	balcony := "false"
	if _, ok := form["balcony"]; ok {
		balcony = strings.ToLower(form.Get("balcony"))
	}
	switch balcony {
	case "true":
		l.Balcony = true
	case "false":
		l.Balcony = false
	default:
		return domain.Listing{}, apperr.Invalid("Invalid balcony. Must be 'true' or 'false'.")
	}

	if l.Type == domain.TypeHouse && l.Floor != nil && *l.Floor != 0 {
		return domain.Listing{}, apperr.Invalid("For type '%s', floor must be empty or 0.", domain.TypeHouse)
	}

	if d := form.Get("description"); d != "" {
		l.Description = &d
	}
	return l, nil
}

func boundedText(s string) bool {
	return strings.TrimSpace(s) != "" && utf8.RuneCountInString(s) <= 255
}

func positiveFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0, false
	}
	return f, true
}

// Upper bounds of the numeric(15,2) price and numeric(10,2) square columns.
const (
	maxPrice  = 1e13
	maxSquare = 1e8
)

// positiveDecimal parses a money or area value, rounds it to the column's two
// decimals and requires the result to be above zero and below limit.
func positiveDecimal(s string, limit float64) (float64, bool) {
	f, ok := positiveFloat(s)
	if !ok {
		return 0, false
	}
	f = math.Round(f*100) / 100
	if f <= 0 || f >= limit {
		return 0, false
	}
	return f, true
}

func positiveInteger(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func extension(filename string) string {
	i := strings.LastIndex(filename, ".")
	if i < 0 {
		return ""
	}
	return strings.ToLower(filename[i+1:])
}

func (e *Engine) allowedFile(filename string) bool {
	return e.allowed[extension(filename)]
}

func (e *Engine) checkUploads(uploads []Upload) error {
	for _, u := range uploads {
		if !e.allowedFile(u.Filename) {
			return apperr.Invalid("Invalid file format for %s", u.Filename)
		}
	}
	return nil
}

func photoKey(listingID uint, filename string) string {
	return path.Join("listings", strconv.FormatUint(uint64(listingID), 10), uuid.NewString()+"."+extension(filename))
}

func contentType(u Upload) string {
	if ct := mime.TypeByExtension("." + extension(u.Filename)); ct != "" {
		return ct
	}
	if u.ContentType != "" {
		return u.ContentType
	}
	return "application/octet-stream"
}

func (e *Engine) today() time.Time {
	y, m, d := e.now().UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Create stores a new available listing and its photos. Either the listing
// and every photo are persisted, or nothing is: the row inserts share one
// transaction and photo bytes written before a failure are removed.
func (e *Engine) Create(ctx context.Context, form url.Values, uploads []Upload) (Created, error) {
	l, err := ParseNewListing(form)
	if err != nil {
		return Created{}, err
	}
	if err := e.checkUploads(uploads); err != nil {
		return Created{}, err
	}

	l.Status = domain.StatusAvailable
	l.CreatedDate = e.today()

	created := Created{PhotoIDs: make([]uint, 0, len(uploads))}
	var stored []string

	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&domain.Listing{}).Where("code = ?", l.Code).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return errCodeTaken
		}

		if err := tx.Create(&l).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errCodeTaken
			}
			return err
		}

		for _, u := range uploads {
			key := photoKey(l.ID, u.Filename)
			if err := e.store.Put(ctx, key, u.Body, contentType(u)); err != nil {
				return fmt.Errorf("store photo %s: %w", u.Filename, err)
			}
			stored = append(stored, key)

			p := media.Photo{ListingID: l.ID, FilePath: key}
			if err := tx.Create(&p).Error; err != nil {
				return fmt.Errorf("insert photo %s: %w", u.Filename, err)
			}
			created.PhotoIDs = append(created.PhotoIDs, p.ID)
		}
		return nil
	})
	if err != nil {
		e.discard(ctx, stored)
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return Created{}, appErr
		}
		return Created{}, apperr.Internal("Failed to create object", err)
	}

	created.ObjectID = l.ID
	return created, nil
}

// AppendPhoto adds one photo to an existing listing.
func (e *Engine) AppendPhoto(ctx context.Context, listingID uint, u Upload) (media.Photo, error) {
	if err := e.checkUploads([]Upload{u}); err != nil {
		return media.Photo{}, err
	}
	if _, err := e.findListing(ctx, e.db, listingID); err != nil {
		return media.Photo{}, err
	}

	key := photoKey(listingID, u.Filename)
	if err := e.store.Put(ctx, key, u.Body, contentType(u)); err != nil {
		return media.Photo{}, apperr.Internal("Failed to store photo", err)
	}

	p := media.Photo{ListingID: listingID, FilePath: key}
	if err := e.db.WithContext(ctx).Create(&p).Error; err != nil {
		e.discard(ctx, []string{key})
		return media.Photo{}, apperr.Internal("Failed to save photo", err)
	}
	return p, nil
}

// MarkSold moves a listing to sold. alreadySold reports a repeated call,
// which changes nothing.
func (e *Engine) MarkSold(ctx context.Context, id uint) (alreadySold bool, err error) {
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		l, err := e.findListing(ctx, tx, id)
		if err != nil {
			return err
		}
		if l.IsSold() {
			alreadySold = true
			return nil
		}
		return tx.Model(&domain.Listing{}).
			Where("id = ? AND status = ?", id, domain.StatusAvailable).
			Update("status", domain.StatusSold).Error
	})
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return false, appErr
		}
		return false, apperr.Internal("Failed to change status", err)
	}
	return alreadySold, nil
}

// discard removes photo bytes left behind by a failed request.
func (e *Engine) discard(ctx context.Context, keys []string) {
	// the request context may already be cancelled
	cleanup := context.WithoutCancel(ctx)
	for _, k := range keys {
		if err := e.store.Delete(cleanup, k); err != nil {
			logging.FromContext(ctx).Error("failed to remove orphaned photo", "file_path", k, "error", err)
		}
	}
}
