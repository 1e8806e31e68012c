package listings

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"realestate-app/database"
	domain "realestate-app/internal/domain/listings"
	"realestate-app/internal/domain/media"
	"realestate-app/internal/infra/filestore"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2026, 10, 19, 15, 30, 0, 0, time.UTC)

type fixture struct {
	db     *gorm.DB
	store  *filestore.Local
	root   string
	engine *Engine
	code   int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	db, err := gorm.Open(sqlite.Open(filepath.Join(dir, "listings.db")), database.Config())
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	root := filepath.Join(dir, "upload")
	store, err := filestore.NewLocal(root)
	require.NoError(t, err)

	return &fixture{
		db:    db,
		store: store,
		root:  root,
		engine: NewEngine(db, store, Options{
			PhotoReadConcurrency: 3,
			Now:                  func() time.Time { return fixedNow },
		}),
	}
}

// seed inserts an available apartment; mutate adjusts it first.
func (f *fixture) seed(t *testing.T, mutate func(*domain.Listing)) domain.Listing {
	t.Helper()
	f.code++
	floor := 2
	l := domain.Listing{
		Title:       fmt.Sprintf("Listing %d", f.code),
		Type:        domain.TypeApartment,
		Rooms:       2,
		Floor:       &floor,
		TotalFloors: 9,
		Location:    "Kyiv",
		Category:    domain.CategoryNewConstruction,
		Heating:     domain.HeatingCentralized,
		Square:      50,
		Price:       100000,
		Status:      domain.StatusAvailable,
		Code:        1000 + f.code,
		CreatedDate: time.Date(2026, 1, f.code, 0, 0, 0, 0, time.UTC),
	}
	if mutate != nil {
		mutate(&l)
	}
	require.NoError(t, f.db.Create(&l).Error)
	return l
}

// addPhoto stores content (when non-empty) and inserts the photo row.
func (f *fixture) addPhoto(t *testing.T, listingID uint, content string) media.Photo {
	t.Helper()
	key := fmt.Sprintf("listings/%d/%d-%d.jpg", listingID, listingID, time.Now().UnixNano())
	if content != "" {
		require.NoError(t, f.store.Put(context.Background(), key, strings.NewReader(content), "image/jpeg"))
	}
	p := media.Photo{ListingID: listingID, FilePath: key}
	require.NoError(t, f.db.Create(&p).Error)
	return p
}

func (f *fixture) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}

func mustPlan(t *testing.T, req FilterRequest) Plan {
	t.Helper()
	plan, err := Compile(req, 100)
	require.NoError(t, err)
	return plan
}

func intPtr(n int) *int { return &n }
