package listings

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"realestate-app/internal/apperr"
	domain "realestate-app/internal/domain/listings"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func b64(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }

func TestListPage_EveryResultMatchesFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seed(t, func(l *domain.Listing) { l.Rooms = 4; l.Price = 90000; l.Category = domain.CategoryOldBuilding })
	f.seed(t, func(l *domain.Listing) { l.Rooms = 5; l.Price = 150000; l.Category = domain.CategoryOldBuilding })
	f.seed(t, func(l *domain.Listing) { l.Rooms = 6; l.Price = 110000; l.Category = domain.CategoryOldBuilding; l.Status = domain.StatusSold })
	f.seed(t, func(l *domain.Listing) { l.Rooms = 4; l.Price = 100000; l.Category = domain.CategoryNewConstruction })
	f.seed(t, func(l *domain.Listing) { l.Rooms = 2; l.Price = 95000; l.Category = domain.CategoryOldBuilding })
	f.seed(t, func(l *domain.Listing) { l.Rooms = 4; l.Price = 120000; l.Category = domain.CategoryOldBuilding })

	plan := mustPlan(t, FilterRequest{
		PriceMin:  NewParam("90000"),
		PriceMax:  NewParam("140000"),
		RoomsType: NewParam("4+"),
		Category:  NewParam("old-building"),
		Limit:     NewParam("50"),
	})

	page, err := f.engine.ListPage(ctx, plan)
	require.NoError(t, err)
	require.Len(t, page.Objects, 2)
	assert.Equal(t, int64(2), page.TotalObjects)

	for _, o := range page.Objects {
		var l domain.Listing
		require.NoError(t, f.db.First(&l, o.ID).Error)
		assert.Equal(t, domain.StatusAvailable, l.Status)
		assert.GreaterOrEqual(t, l.Rooms, 4)
		assert.GreaterOrEqual(t, l.Price, 90000.0)
		assert.LessOrEqual(t, l.Price, 140000.0)
		assert.Equal(t, domain.CategoryOldBuilding, l.Category)
	}
}

func TestListPage_Pagination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 7; i++ {
		f.seed(t, nil)
	}
	f.seed(t, func(l *domain.Listing) { l.Status = domain.StatusSold })

	page, err := f.engine.ListPage(ctx, mustPlan(t, FilterRequest{Page: NewParam("3"), Limit: NewParam("3")}))
	require.NoError(t, err)
	assert.Len(t, page.Objects, 1)
	assert.Equal(t, int64(7), page.TotalObjects)
	assert.Equal(t, int64(3), page.TotalPages)
	assert.Equal(t, 3, page.CurrentPage)

	page, err = f.engine.ListPage(ctx, mustPlan(t, FilterRequest{Page: NewParam("9"), Limit: NewParam("3")}))
	require.NoError(t, err)
	assert.NotNil(t, page.Objects)
	assert.Empty(t, page.Objects)
	assert.Equal(t, int64(7), page.TotalObjects)
	assert.Equal(t, int64(3), page.TotalPages)
	assert.Equal(t, 9, page.CurrentPage)
}

func TestListPage_NoMatchesIsEmptyNotError(t *testing.T) {
	f := newFixture(t)
	f.seed(t, nil)

	page, err := f.engine.ListPage(context.Background(), mustPlan(t, FilterRequest{PriceMin: NewParam("1e9")}))
	require.NoError(t, err)
	assert.Empty(t, page.Objects)
	assert.Equal(t, int64(0), page.TotalObjects)
	assert.Equal(t, int64(0), page.TotalPages)

	raw, err := json.Marshal(page)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"objects":[]`)
}

func TestListPage_FarPastTheEnd(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		f.seed(t, nil)
	}

	page, err := f.engine.ListPage(context.Background(), mustPlan(t, FilterRequest{
		Page:  NewParam("1099511627776"),
		Limit: NewParam("2"),
	}))
	require.NoError(t, err)
	assert.Empty(t, page.Objects)
	assert.Equal(t, int64(3), page.TotalObjects)
	assert.Equal(t, int64(2), page.TotalPages)
	assert.Equal(t, 1099511627776, page.CurrentPage)

	_, err = Compile(FilterRequest{Page: NewParam("9223372036854775807"), Limit: NewParam("2")}, 100)
	assert.Equal(t, apperr.KindInvalidRequest, apperr.KindOf(err))
}

func TestListPage_SortingIsStable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	a := f.seed(t, func(l *domain.Listing) { l.Price = 200; l.CreatedDate = day })
	b := f.seed(t, func(l *domain.Listing) { l.Price = 100; l.CreatedDate = day })
	c := f.seed(t, func(l *domain.Listing) { l.Price = 100; l.CreatedDate = day.AddDate(0, 0, 1) })
	d := f.seed(t, func(l *domain.Listing) { l.Price = 300; l.CreatedDate = day.AddDate(0, 0, -1) })

	tests := []struct {
		sort string
		want []uint
	}{
		{"newest", []uint{c.ID, b.ID, a.ID, d.ID}},
		{"oldest", []uint{d.ID, a.ID, b.ID, c.ID}},
		{"cheapest", []uint{b.ID, c.ID, a.ID, d.ID}},
		{"expensive", []uint{d.ID, a.ID, b.ID, c.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.sort, func(t *testing.T) {
			page, err := f.engine.ListPage(ctx, mustPlan(t, FilterRequest{Sort: NewParam(tt.sort), Limit: NewParam("10")}))
			require.NoError(t, err)
			got := make([]uint, 0, len(page.Objects))
			for _, o := range page.Objects {
				got = append(got, o.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestListPage_PhotosInIDOrderSkippingMissing(t *testing.T) {
	f := newFixture(t)
	l := f.seed(t, nil)
	other := f.seed(t, nil)

	p1 := f.addPhoto(t, l.ID, "one")
	f.addPhoto(t, l.ID, "") // row without bytes
	p3 := f.addPhoto(t, l.ID, "three")
	p4 := f.addPhoto(t, other.ID, "four")

	page, err := f.engine.ListPage(context.Background(), mustPlan(t, FilterRequest{Sort: NewParam("oldest")}))
	require.NoError(t, err)
	require.Len(t, page.Objects, 2)

	assert.Equal(t, []PhotoPayload{
		{PhotoID: p1.ID, ImageBase64: b64("one")},
		{PhotoID: p3.ID, ImageBase64: b64("three")},
	}, page.Objects[0].Photos)
	assert.Equal(t, []PhotoPayload{{PhotoID: p4.ID, ImageBase64: b64("four")}}, page.Objects[1].Photos)
}

func TestListPage_ItemFields(t *testing.T) {
	f := newFixture(t)
	f.seed(t, func(l *domain.Listing) {
		l.Title = "Sunny flat"
		l.Price = 100000
		l.Square = 3
		l.CreatedDate = time.Date(2026, 5, 7, 0, 0, 0, 0, time.UTC)
	})

	page, err := f.engine.ListPage(context.Background(), mustPlan(t, FilterRequest{}))
	require.NoError(t, err)
	require.Len(t, page.Objects, 1)

	item := page.Objects[0]
	assert.Equal(t, "Sunny flat", item.Title)
	assert.Equal(t, "2026-05-07", item.CreatedDate)
	require.NotNil(t, item.PricePerSqMeter)
	assert.InDelta(t, 33333.33, *item.PricePerSqMeter, 0.001)
	assert.Equal(t, []PhotoPayload{}, item.Photos)
}

func TestGetByID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	desc := "Quiet street"
	l := f.seed(t, func(l *domain.Listing) {
		l.Description = &desc
		l.Type = domain.TypeHouse
		l.Floor = nil
		l.Balcony = true
		l.Status = domain.StatusSold
	})
	p := f.addPhoto(t, l.ID, "img")

	got, err := f.engine.GetByID(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, l.ID, got.ID)
	assert.Equal(t, &desc, got.Description)
	assert.Equal(t, domain.TypeHouse, got.Type)
	assert.Nil(t, got.Floor)
	assert.True(t, got.Balcony)
	assert.Equal(t, domain.StatusSold, got.Status)
	assert.Equal(t, l.Code, got.Code)
	assert.Equal(t, []PhotoPayload{{PhotoID: p.ID, ImageBase64: b64("img")}}, got.Photos)

	_, err = f.engine.GetByID(ctx, 4242)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Equal(t, "Object not found", apperr.Message(err))
}

func TestGetByID_ZeroAreaOmitsPricePerMeter(t *testing.T) {
	f := newFixture(t)
	l := f.seed(t, func(l *domain.Listing) { l.Square = 0 })

	got, err := f.engine.GetByID(context.Background(), l.ID)
	require.NoError(t, err)
	assert.Nil(t, got.PricePerSqMeter)

	raw, err := json.Marshal(got)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "price_per_sq_meter")
}

func TestShortInfoBatch_SkipsUnknownIDs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	l1 := f.seed(t, nil)
	l2 := f.seed(t, func(l *domain.Listing) { l.Status = domain.StatusSold })
	first := f.addPhoto(t, l1.ID, "first")
	f.addPhoto(t, l1.ID, "second")

	got, err := f.engine.ShortInfoBatch(ctx, []int64{int64(l2.ID), int64(l1.ID), 9999, int64(l1.ID)})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, l1.ID, got[0].ID)
	require.NotNil(t, got[0].Photo)
	assert.Equal(t, PhotoPayload{PhotoID: first.ID, ImageBase64: b64("first")}, *got[0].Photo)

	assert.Equal(t, l2.ID, got[1].ID)
	assert.Nil(t, got[1].Photo)
}

func TestShortInfoBatch_FirstPhotoMissingBytes(t *testing.T) {
	f := newFixture(t)
	l := f.seed(t, nil)
	f.addPhoto(t, l.ID, "")
	f.addPhoto(t, l.ID, "second")

	got, err := f.engine.ShortInfoBatch(context.Background(), []int64{int64(l.ID)})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].Photo)
}

func TestShortInfoBatch_Empty(t *testing.T) {
	f := newFixture(t)

	got, err := f.engine.ShortInfoBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestGetPhoto(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l := f.seed(t, nil)
	p := f.addPhoto(t, l.ID, "bytes")
	missing := f.addPhoto(t, l.ID, "")

	photo, payload, err := f.engine.GetPhoto(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.FilePath, photo.FilePath)
	assert.Equal(t, b64("bytes"), payload.ImageBase64)

	_, _, err = f.engine.GetPhoto(ctx, missing.ID)
	assert.Equal(t, "File not found on server", apperr.Message(err))
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, _, err = f.engine.GetPhoto(ctx, 777)
	assert.Equal(t, "Photo not found", apperr.Message(err))
}

func TestParseObjectIDs(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []int64
		wantErr bool
	}{
		{name: "missing", raw: "", want: []int64{}},
		{name: "empty", raw: `[]`, want: []int64{}},
		{name: "ints", raw: `[1, 2, 9999]`, want: []int64{1, 2, 9999}},
		{name: "null", raw: `null`, wantErr: true},
		{name: "not a list", raw: `"1,2"`, wantErr: true},
		{name: "object", raw: `{"a": 1}`, wantErr: true},
		{name: "string element", raw: `[1, "2"]`, wantErr: true},
		{name: "float element", raw: `[1.5]`, wantErr: true},
		{name: "float that looks whole", raw: `[2.0]`, wantErr: true},
		{name: "bool element", raw: `[true]`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseObjectIDs(json.RawMessage(tt.raw))
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, apperr.KindInvalidRequest, apperr.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
