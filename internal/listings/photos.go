package listings

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"realestate-app/internal/apperr"
	"realestate-app/internal/domain/media"
	"realestate-app/internal/infra/filestore"
	"realestate-app/internal/logging"

	"golang.org/x/sync/errgroup"
)

const defaultPhotoConcurrency = 8

// PhotoResolver loads photo bytes from the store and base64-encodes them.
// There is no cache; every call reads the store.
type PhotoResolver struct {
	store       filestore.Store
	concurrency int
}

func NewPhotoResolver(store filestore.Store, concurrency int) *PhotoResolver {
	if concurrency <= 0 {
		concurrency = defaultPhotoConcurrency
	}
	return &PhotoResolver{store: store, concurrency: concurrency}
}

// Resolve encodes photos in input order. Photos whose content is missing
// from the store are left out; any other read error fails the call.
func (r *PhotoResolver) Resolve(ctx context.Context, photos []media.Photo) ([]PhotoPayload, error) {
	aligned, err := r.resolveAligned(ctx, photos)
	if err != nil {
		return nil, err
	}
	out := make([]PhotoPayload, 0, len(aligned))
	for _, p := range aligned {
		if p != nil {
			out = append(out, *p)
		}
	}
	return out, nil
}

// ResolveOne returns NotFound when the photo content is missing.
func (r *PhotoResolver) ResolveOne(ctx context.Context, photo media.Photo) (PhotoPayload, error) {
	p, err := r.load(ctx, photo)
	if err != nil {
		return PhotoPayload{}, err
	}
	if p == nil {
		return PhotoPayload{}, apperr.NotFound("File not found on server")
	}
	return *p, nil
}

// resolveAligned returns one entry per input photo, nil where the content
// is missing. Reads run concurrently; result positions follow the input.
func (r *PhotoResolver) resolveAligned(ctx context.Context, photos []media.Photo) ([]*PhotoPayload, error) {
	out := make([]*PhotoPayload, len(photos))
	if len(photos) == 0 {
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, photo := range photos {
		i, photo := i, photo
		g.Go(func() error {
			p, err := r.load(gctx, photo)
			if err != nil {
				return err
			}
			out[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PhotoResolver) load(ctx context.Context, photo media.Photo) (*PhotoPayload, error) {
	data, err := r.store.Get(ctx, photo.FilePath)
	if err != nil {
		if errors.Is(err, filestore.ErrNotExist) {
			logging.FromContext(ctx).Warn("photo content missing, skipping",
				"photo_id", photo.ID,
				"object_id", photo.ListingID,
				"file_path", photo.FilePath,
			)
			return nil, nil
		}
		return nil, apperr.Internal("Failed to read photo", fmt.Errorf("photo %d: %w", photo.ID, err))
	}
	return &PhotoPayload{
		PhotoID:     photo.ID,
		ImageBase64: base64.StdEncoding.EncodeToString(data),
	}, nil
}
