package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spotsapp/spots-api/internal/domain/entity"
	"github.com/spotsapp/spots-api/internal/domain/repository"
	apperrors "github.com/spotsapp/spots-api/internal/pkg/errors"
	"github.com/spotsapp/spots-api/pkg/validator"
)

const (
	// PopularSpotsCacheKey holds the cached popular list.
	PopularSpotsCacheKey = "popular_spots"
	// PopularSpotsLimit is the size of the popular list.
	PopularSpotsLimit = 10
	// DefaultPopularSpotsTTL is how long the popular list is served from cache.
	DefaultPopularSpotsTTL = 5 * time.Minute
)

// LocationInput positions a spot.
type LocationInput struct {
	Name      string
	Latitude  float64 `validate:"gte=-90,lte=90" label:"latitude"`
	Longitude float64 `validate:"gte=-180,lte=180" label:"longitude"`
}

// CategoryInput is an offering with an optional picture.
type CategoryInput struct {
	Name  string
	Image FileInput
}

// PopularCategoryInput is a highlighted, priced offering.
type PopularCategoryInput struct {
	Name     string
	Image    FileInput
	Price    string
	Currency string
}

// SpotInput creates a spot, or replaces one when ID is set.
type SpotInput struct {
	ID                string
	Title             string `validate:"required" label:"title"`
	ContactNumber     string `validate:"required" label:"contactNumber"`
	PublicKey         string `validate:"required" label:"publicKey"`
	Category          string `validate:"required" label:"category"`
	Description       string `validate:"required" label:"description"`
	About             string
	Location          LocationInput
	Categories        []CategoryInput
	PopularCategories []PopularCategoryInput
	Image             FileInput
	Video             FileInput
	Rating            int
	Likes             []string
	Views             []string
}

func (in *SpotInput) normalize() {
	in.ID = strings.TrimSpace(in.ID)
	in.Title = strings.TrimSpace(in.Title)
	in.ContactNumber = strings.TrimSpace(in.ContactNumber)
	in.PublicKey = strings.TrimSpace(in.PublicKey)
	in.Category = strings.TrimSpace(in.Category)
	in.Description = strings.TrimSpace(in.Description)
	in.About = strings.TrimSpace(in.About)
	in.Location.Name = strings.TrimSpace(in.Location.Name)
}

// SpotService manages spots and their files.
type SpotService struct {
	spots    repository.SpotRepository
	files    *FileService
	tokens   TokenService
	cache    repository.CacheRepository
	cacheTTL time.Duration
	log      *zap.Logger
}

// NewSpotService creates the spot service. cache may be nil, in which case the
// popular list is always read from storage.
func NewSpotService(
	spots repository.SpotRepository,
	files *FileService,
	tokens TokenService,
	cache repository.CacheRepository,
	cacheTTL time.Duration,
	log *zap.Logger,
) (*SpotService, error) {
	if spots == nil {
		return nil, fmt.Errorf("SpotRepository is required for SpotService")
	}
	if files == nil {
		return nil, fmt.Errorf("FileService is required for SpotService")
	}
	if tokens == nil {
		return nil, fmt.Errorf("TokenService is required for SpotService")
	}
	if cacheTTL <= 0 {
		cacheTTL = DefaultPopularSpotsTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &SpotService{
		spots:    spots,
		files:    files,
		tokens:   tokens,
		cache:    cache,
		cacheTTL: cacheTTL,
		log:      log,
	}, nil
}

// ListSpots returns every spot, newest first.
func (s *SpotService) ListSpots(ctx context.Context) ([]entity.Spot, error) {
	spots, err := s.spots.List(ctx)
	if err != nil {
		s.log.Error("failed to list spots", zap.Error(err))
		return nil, errors.New(InternalErrorMessage)
	}
	return spots, nil
}

// ListUserSpots returns the spots created by creator.
func (s *SpotService) ListUserSpots(ctx context.Context, creator string) ([]entity.Spot, error) {
	spots, err := s.spots.ListByCreator(ctx, strings.TrimSpace(creator))
	if err != nil {
		s.log.Error("failed to list user spots", zap.String("creator", creator), zap.Error(err))
		return nil, errors.New(InternalErrorMessage)
	}
	return spots, nil
}

// PopularSpots returns the newest spots, ties broken by views, from cache when
// possible. Cache failures fall through to storage.
func (s *SpotService) PopularSpots(ctx context.Context) ([]entity.Spot, error) {
	if s.cache != nil {
		var cached []entity.Spot
		err := s.cache.GetJSON(ctx, PopularSpotsCacheKey, &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.log.Warn("popular spots cache read failed", zap.Error(err))
		}
	}

	spots, err := s.spots.ListPopular(ctx, PopularSpotsLimit)
	if err != nil {
		s.log.Error("failed to list popular spots", zap.Error(err))
		return nil, errors.New(InternalErrorMessage)
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, PopularSpotsCacheKey, spots, s.cacheTTL); err != nil {
			s.log.Warn("popular spots cache write failed", zap.Error(err))
		}
	}
	return spots, nil
}

// CreateOrUpdateSpot stores a spot for the verified caller. Files are uploaded
// before the record is written; with an ID only the caller's own spot is replaced.
func (s *SpotService) CreateOrUpdateSpot(ctx context.Context, rawToken string, in SpotInput) *SpotResponse {
	const op = "createOrUpdateSpot"

	claims, err := s.tokens.Verify(rawToken)
	if err != nil {
		return spotFailure(s.log, op, err)
	}

	in.normalize()
	if err := validator.ValidateStruct(in); err != nil {
		return spotFailure(s.log, op, err)
	}
	if in.Image.IsEmpty() {
		return spotFailure(s.log, op, apperrors.New(apperrors.ErrValidation, "image is required"))
	}

	spot, uploaded, err := s.buildSpot(ctx, claims.ID, in)
	if err != nil {
		s.discard(ctx, claims.ID, uploaded)
		return spotFailure(s.log, op, err)
	}

	var previous *entity.Spot
	if spot.ID != "" {
		previous, err = s.spots.UpdateOwned(ctx, spot)
	} else {
		err = s.spots.Create(ctx, spot)
	}
	if err != nil {
		s.discard(ctx, claims.ID, uploaded)
		return spotFailure(s.log, op, err)
	}
	if previous != nil {
		s.discard(ctx, claims.ID, replacedURLs(previous, spot))
	}

	s.invalidatePopular(ctx)
	recordSuccess(op)
	return &SpotResponse{Spot: spot, Code: CodeOK, Message: "Spot saved successfully"}
}

// DeleteSpots removes the caller's spots among ids together with their files.
// userID, when given, must name the caller.
func (s *SpotService) DeleteSpots(ctx context.Context, rawToken string, ids []string, userID string) *AccountResponse {
	const op = "deleteSpots"

	claims, err := s.tokens.Verify(rawToken)
	if err != nil {
		return accountFailure(s.log, op, err)
	}
	if userID = strings.TrimSpace(userID); userID != "" && userID != claims.ID {
		return accountFailure(s.log, op, apperrors.New(apperrors.ErrForbidden, "you can only delete your own spots"))
	}

	ids = compactIDs(ids)
	if len(ids) == 0 {
		return accountFailure(s.log, op, apperrors.New(apperrors.ErrValidation, "spotIds is required"))
	}

	owned, err := s.spots.FindOwned(ctx, ids, claims.ID)
	if err != nil {
		return accountFailure(s.log, op, err)
	}
	deleted, err := s.spots.DeleteOwned(ctx, ids, claims.ID)
	if err != nil {
		return accountFailure(s.log, op, err)
	}
	if deleted == 0 {
		return accountFailure(s.log, op, apperrors.New(apperrors.ErrNotFound, "no matching spots belong to you"))
	}

	var urls []string
	for i := range owned {
		urls = append(urls, owned[i].FileURLs()...)
	}
	if err := s.files.DeleteURLs(ctx, claims.ID, urls); err != nil {
		s.log.Warn("failed to delete some spot files", zap.Error(err))
	}

	s.invalidatePopular(ctx)
	return accountSuccess(op, nil, nil, fmt.Sprintf("%d spot(s) deleted successfully", deleted))
}

// buildSpot uploads every inline file and returns the spot together with the
// URLs that were newly created.
func (s *SpotService) buildSpot(ctx context.Context, creator string, in SpotInput) (*entity.Spot, []string, error) {
	var uploaded []string
	store := func(f FileInput) (string, error) {
		if f.IsEmpty() {
			return "", nil
		}
		url, err := s.files.Store(ctx, creator, f)
		if err != nil {
			return "", err
		}
		if !isRemoteURI(strings.TrimSpace(f.URI)) {
			uploaded = append(uploaded, url)
		}
		return url, nil
	}

	spot := &entity.Spot{
		ID:            in.ID,
		Creator:       creator,
		ContactNumber: in.ContactNumber,
		PublicKey:     in.PublicKey,
		Title:         in.Title,
		Location: entity.Location{
			Name:      in.Location.Name,
			Latitude:  in.Location.Latitude,
			Longitude: in.Location.Longitude,
		},
		About:       in.About,
		Category:    in.Category,
		Description: in.Description,
		Rating:      in.Rating,
		Likes:       in.Likes,
		LikesCount:  len(in.Likes),
		Views:       in.Views,
		ViewsCount:  len(in.Views),
	}

	var err error
	if spot.Image, err = store(in.Image); err != nil {
		return nil, uploaded, err
	}
	if spot.Video, err = store(in.Video); err != nil {
		return nil, uploaded, err
	}
	for _, c := range in.Categories {
		image, err := store(c.Image)
		if err != nil {
			return nil, uploaded, err
		}
		spot.Categories = append(spot.Categories, entity.Category{Name: strings.TrimSpace(c.Name), Image: image})
	}
	for _, c := range in.PopularCategories {
		image, err := store(c.Image)
		if err != nil {
			return nil, uploaded, err
		}
		spot.PopularCategories = append(spot.PopularCategories, entity.PopularCategory{
			Name:     strings.TrimSpace(c.Name),
			Image:    image,
			Price:    strings.TrimSpace(c.Price),
			Currency: strings.TrimSpace(c.Currency),
		})
	}
	return spot, uploaded, nil
}

// discard removes owner's files that no stored spot references any more.
func (s *SpotService) discard(ctx context.Context, owner string, urls []string) {
	if len(urls) == 0 {
		return
	}
	if err := s.files.DeleteURLs(ctx, owner, urls); err != nil {
		s.log.Warn("failed to discard unused files", zap.Error(err))
	}
}

// replacedURLs lists the files of previous that current no longer references.
func replacedURLs(previous, current *entity.Spot) []string {
	kept := make(map[string]struct{})
	for _, u := range current.FileURLs() {
		kept[u] = struct{}{}
	}
	var stale []string
	for _, u := range previous.FileURLs() {
		if _, ok := kept[u]; !ok {
			stale = append(stale, u)
		}
	}
	return stale
}

func (s *SpotService) invalidatePopular(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, PopularSpotsCacheKey); err != nil {
		s.log.Warn("failed to invalidate popular spots cache", zap.Error(err))
	}
}

func compactIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
