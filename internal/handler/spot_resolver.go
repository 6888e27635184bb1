package handler

import (
	"context"

	graphql "github.com/graph-gophers/graphql-go"

	"github.com/spotsapp/spots-api/internal/domain/entity"
	"github.com/spotsapp/spots-api/internal/service"
	"github.com/spotsapp/spots-api/pkg/auth"
)

type fileInput struct {
	URI      *string
	Filename *string
	Mime     *string
}

func (f *fileInput) toService() service.FileInput {
	if f == nil {
		return service.FileInput{}
	}
	return service.FileInput{URI: str(f.URI), Filename: str(f.Filename), Mime: str(f.Mime)}
}

type locationInput struct {
	Name      *string
	Latitude  *float64
	Longitude *float64
}

type categoriesInput struct {
	Name  *string
	Image *fileInput
}

type popularCategoriesInput struct {
	Name     *string
	Image    *fileInput
	Price    *string
	Currency *string
}

type spotInput struct {
	ID                *graphql.ID
	ContactNumber     string
	Title             string
	PublicKey         string
	Location          locationInput
	About             *string
	Category          string
	Description       string
	Categories        *[]*categoriesInput
	PopularCategories *[]*popularCategoriesInput
	Image             fileInput
	Video             *fileInput
	Rating            *int32
	Likes             *[]*graphql.ID
	Views             *[]*graphql.ID
}

func (in *spotInput) toService() service.SpotInput {
	if in == nil {
		return service.SpotInput{}
	}
	out := service.SpotInput{
		Title:         in.Title,
		ContactNumber: in.ContactNumber,
		PublicKey:     in.PublicKey,
		Category:      in.Category,
		Description:   in.Description,
		About:         str(in.About),
		Location:      service.LocationInput{Name: str(in.Location.Name)},
		Image:         in.Image.toService(),
		Video:         in.Video.toService(),
		Likes:         ids(in.Likes),
		Views:         ids(in.Views),
	}
	if in.ID != nil {
		out.ID = string(*in.ID)
	}
	if in.Location.Latitude != nil {
		out.Location.Latitude = *in.Location.Latitude
	}
	if in.Location.Longitude != nil {
		out.Location.Longitude = *in.Location.Longitude
	}
	if in.Rating != nil {
		out.Rating = int(*in.Rating)
	}
	if in.Categories != nil {
		for _, c := range *in.Categories {
			if c == nil {
				continue
			}
			out.Categories = append(out.Categories, service.CategoryInput{Name: str(c.Name), Image: c.Image.toService()})
		}
	}
	if in.PopularCategories != nil {
		for _, c := range *in.PopularCategories {
			if c == nil {
				continue
			}
			out.PopularCategories = append(out.PopularCategories, service.PopularCategoryInput{
				Name:     str(c.Name),
				Image:    c.Image.toService(),
				Price:    str(c.Price),
				Currency: str(c.Currency),
			})
		}
	}
	return out
}

type spotIdsInput struct {
	SpotIDs *[]*graphql.ID
	UserID  *graphql.ID
}

func (r *Resolver) GetSpots(ctx context.Context) (*[]*spotResolver, error) {
	return spotList(r.spots.ListSpots(ctx))
}

func (r *Resolver) GetUserSpots(ctx context.Context, args struct{ Creator graphql.ID }) (*[]*spotResolver, error) {
	return spotList(r.spots.ListUserSpots(ctx, string(args.Creator)))
}

func (r *Resolver) GetPopularSpots(ctx context.Context) (*[]*spotResolver, error) {
	return spotList(r.spots.PopularSpots(ctx))
}

func (r *Resolver) CreateOrUpdateSpot(ctx context.Context, args struct{ Input *spotInput }) *spotResponseResolver {
	return &spotResponseResolver{r.spots.CreateOrUpdateSpot(ctx, auth.TokenFromContext(ctx), args.Input.toService())}
}

func (r *Resolver) DeleteSpots(ctx context.Context, args struct{ Input *spotIdsInput }) *userResponseResolver {
	var (
		spotIDs []string
		userID  string
	)
	if args.Input != nil {
		spotIDs = ids(args.Input.SpotIDs)
		if args.Input.UserID != nil {
			userID = string(*args.Input.UserID)
		}
	}
	return &userResponseResolver{r.spots.DeleteSpots(ctx, auth.TokenFromContext(ctx), spotIDs, userID)}
}

func spotList(spots []entity.Spot, err error) (*[]*spotResolver, error) {
	if err != nil {
		return nil, err
	}
	out := make([]*spotResolver, len(spots))
	for i := range spots {
		out[i] = &spotResolver{s: &spots[i]}
	}
	return &out, nil
}

type spotResponseResolver struct {
	r *service.SpotResponse
}

func (s *spotResponseResolver) Spot() *spotResolver {
	if s.r.Spot == nil {
		return nil
	}
	return &spotResolver{s: s.r.Spot}
}

func (s *spotResponseResolver) Code() *int32     { return int32Ptr(s.r.Code) }
func (s *spotResponseResolver) Token() *string   { return nil }
func (s *spotResponseResolver) Message() *string { return optional(s.r.Message) }

type spotResolver struct {
	s *entity.Spot
}

func (s *spotResolver) ID() *graphql.ID       { return optionalID(s.s.ID) }
func (s *spotResolver) Creator() graphql.ID   { return graphql.ID(s.s.Creator) }
func (s *spotResolver) ContactNumber() string { return s.s.ContactNumber }
func (s *spotResolver) PublicKey() string     { return s.s.PublicKey }
func (s *spotResolver) Title() string         { return s.s.Title }
func (s *spotResolver) Location() *locationResolver {
	return &locationResolver{l: s.s.Location}
}
func (s *spotResolver) Category() string    { return s.s.Category }
func (s *spotResolver) About() string       { return s.s.About }
func (s *spotResolver) Description() string { return s.s.Description }
func (s *spotResolver) Image() *string      { return optional(s.s.Image) }
func (s *spotResolver) Video() *string      { return optional(s.s.Video) }
func (s *spotResolver) Rating() *int32      { return int32Ptr(s.s.Rating) }
func (s *spotResolver) Likes() *[]*graphql.ID {
	return idList(s.s.Likes)
}
func (s *spotResolver) LikesCount() *int32 { return int32Ptr(s.s.LikesCount) }
func (s *spotResolver) Views() *[]*graphql.ID {
	return idList(s.s.Views)
}
func (s *spotResolver) ViewsCount() *int32 { return int32Ptr(s.s.ViewsCount) }
func (s *spotResolver) CreatedAt() *string { return formatTime(&s.s.CreatedAt) }
func (s *spotResolver) UpdatedAt() *string { return formatTime(&s.s.UpdatedAt) }

func (s *spotResolver) Categories() *[]*categoryResolver {
	out := make([]*categoryResolver, len(s.s.Categories))
	for i := range s.s.Categories {
		out[i] = &categoryResolver{c: s.s.Categories[i]}
	}
	return &out
}

func (s *spotResolver) PopularCategories() *[]*popularCategoryResolver {
	out := make([]*popularCategoryResolver, len(s.s.PopularCategories))
	for i := range s.s.PopularCategories {
		out[i] = &popularCategoryResolver{c: s.s.PopularCategories[i]}
	}
	return &out
}

type locationResolver struct {
	l entity.Location
}

func (l *locationResolver) Name() *string { return optional(l.l.Name) }
func (l *locationResolver) Latitude() *float64 {
	v := l.l.Latitude
	return &v
}
func (l *locationResolver) Longitude() *float64 {
	v := l.l.Longitude
	return &v
}

type categoryResolver struct {
	c entity.Category
}

func (c *categoryResolver) Name() string  { return c.c.Name }
func (c *categoryResolver) Image() string { return c.c.Image }

type popularCategoryResolver struct {
	c entity.PopularCategory
}

func (c *popularCategoryResolver) Name() string     { return c.c.Name }
func (c *popularCategoryResolver) Image() string    { return c.c.Image }
func (c *popularCategoryResolver) Price() string    { return c.c.Price }
func (c *popularCategoryResolver) Currency() string { return c.c.Currency }
