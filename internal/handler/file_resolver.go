package handler

import (
	"context"

	"github.com/spotsapp/spots-api/internal/service"
	"github.com/spotsapp/spots-api/pkg/auth"
)

func (r *Resolver) UploadFile(ctx context.Context, args struct{ Input *fileInput }) *fileResponseResolver {
	return &fileResponseResolver{r.files.UploadFile(ctx, auth.TokenFromContext(ctx), args.Input.toService())}
}

type fileResponseResolver struct {
	r *service.FileResponse
}

func (f *fileResponseResolver) URL() *string     { return f.r.URL }
func (f *fileResponseResolver) Code() *int32     { return int32Ptr(f.r.Code) }
func (f *fileResponseResolver) Token() *string   { return nil }
func (f *fileResponseResolver) Message() *string { return optional(f.r.Message) }
