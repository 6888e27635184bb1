package service

import (
	"go.uber.org/zap"

	"github.com/spotsapp/spots-api/internal/domain/entity"
	"github.com/spotsapp/spots-api/internal/metrics"
	apperrors "github.com/spotsapp/spots-api/internal/pkg/errors"
)

// Envelope status codes.
const (
	CodeOK          = 200
	CodeClientError = 400
	CodeServerError = 500
)

// InternalErrorMessage replaces the message of every system-originated failure.
const InternalErrorMessage = "An internal server error occurred. Please try again later"

// AccountResponse is the result of every account operation. Failures carry a nil
// User and Token.
type AccountResponse struct {
	User    *entity.Account
	Code    int
	Message string
	Token   *string
}

// SpotResponse is the result of createOrUpdateSpot.
type SpotResponse struct {
	Spot    *entity.Spot
	Code    int
	Message string
}

// FileResponse is the result of uploadFile.
type FileResponse struct {
	URL     *string
	Code    int
	Message string
}

// Succeeded reports whether the envelope carries a result.
func (r *AccountResponse) Succeeded() bool { return r.Code == CodeOK }

// Succeeded reports whether the envelope carries a result.
func (r *SpotResponse) Succeeded() bool { return r.Code == CodeOK }

// Succeeded reports whether the envelope carries a result.
func (r *FileResponse) Succeeded() bool { return r.Code == CodeOK }

// outcome turns an operation error into the envelope code and message, logs it and
// counts it. Client errors keep their own message; anything else is logged in
// full and hidden behind InternalErrorMessage.
func outcome(log *zap.Logger, operation string, err error) (int, string) {
	if apperrors.IsClientError(err) {
		log.Debug("operation rejected", zap.String("operation", operation), zap.Error(err))
		metrics.Operations.WithLabelValues(operation, metrics.ResultClientError).Inc()
		return CodeClientError, err.Error()
	}
	log.Error("operation failed", zap.String("operation", operation), zap.Error(err))
	metrics.Operations.WithLabelValues(operation, metrics.ResultError).Inc()
	return CodeServerError, InternalErrorMessage
}

func recordSuccess(operation string) {
	metrics.Operations.WithLabelValues(operation, metrics.ResultSuccess).Inc()
}

func accountFailure(log *zap.Logger, operation string, err error) *AccountResponse {
	code, msg := outcome(log, operation, err)
	return &AccountResponse{Code: code, Message: msg}
}

func accountSuccess(operation string, user *entity.Account, token *string, message string) *AccountResponse {
	recordSuccess(operation)
	return &AccountResponse{User: user, Code: CodeOK, Message: message, Token: token}
}

func spotFailure(log *zap.Logger, operation string, err error) *SpotResponse {
	code, msg := outcome(log, operation, err)
	return &SpotResponse{Code: code, Message: msg}
}

func fileFailure(log *zap.Logger, operation string, err error) *FileResponse {
	code, msg := outcome(log, operation, err)
	return &FileResponse{Code: code, Message: msg}
}
