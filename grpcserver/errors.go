package grpcserver

import (
	"sort"
	"strings"

	"github.com/reactiverates/users/services"
	"github.com/reactiverates/users/utils"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// toStatus maps request validation failures and the domain error taxonomy to
// gRPC status codes. Internal failures are logged and reported generically.
func toStatus(err error, logger *zap.Logger) error {
	if err == nil {
		return nil
	}

	if fields := utils.GetValidationFields(err); fields != nil {
		return status.Error(codes.InvalidArgument, joinFields(fields))
	}

	message := services.GetErrorMessage(err)
	switch {
	case services.IsNotFoundError(err):
		return status.Error(codes.NotFound, message)
	case services.IsValidationError(err):
		return status.Error(codes.InvalidArgument, message)
	case services.IsUnauthorizedError(err):
		return status.Error(codes.Unauthenticated, message)
	case services.IsForbiddenError(err):
		return status.Error(codes.PermissionDenied, message)
	case services.IsConflictError(err):
		return status.Error(codes.AlreadyExists, message)
	}

	logger.Error("internal server error",
		zap.Error(err),
		zap.String("error_type", string(services.GetErrorType(err))))
	return status.Error(codes.Internal, "An internal error occurred")
}

// joinFields renders field errors in a stable order
func joinFields(fields map[string]string) string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	messages := make([]string, len(names))
	for i, name := range names {
		messages[i] = fields[name]
	}
	return strings.Join(messages, "; ")
}
