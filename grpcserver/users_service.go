package grpcserver

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/reactiverates/users/handlers"
	"github.com/reactiverates/users/models"
	"github.com/reactiverates/users/services/users"
	"github.com/reactiverates/users/utils"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// UsersServiceName is the fully qualified RPC service name
const UsersServiceName = "reactiverates.users.UsersService"

// Full method names
const (
	CreateUserMethod        = "/" + UsersServiceName + "/CreateUser"
	GetUserByIDMethod       = "/" + UsersServiceName + "/GetUserById"
	GetUserByUsernameMethod = "/" + UsersServiceName + "/GetUserByUsername"
)

// UserService defines the user operations exposed over RPC
type UserService interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, in users.CreateUserInput) (*models.User, error)
}

// UsersServer is the server API for the users RPC service
type UsersServer interface {
	CreateUser(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	GetUserById(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	GetUserByUsername(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

// UsersService serves user lookups and creation with google.protobuf.Struct
// payloads shaped like the REST bodies
type UsersService struct {
	service UserService
	logger  *zap.Logger
}

// NewUsersService creates a new UsersService
func NewUsersService(service UserService, logger *zap.Logger) *UsersService {
	return &UsersService{
		service: service,
		logger:  logger,
	}
}

// CreateUser creates a user from {username, email, password, firstName,
// lastName, phoneNumber, role}
func (s *UsersService) CreateUser(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req handlers.CreateUserRequest
	if err := decodeStruct(in, &req); err != nil {
		return nil, toStatus(err, s.logger)
	}
	if err := utils.ValidateStruct(&req); err != nil {
		return nil, toStatus(err, s.logger)
	}

	user, err := s.service.Create(ctx, users.CreateUserInput{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
		Role:        req.Role,
	})
	return s.reply(user, err)
}

// GetUserById looks a user up by {id}
func (s *UsersService) GetUserById(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := utils.ParseUUID(stringField(in, "id"), "id")
	if err != nil {
		return nil, toStatus(err, s.logger)
	}
	user, err := s.service.GetByID(ctx, id)
	return s.reply(user, err)
}

// GetUserByUsername looks a user up by {username}
func (s *UsersService) GetUserByUsername(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	username := strings.TrimSpace(stringField(in, "username"))
	if username == "" {
		return nil, toStatus(&utils.ValidationError{
			Message: "Validation failed",
			Fields:  map[string]string{"username": "username is required"},
		}, s.logger)
	}
	user, err := s.service.GetByUsername(ctx, username)
	return s.reply(user, err)
}

func (s *UsersService) reply(user *models.User, err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, toStatus(err, s.logger)
	}
	out, err := userToStruct(user)
	if err != nil {
		return nil, toStatus(err, s.logger)
	}
	return out, nil
}

// decodeStruct maps a Struct payload onto a request type, rejecting unknown
// fields the same way the REST decoder does
func decodeStruct(in *structpb.Struct, v interface{}) error {
	if in == nil {
		in = &structpb.Struct{}
	}
	data, err := protojson.Marshal(in)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &utils.ValidationError{
			Message: "Validation failed",
			Fields:  map[string]string{"request": "invalid request payload"},
		}
	}
	return nil
}

func stringField(in *structpb.Struct, name string) string {
	if in == nil {
		return ""
	}
	return in.GetFields()[name].GetStringValue()
}

// userToStruct renders a user without its password hash
func userToStruct(u *models.User) (*structpb.Struct, error) {
	fields := map[string]interface{}{
		"id":        u.ID.String(),
		"username":  u.Username,
		"email":     u.Email,
		"fullName":  u.FullName(),
		"role":      string(u.Role),
		"isActive":  u.IsActive,
		"createdAt": u.CreatedAt.UTC().Format(time.RFC3339),
		"updatedAt": u.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if u.FirstName != nil {
		fields["firstName"] = *u.FirstName
	}
	if u.LastName != nil {
		fields["lastName"] = *u.LastName
	}
	if u.PhoneNumber != nil {
		fields["phoneNumber"] = *u.PhoneNumber
	}
	return structpb.NewStruct(fields)
}

// RegisterUsersServer registers srv on registrar
func RegisterUsersServer(registrar grpc.ServiceRegistrar, srv UsersServer) {
	registrar.RegisterService(&UsersServiceDesc, srv)
}

// UsersServiceDesc describes the users RPC service
var UsersServiceDesc = grpc.ServiceDesc{
	ServiceName: UsersServiceName,
	HandlerType: (*UsersServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateUser", Handler: unaryHandler(CreateUserMethod, UsersServer.CreateUser)},
		{MethodName: "GetUserById", Handler: unaryHandler(GetUserByIDMethod, UsersServer.GetUserById)},
		{MethodName: "GetUserByUsername", Handler: unaryHandler(GetUserByUsernameMethod, UsersServer.GetUserByUsername)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "reactiverates/users/users.proto",
}

type structMethod func(UsersServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

// unaryHandler adapts a Struct-in Struct-out method to a grpc.MethodDesc handler
func unaryHandler(fullMethod string, method structMethod) func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return method(srv.(UsersServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return method(srv.(UsersServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}
