// Package grpc exposes token introspection to other backend services.
package grpc

import (
	"context"
	"errors"
	"net"

	"github.com/dmitrijs2005/webtoz/internal/common"
	"github.com/dmitrijs2005/webtoz/internal/logging"
	"github.com/dmitrijs2005/webtoz/internal/server/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Authenticator resolves a bearer token to an active account.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

type GRPCServer struct {
	address string
	auth    Authenticator
	logger  logging.Logger
}

func NewGRPCServer(a string, l logging.Logger, auth Authenticator) *GRPCServer {
	return &GRPCServer{
		address: a,
		logger:  l.With("module", "grpc_server"),
		auth:    auth,
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.accessTokenInterceptor))
	RegisterTokenServiceServer(srv, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.serve(ctx, listen)
}

func (s *GRPCServer) serve(ctx context.Context, listen net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

func (s *GRPCServer) Introspect(ctx context.Context, token *wrapperspb.StringValue) (*structpb.Struct, error) {
	user, err := s.auth.Authenticate(ctx, token.GetValue())
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return userStruct(user)
}

func (s *GRPCServer) WhoAmI(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	user, ok := ctx.Value(userKey).(*models.User)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "User not authenticated")
	}
	return userStruct(user)
}

func userStruct(u *models.User) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"id":       u.ID,
		"email":    u.Email,
		"role":     u.Role.String(),
		"name":     u.Name,
		"isActive": u.IsActive,
	})
}

// toStatus keeps the caller-facing messages of authentication failures and
// hides everything else.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	var cerr *common.Error
	if errors.As(err, &cerr) {
		return status.Error(codes.Unauthenticated, cerr.Message)
	}
	s.logger.Error(ctx, "authenticate failed", "error", err)
	return status.Error(codes.Internal, "Internal server error")
}
