package grpc

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/webtoz/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const userKey ctxKey = "user"

// authorizationKey is the lower-cased metadata form of the HTTP header.
var authorizationKey = strings.ToLower(common.AuthorizationHeaderName)

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {

	if info.FullMethod == WhoAmIMethod {

		var accessToken string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			values := md.Get(authorizationKey)
			if len(values) > 0 {
				scheme, token, found := strings.Cut(values[0], " ")
				if found && scheme == common.BearerScheme {
					accessToken = strings.TrimSpace(token)
				}
			}
		}
		if len(accessToken) == 0 {
			return nil, status.Error(codes.Unauthenticated, "Not authorized to access this route")
		}

		user, err := s.auth.Authenticate(ctx, accessToken)
		if err != nil {
			return nil, s.toStatus(ctx, err)
		}

		ctx = context.WithValue(ctx, userKey, user)
	}

	return handler(ctx, req)
}
