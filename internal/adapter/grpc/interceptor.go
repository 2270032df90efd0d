package grpc

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/simaogato/ledgerflow-backend/internal/adapter/auth"
)

// AuthInterceptor returns a gRPC unary server interceptor that validates
// the authorization token from request metadata. Both the raw token and
// "Bearer <token>" are accepted.
// If the token is missing or invalid, it returns status.Unauthenticated.
func AuthInterceptor(validToken string) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}

		authHeaders := md.Get("authorization")
		if len(authHeaders) == 0 {
			return nil, status.Error(codes.Unauthenticated, "missing authorization header")
		}

		if !auth.TokenMatches(authHeaders[0], validToken) {
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}

		return handler(ctx, req)
	}
}

// LoggingInterceptor logs one line per unary call with its method, status
// code and duration.
func LoggingInterceptor(logger logrus.FieldLogger) grpc.UnaryServerInterceptor {
	logger = logger.WithField("component", "grpc")
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)

		entry := logger.WithFields(logrus.Fields{
			"method":      info.FullMethod,
			"code":        code.String(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
		switch code {
		case codes.OK:
			entry.Info("request handled")
		case codes.Internal, codes.Unavailable, codes.Unknown:
			entry.WithError(err).Error("request failed")
		default:
			entry.WithError(err).Warn("request rejected")
		}
		return resp, err
	}
}
