package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func (s *GRPCServer) VerifyAccessToken(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	claims, err := s.verifier.VerifyAccessToken(req.GetValue())
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}

	return structpb.NewStruct(map[string]any{
		"sub":  claims.Subject,
		"role": string(claims.Role),
		"iss":  claims.Issuer,
		"iat":  claims.IssuedAt.Unix(),
		"exp":  claims.ExpiresAt.Unix(),
		"v":    claims.Version,
	})
}

func (s *GRPCServer) Self(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}

	u, err := s.users.Self(ctx, claims)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return structpb.NewStruct(map[string]any{
		"id":        u.ID,
		"firstName": u.FirstName,
		"lastName":  u.LastName,
		"email":     u.Email,
		"role":      string(u.Role),
	})
}

func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, common.ErrStoreInvariant):
		s.logger.Error(ctx, "integrity anomaly, request rejected", "error", err)
		return status.Error(codes.Unauthenticated, "unauthorized")
	case errors.Is(err, common.ErrUnauthorized):
		return status.Error(codes.Unauthenticated, "unauthorized")
	case errors.Is(err, common.ErrStoreTransient):
		return status.Error(codes.Unavailable, "service temporarily unavailable")
	}
	s.logger.Error(ctx, "grpc request failed", "error", err)
	return status.Error(codes.Internal, "internal error")
}
