package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	ServiceName = "gophauth.v1.TokenService"

	VerifyAccessTokenMethod = "/" + ServiceName + "/VerifyAccessToken"
	SelfMethod              = "/" + ServiceName + "/Self"
)

// TokenServiceServer lets sibling services check access tokens without
// holding key material. Messages are protobuf well-known types, so clients
// need no generated stubs.
type TokenServiceServer interface {
	VerifyAccessToken(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	Self(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

var TokenService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TokenServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "VerifyAccessToken", Handler: verifyAccessTokenHandler},
		{MethodName: "Self", Handler: selfHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "gophauth/v1/token_service",
}

func verifyAccessTokenHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TokenServiceServer).VerifyAccessToken(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: VerifyAccessTokenMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TokenServiceServer).VerifyAccessToken(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func selfHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TokenServiceServer).Self(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: SelfMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TokenServiceServer).Self(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}
