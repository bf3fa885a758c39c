package jwtauth

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const (
	authorizationHeader = "authorization"
	correlationIDHeader = "x-correlation-id"
	bearerPrefix        = "Bearer "
)

// UnaryServerInterceptor extracts and validates the bearer token from
// incoming gRPC metadata, attaching Claims to the handler's context on
// success. Every failure mode -- missing header, malformed header, bad
// signature, expired token -- returns the same codes.Unauthenticated
// status, matching the original's "zero tolerance" design note: there is no
// way to distinguish failure reasons from the wire response.
func UnaryServerInterceptor(validator *Validator) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		claims, err := extractAndValidate(ctx, validator)
		if err != nil {
			return nil, err
		}
		return handler(withClaims(ctx, claims), req)
	}
}

// StreamServerInterceptor is the streaming-call equivalent of
// UnaryServerInterceptor.
func StreamServerInterceptor(validator *Validator) grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		claims, err := extractAndValidate(ss.Context(), validator)
		if err != nil {
			return err
		}
		return handler(srv, &authenticatedStream{ServerStream: ss, ctx: withClaims(ss.Context(), claims)})
	}
}

type authenticatedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *authenticatedStream) Context() context.Context { return s.ctx }

func extractAndValidate(ctx context.Context, validator *Validator) (Claims, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return Claims{}, status.Error(codes.Unauthenticated, "unauthenticated")
	}

	values := md.Get(authorizationHeader)
	if len(values) == 0 {
		return Claims{}, status.Error(codes.Unauthenticated, "unauthenticated")
	}

	token, ok := strings.CutPrefix(values[0], bearerPrefix)
	if !ok {
		return Claims{}, status.Error(codes.Unauthenticated, "unauthenticated")
	}

	claims, err := validator.Validate(token)
	if err != nil {
		return Claims{}, status.Error(codes.Unauthenticated, "unauthenticated")
	}
	return claims, nil
}

// UnaryClientInterceptor propagates the caller's bearer token and
// correlation id unchanged to the downstream service, matching §4.7's
// client-interceptor contract.
func UnaryClientInterceptor(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
	ctx = propagateInbound(ctx)
	return invoker(ctx, method, req, reply, cc, opts...)
}

// StreamClientInterceptor is the streaming-call equivalent of
// UnaryClientInterceptor.
func StreamClientInterceptor(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, streamer grpc.Streamer, opts ...grpc.CallOption) (grpc.ClientStream, error) {
	ctx = propagateInbound(ctx)
	return streamer(ctx, desc, cc, method, opts...)
}

// propagateInbound carries the inbound authorization header and correlation
// id onto the outbound request unchanged; it never re-signs or mutates the
// token.
func propagateInbound(ctx context.Context) context.Context {
	inbound, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ctx
	}

	out := metadata.MD{}
	if v := inbound.Get(authorizationHeader); len(v) > 0 {
		out.Set(authorizationHeader, v[0])
	}
	if v := inbound.Get(correlationIDHeader); len(v) > 0 {
		out.Set(correlationIDHeader, v[0])
	}
	if len(out) == 0 {
		return ctx
	}
	return metadata.NewOutgoingContext(ctx, out)
}
