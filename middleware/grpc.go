package middleware

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/zoobzio/legtrace"
)

// UnaryServerInterceptor wraps each RPC in a root span resolved from incoming metadata.
func UnaryServerInterceptor(tracer *legtrace.Tracer) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		md, _ := metadata.FromIncomingContext(ctx)

		span := tracer.StartRootSpan(ctx, info.FullMethod, md,
			attribute.String("rpc.system", "grpc"),
			attribute.String("rpc.method", info.FullMethod),
		)

		resp, err := handler(span.Context(), req)
		if err != nil {
			span.EndWithError(err.Error())
			return resp, err
		}
		span.End()
		return resp, nil
	}
}

// UnaryClientInterceptor writes the caller's trace context into outgoing metadata.
func UnaryClientInterceptor(tracer *legtrace.Tracer) grpc.UnaryClientInterceptor {
	return func(
		ctx context.Context,
		method string,
		req, reply interface{},
		cc *grpc.ClientConn,
		invoker grpc.UnaryInvoker,
		opts ...grpc.CallOption,
	) error {
		md := metadata.MD{}
		tracer.Inject(ctx, legtrace.MetadataCarrier(md))
		if len(md) > 0 {
			if existing, ok := metadata.FromOutgoingContext(ctx); ok {
				md = metadata.Join(existing, md)
			}
			ctx = metadata.NewOutgoingContext(ctx, md)
		}
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}
