package policy

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/ope-controller/internal/estimator"
)

// #region service-desc
// actionProbServer is the handler side of ope.PolicyService.
type actionProbServer interface {
	ActionProb(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*actionProbServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ActionProb", Handler: actionProbHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ope/policy.proto",
}

func actionProbHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(actionProbServer).ActionProb(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: actionProbMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(actionProbServer).ActionProb(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// #endregion service-desc

// #region server
// Server exposes a TargetPolicy as ope.PolicyService.
type Server struct {
	policy estimator.TargetPolicy
}

// Register attaches p to grpcServer.
func Register(grpcServer *grpc.Server, p estimator.TargetPolicy) *Server {
	s := &Server{policy: p}
	grpcServer.RegisterService(&serviceDesc, s)
	return s
}

// ActionProb implements ope.PolicyService.ActionProb.
func (s *Server) ActionProb(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	b, err := decodeRequest(req)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "decode request: %v", err)
	}
	probs, err := s.policy.ActionProb(ctx, b)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "action prob: %v", err)
	}
	resp, err := encodeResponse(probs)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return resp, nil
}

// #endregion server
