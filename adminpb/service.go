package adminpb

import (
	"context"

	"google.golang.org/grpc"
)

// Server is the Admin/status service interface the adapter implements.
type Server interface {
	GetStatus(context.Context, *StatusRequest) (*StatusResponse, error)
	GetValidatorSet(context.Context, *ValidatorSetRequest) (*ValidatorSetResponse, error)
	GetDecidedValue(context.Context, *DecidedValueRequest) (*DecidedValueResponse, error)
}

// UnimplementedAdminServer can be embedded in a Server implementation
// for forward compatibility, matching the teacher's
// UnimplementedPBFTServiceServer embedding pattern.
type UnimplementedAdminServer struct{}

func (UnimplementedAdminServer) GetStatus(context.Context, *StatusRequest) (*StatusResponse, error) {
	return nil, grpcUnimplemented("GetStatus")
}

func (UnimplementedAdminServer) GetValidatorSet(context.Context, *ValidatorSetRequest) (*ValidatorSetResponse, error) {
	return nil, grpcUnimplemented("GetValidatorSet")
}

func (UnimplementedAdminServer) GetDecidedValue(context.Context, *DecidedValueRequest) (*DecidedValueResponse, error) {
	return nil, grpcUnimplemented("GetDecidedValue")
}

func grpcUnimplemented(method string) error {
	return &unimplementedError{method: method}
}

type unimplementedError struct{ method string }

func (e *unimplementedError) Error() string { return "adminpb: " + e.method + " not implemented" }

// ServiceDesc's per-method Handler funcs adapt the Server interface to
// grpc.ServiceDesc's Handler shape. Since the admin messages have no
// generated Marshal/Unmarshal (see types.go), this hand-written
// ServiceDesc stands in for a generated *_grpc.pb.go, registered the
// same way the teacher registers its own generated service
// (grpc.NewServer(...) + RegisterXServer(srv, impl)).
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: "emerald.admin.v1.AdminService",
	HandlerType: (*Server)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetStatus",
			Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
				req := new(StatusRequest)
				if err := dec(req); err != nil {
					return nil, err
				}
				if interceptor == nil {
					return srv.(Server).GetStatus(ctx, req)
				}
				info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/emerald.admin.v1.AdminService/GetStatus"}
				handler := func(ctx context.Context, req interface{}) (interface{}, error) {
					return srv.(Server).GetStatus(ctx, req.(*StatusRequest))
				}
				return interceptor(ctx, req, info, handler)
			},
		},
		{
			MethodName: "GetValidatorSet",
			Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
				req := new(ValidatorSetRequest)
				if err := dec(req); err != nil {
					return nil, err
				}
				if interceptor == nil {
					return srv.(Server).GetValidatorSet(ctx, req)
				}
				info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/emerald.admin.v1.AdminService/GetValidatorSet"}
				handler := func(ctx context.Context, req interface{}) (interface{}, error) {
					return srv.(Server).GetValidatorSet(ctx, req.(*ValidatorSetRequest))
				}
				return interceptor(ctx, req, info, handler)
			},
		},
		{
			MethodName: "GetDecidedValue",
			Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
				req := new(DecidedValueRequest)
				if err := dec(req); err != nil {
					return nil, err
				}
				if interceptor == nil {
					return srv.(Server).GetDecidedValue(ctx, req)
				}
				info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/emerald.admin.v1.AdminService/GetDecidedValue"}
				handler := func(ctx context.Context, req interface{}) (interface{}, error) {
					return srv.(Server).GetDecidedValue(ctx, req.(*DecidedValueRequest))
				}
				return interceptor(ctx, req, info, handler)
			},
		},
	},
	Metadata: "emerald/admin/v1/admin.proto",
}

// RegisterAdminServiceServer registers srv on s, matching the
// teacher's pbftv1.RegisterPBFTServiceServer(server, handler) call
// shape.
func RegisterAdminServiceServer(s grpc.ServiceRegistrar, srv Server) {
	s.RegisterService(&ServiceDesc, srv)
}
