package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const serviceName = "exporter3.v1.ExporterService"

// Full method names.
const (
	MethodGetRecord               = "/" + serviceName + "/GetRecord"
	MethodRedrive                 = "/" + serviceName + "/Redrive"
	MethodQueryParticipantVersion = "/" + serviceName + "/QueryParticipantVersion"
	MethodUpdateSharingScope      = "/" + serviceName + "/UpdateSharingScope"
	MethodDeleteArtifact          = "/" + serviceName + "/DeleteArtifact"
)

// ExporterServer is the RPC surface. Requests and responses are
// google.protobuf.Struct documents.
type ExporterServer interface {
	GetRecord(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Redrive(context.Context, *structpb.Struct) (*structpb.Struct, error)
	QueryParticipantVersion(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateSharingScope(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteArtifact(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func unaryHandler(method string, call func(ExporterServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ExporterServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ExporterServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*ExporterServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetRecord", Handler: unaryHandler(MethodGetRecord, ExporterServer.GetRecord)},
		{MethodName: "Redrive", Handler: unaryHandler(MethodRedrive, ExporterServer.Redrive)},
		{MethodName: "QueryParticipantVersion", Handler: unaryHandler(MethodQueryParticipantVersion, ExporterServer.QueryParticipantVersion)},
		{MethodName: "UpdateSharingScope", Handler: unaryHandler(MethodUpdateSharingScope, ExporterServer.UpdateSharingScope)},
		{MethodName: "DeleteArtifact", Handler: unaryHandler(MethodDeleteArtifact, ExporterServer.DeleteArtifact)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "exporter3/v1/exporter.proto",
}

// RegisterExporterServer registers srv on s.
func RegisterExporterServer(s grpc.ServiceRegistrar, srv ExporterServer) {
	s.RegisterService(&serviceDesc, srv)
}

// Invoke calls method on conn. Used by clients and tests.
func Invoke(ctx context.Context, conn grpc.ClientConnInterface, method string, req map[string]any) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := conn.Invoke(ctx, method, in, out); err != nil {
		return nil, err
	}
	return out, nil
}
