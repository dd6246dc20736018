package frequency

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName = "wordfreq.FrequencyService"

	rankMethod = "/" + ServiceName + "/Rank"
)

// FrequencyServiceServer is the server API for FrequencyService. Messages
// are plain structs, see GrpcService.Rank for their fields.
type FrequencyServiceServer interface {
	Rank(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func RegisterFrequencyServiceServer(s *grpc.Server, srv FrequencyServiceServer) {
	s.RegisterService(&FrequencyService_ServiceDesc, srv)
}

func _FrequencyService_Rank_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FrequencyServiceServer).Rank(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: rankMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(FrequencyServiceServer).Rank(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

var FrequencyService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*FrequencyServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Rank",
			Handler:    _FrequencyService_Rank_Handler,
		},
	},
	Streams: []grpc.StreamDesc{},
}
