package remote

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName     = "facelive.v1.FaceDetector"
	estimateMethod  = "/" + ServiceName + "/EstimateFaces"
	estimateHandler = "EstimateFaces"
)

// FaceDetectorServer is implemented by detection backends reachable over gRPC.
//
// Request fields: image (base64 JPEG), width, height, max_faces.
// Response fields: faces, a list of {box, score, keypoints} objects using
// the same field names as the HTTP API.
type FaceDetectorServer interface {
	EstimateFaces(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// RegisterFaceDetectorServer registers srv on s
func RegisterFaceDetectorServer(s grpc.ServiceRegistrar, srv FaceDetectorServer) {
	s.RegisterService(&serviceDesc, srv)
}

func estimateFacesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FaceDetectorServer).EstimateFaces(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: estimateMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(FaceDetectorServer).EstimateFaces(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*FaceDetectorServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: estimateHandler,
			Handler:    estimateFacesHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "facelive/v1/face_detector.proto",
}
