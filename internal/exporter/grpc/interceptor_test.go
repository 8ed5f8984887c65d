package grpc

import (
	"context"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func TestInterceptor_ReadMethod_AllowsWithoutToken(t *testing.T) {
	s := NewGRPCServer("", nopLogger{}, Deps{}, "secret")
	info := &grpc.UnaryServerInfo{FullMethod: MethodGetRecord}
	handlerCalled := false

	h := func(ctx context.Context, req any) (any, error) {
		handlerCalled = true
		return "ok", nil
	}

	resp, err := s.operatorTokenInterceptor(context.Background(), nil, info, h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !handlerCalled {
		t.Fatal("handler was not called")
	}
	if resp != "ok" {
		t.Fatalf("unexpected handler resp: %v", resp)
	}
}

func TestInterceptor_NoTokenConfigured_AllowsMutations(t *testing.T) {
	s := NewGRPCServer("", nopLogger{}, Deps{}, "")
	info := &grpc.UnaryServerInfo{FullMethod: MethodDeleteArtifact}

	_, err := s.operatorTokenInterceptor(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
		return nil, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestInterceptor_Mutation_MissingToken(t *testing.T) {
	s := NewGRPCServer("", nopLogger{}, Deps{}, "secret")
	info := &grpc.UnaryServerInfo{FullMethod: MethodRedrive}

	h := func(ctx context.Context, req any) (any, error) {
		t.Fatal("handler should not be called when token missing")
		return nil, nil
	}

	_, err := s.operatorTokenInterceptor(context.Background(), nil, info, h)
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated, got %v", status.Code(err))
	}
}

func TestInterceptor_Mutation_WrongToken(t *testing.T) {
	s := NewGRPCServer("", nopLogger{}, Deps{}, "secret")
	md := metadata.New(map[string]string{operatorTokenHeader: "guess"})
	ctx := metadata.NewIncomingContext(context.Background(), md)
	info := &grpc.UnaryServerInfo{FullMethod: MethodUpdateSharingScope}

	h := func(ctx context.Context, req any) (any, error) {
		t.Fatal("handler should not be called with a wrong token")
		return nil, nil
	}

	_, err := s.operatorTokenInterceptor(ctx, nil, info, h)
	if status.Code(err) != codes.PermissionDenied {
		t.Fatalf("expected PermissionDenied, got %v", status.Code(err))
	}
}

func TestInterceptor_Recovery(t *testing.T) {
	s := NewGRPCServer("", nopLogger{}, Deps{}, "")
	info := &grpc.UnaryServerInfo{FullMethod: MethodGetRecord}

	_, err := s.recoveryInterceptor(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
		panic("kaboom")
	})
	if status.Code(err) != codes.Internal {
		t.Fatalf("expected Internal, got %v", status.Code(err))
	}
}
