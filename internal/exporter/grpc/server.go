// Package grpc exposes the record read API, redrive requests and the
// participant-version catalog over gRPC.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/exporter3/internal/exporter/models"
	"github.com/dmitrijs2005/exporter3/internal/exporter/queue"
	"github.com/dmitrijs2005/exporter3/internal/logging"
	"google.golang.org/grpc"
)

type RecordReader interface {
	GetRecord(ctx context.Context, uploadID string) (*models.UploadRecord, error)
}

type Exporter interface {
	Export(ctx context.Context, appID, uploadID string) (*models.ExportResult, error)
}

type VersionCatalog interface {
	Query(ctx context.Context, healthCode string, version int64) (*models.ParticipantVersion, error)
	UpdateSharingScope(ctx context.Context, appID, healthCode string, scope models.SharingScope) (*models.ParticipantVersion, error)
}

type ArtifactDeleter interface {
	Delete(ctx context.Context, loc models.ArchiveLocator) error
}

// Deps are the services behind the RPC handlers.
type Deps struct {
	Records   RecordReader
	Exporter  Exporter
	Versions  VersionCatalog
	Artifacts ArtifactDeleter
	Publisher queue.Publisher
}

type GRPCServer struct {
	address       string
	deps          Deps
	logger        logging.Logger
	operatorToken string
}

// NewGRPCServer builds the server. A non-empty operatorToken is required in
// the "x-operator-token" metadata of mutating calls.
func NewGRPCServer(a string, l logging.Logger, deps Deps, operatorToken string) *GRPCServer {
	return &GRPCServer{
		address:       a,
		deps:          deps,
		logger:        l.With("module", "grpc_server"),
		operatorToken: operatorToken,
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.recoveryInterceptor, s.loggingInterceptor, s.operatorTokenInterceptor))
	RegisterExporterServer(srv, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is cancelled.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		stopped := make(chan struct{})
		go func() {
			srv.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-time.After(10 * time.Second):
			srv.Stop()
		}
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}
	return nil
}
