package grpc

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/dmitrijs2005/exporter3/internal/common"
	"github.com/dmitrijs2005/exporter3/internal/exporter/models"
	"github.com/dmitrijs2005/exporter3/internal/exporter/queue"
	"github.com/dmitrijs2005/exporter3/internal/timex"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// GetRecord returns the export status of an upload.
func (s *GRPCServer) GetRecord(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	uploadID, err := requiredString(req, "uploadId")
	if err != nil {
		return nil, err
	}

	rec, err := s.deps.Records.GetRecord(ctx, uploadID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	out := map[string]any{
		"uploadId":   rec.UploadID,
		"appId":      rec.AppID,
		"exported":   rec.Exported,
		"exportedOn": nil,
	}
	if rec.ExportedOn != nil {
		out["exportedOn"] = timex.ISO(*rec.ExportedOn)
	}
	if !rec.Locator.IsZero() {
		out["entryId"] = rec.Locator.EntryID
		out["s3Bucket"] = rec.Locator.Bucket
		out["s3Key"] = rec.Locator.Key
	}
	return structpb.NewStruct(out)
}

// Redrive re-triggers the export of an upload. With "sync" set the export
// runs inline and its result is returned; otherwise a redrive message is
// queued.
func (s *GRPCServer) Redrive(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	appID, err := requiredString(req, "appId")
	if err != nil {
		return nil, err
	}
	uploadID, err := requiredString(req, "uploadId")
	if err != nil {
		return nil, err
	}

	if req.GetFields()["sync"].GetBoolValue() {
		res, err := s.deps.Exporter.Export(ctx, appID, uploadID)
		if err != nil {
			return nil, s.toStatus(ctx, err)
		}
		out := map[string]any{
			"uploadId": res.UploadID,
			"outcome":  string(res.Outcome),
		}
		if !res.Locator.IsZero() {
			out["entryId"] = res.Locator.EntryID
			out["s3Key"] = res.Locator.Key
			out["exportedOn"] = timex.ISO(res.ExportedOn)
		}
		return structpb.NewStruct(out)
	}

	id, err := s.deps.Publisher.Publish(ctx, queue.Message{UploadID: uploadID, AppID: appID, Redrive: true})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	s.logger.Info(ctx, "redrive queued", "upload_id", uploadID, "app_id", appID, "message_id", id)
	return structpb.NewStruct(map[string]any{"uploadId": uploadID, "messageId": id})
}

// QueryParticipantVersion reads one ledger version from the catalog,
// waiting for it to become visible.
func (s *GRPCServer) QueryParticipantVersion(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	healthCode, err := requiredString(req, "healthCode")
	if err != nil {
		return nil, err
	}
	version, err := requiredVersion(req)
	if err != nil {
		return nil, err
	}

	v, err := s.deps.Versions.Query(ctx, healthCode, version)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return versionStruct(v)
}

// UpdateSharingScope records a consent change for a participant.
func (s *GRPCServer) UpdateSharingScope(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	appID, err := requiredString(req, "appId")
	if err != nil {
		return nil, err
	}
	healthCode, err := requiredString(req, "healthCode")
	if err != nil {
		return nil, err
	}
	raw, err := requiredString(req, "sharingScope")
	if err != nil {
		return nil, err
	}
	scope, err := models.ParseSharingScope(raw)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	v, err := s.deps.Versions.UpdateSharingScope(ctx, appID, healthCode, scope)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return versionStruct(v)
}

// DeleteArtifact removes the archived artifact of an upload. The record
// keeps its locator, so the next redrive re-creates the artifact.
func (s *GRPCServer) DeleteArtifact(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	uploadID, err := requiredString(req, "uploadId")
	if err != nil {
		return nil, err
	}
	rec, err := s.deps.Records.GetRecord(ctx, uploadID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	if rec.Locator.IsZero() {
		return nil, status.Error(codes.NotFound, "upload has no archived artifact")
	}
	if err := s.deps.Artifacts.Delete(ctx, rec.Locator); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return structpb.NewStruct(map[string]any{"uploadId": uploadID, "entryId": rec.Locator.EntryID, "deleted": true})
}

func versionStruct(v *models.ParticipantVersion) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"healthCode":         v.HealthCode,
		"participantVersion": v.Version,
		"sharingScope":       v.SharingScope.CatalogName(),
		"createdOn":          v.CreatedOn.UnixMilli(),
		"modifiedOn":         v.ModifiedOn.UnixMilli(),
	})
}

func requiredString(req *structpb.Struct, key string) (string, error) {
	v := strings.TrimSpace(req.GetFields()[key].GetStringValue())
	if v == "" {
		return "", status.Errorf(codes.InvalidArgument, "%s is required", key)
	}
	return v, nil
}

func requiredVersion(req *structpb.Struct) (int64, error) {
	f, ok := req.GetFields()["participantVersion"]
	if !ok {
		return 0, status.Error(codes.InvalidArgument, "participantVersion is required")
	}
	n := f.GetNumberValue()
	if n < 1 || n != math.Trunc(n) {
		return 0, status.Error(codes.InvalidArgument, "participantVersion must be a positive integer")
	}
	return int64(n), nil
}

func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, common.ErrInvalidMessage):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, common.ErrPollTimeout):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, common.ErrTransientUpstream):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, common.ErrDecryption), errors.Is(err, common.ErrLedgerInconsistency):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		s.logger.Error(ctx, "request failed", "error", err)
		return status.Error(codes.Internal, "internal error")
	}
}
