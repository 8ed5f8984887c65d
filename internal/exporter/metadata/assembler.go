// Package metadata builds the annotation set attached to every exported
// artifact. Assemble is pure: it reads only its arguments.
package metadata

import (
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/exporter3/internal/exporter/models"
	"github.com/dmitrijs2005/exporter3/internal/timex"
)

// Required annotation keys.
const (
	KeyClientInfo         = "clientInfo"
	KeyHealthCode         = "healthCode"
	KeyRecordID           = "recordId"
	KeyParticipantVersion = "participantVersion"
	KeyExportedOn         = "exportedOn"
	KeyUploadedOn         = "uploadedOn"
)

// Schedule-context annotation keys.
const (
	KeyInstanceGUID            = "instanceGuid"
	KeyAssessmentGUID          = "assessmentGuid"
	KeyAssessmentID            = "assessmentId"
	KeyAssessmentRevision      = "assessmentRevision"
	KeyAssessmentInstanceGUID  = "assessmentInstanceGuid"
	KeySessionInstanceGUID     = "sessionInstanceGuid"
	KeySessionGUID             = "sessionGuid"
	KeySessionInstanceStartDay = "sessionInstanceStartDay"
	KeySessionInstanceEndDay   = "sessionInstanceEndDay"
	KeySessionStartEventID     = "sessionStartEventId"
	KeyTimeWindowGUID          = "timeWindowGuid"
	KeyScheduleGUID            = "scheduleGuid"
	KeyScheduleModifiedOn      = "scheduleModifiedOn"
)

// RequiredKeys is the fixed set present on every artifact.
var RequiredKeys = []string{
	KeyClientInfo, KeyHealthCode, KeyRecordID, KeyParticipantVersion, KeyExportedOn, KeyUploadedOn,
}

// ScheduleKeys is the extended set present when schedule context resolves.
var ScheduleKeys = []string{
	KeyInstanceGUID, KeyAssessmentGUID, KeyAssessmentID, KeyAssessmentRevision,
	KeyAssessmentInstanceGUID, KeySessionInstanceGUID, KeySessionGUID,
	KeySessionInstanceStartDay, KeySessionInstanceEndDay, KeySessionStartEventID,
	KeyTimeWindowGUID, KeyScheduleGUID, KeyScheduleModifiedOn,
}

// SanitizeKey replaces every character outside [A-Za-z0-9_] with '_'.
func SanitizeKey(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, key)
}

// InstanceGUID returns the scheduled-session instance the upload declares,
// if any.
func InstanceGUID(rec *models.UploadRecord) (string, bool) {
	v, ok := rec.UserMetadata.Get(KeyInstanceGUID)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

// Assemble builds the annotation set for rec.
//
// Custom metadata goes in first, sanitized, later items overwriting earlier
// ones that sanitize to the same key. Schedule context, when non-nil, is
// layered on top, and the required keys are written last so callers cannot
// shadow them. participantVersion is the only integer-typed value.
//
// exportedOn is the write instant passed in. uploadedOn is the record's
// upload time rather than the write instant, so redrives keep the original
// value; a record without one falls back to exportedOn.
func Assemble(rec *models.UploadRecord, version *models.ParticipantVersion, sched *models.ScheduleContext, exportedOn time.Time) models.Annotations {
	out := make(models.Annotations, len(rec.UserMetadata)+len(RequiredKeys)+len(ScheduleKeys))

	for _, item := range rec.UserMetadata {
		out[SanitizeKey(item.Key)] = models.StringValue(item.Value)
	}

	if sched != nil {
		for k, v := range scheduleValues(sched) {
			out[k] = models.StringValue(v)
		}
	}

	uploadedOn := rec.UploadedOn
	if uploadedOn.IsZero() {
		uploadedOn = exportedOn
	}

	out[KeyClientInfo] = models.StringValue(rec.ClientInfo)
	out[KeyHealthCode] = models.StringValue(rec.HealthCode)
	out[KeyRecordID] = models.StringValue(rec.UploadID)
	out[KeyParticipantVersion] = models.LongValue(version.Version)
	out[KeyExportedOn] = models.StringValue(timex.ISO(exportedOn))
	out[KeyUploadedOn] = models.StringValue(timex.ISO(uploadedOn))

	return out
}

func scheduleValues(s *models.ScheduleContext) map[string]string {
	return map[string]string{
		KeyInstanceGUID:            s.InstanceGUID,
		KeyAssessmentGUID:          s.AssessmentGUID,
		KeyAssessmentID:            s.AssessmentID,
		KeyAssessmentRevision:      strconv.Itoa(s.AssessmentRevision),
		KeyAssessmentInstanceGUID:  s.AssessmentInstanceGUID,
		KeySessionInstanceGUID:     s.SessionInstanceGUID,
		KeySessionGUID:             s.SessionGUID,
		KeySessionInstanceStartDay: strconv.Itoa(s.SessionInstanceStartDay),
		KeySessionInstanceEndDay:   strconv.Itoa(s.SessionInstanceEndDay),
		KeySessionStartEventID:     s.SessionStartEventID,
		KeyTimeWindowGUID:          s.TimeWindowGUID,
		KeyScheduleGUID:            s.ScheduleGUID,
		KeyScheduleModifiedOn:      timex.ISO(s.ScheduleModifiedOn),
	}
}
