package models

import "time"

// ScheduleContext describes the scheduled-session instance an upload was
// made for, resolved from the upload's instanceGuid.
type ScheduleContext struct {
	InstanceGUID            string
	AssessmentGUID          string
	AssessmentID            string
	AssessmentRevision      int
	AssessmentInstanceGUID  string
	SessionInstanceGUID     string
	SessionGUID             string
	SessionInstanceStartDay int
	SessionInstanceEndDay   int
	SessionStartEventID     string
	TimeWindowGUID          string
	ScheduleGUID            string
	ScheduleModifiedOn      time.Time
}
