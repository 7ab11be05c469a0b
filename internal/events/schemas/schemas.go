package schemas

// EventIngestionJobData is the payload of an ingestion-job-requested message. The tenant rides
// in the message envelope.
type EventIngestionJobData struct {
	JobID     string   `json:"job_id"`
	StartDate string   `json:"start_date"`
	EndDate   string   `json:"end_date"`
	DataTypes []string `json:"data_types"`
}

// EventReportEmailJobData is the payload of a report-email-requested message. A nil BranchCodes
// means every branch of the tenant.
type EventReportEmailJobData struct {
	JobID       string   `json:"job_id"`
	ReportDate  string   `json:"report_date"`
	BranchCodes []string `json:"branch_codes,omitempty"`
}
