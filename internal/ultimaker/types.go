package ultimaker

// Firmware result values for finished jobs. The job-history API is a
// fixed contract with the printer firmware; field and value names here
// must track it exactly.
const (
	ResultFinished = "Finished"
	ResultAborted  = "Aborted"
)

// PrintJob is one raw job entry from /api/v1/history/print_jobs,
// unvalidated and in device-reported order.
type PrintJob struct {
	UUID             string  `json:"uuid"`
	Name             string  `json:"name"`
	Result           string  `json:"result"`
	DatetimeStarted  string  `json:"datetime_started"`
	DatetimeFinished string  `json:"datetime_finished"`
	TimeTotal        float64 `json:"time_total"`
	Material0Amount  float64 `json:"material_0_amount"`
	Material0GUID    string  `json:"material_0_guid"`
	Material1Amount  float64 `json:"material_1_amount"`
	Material1GUID    string  `json:"material_1_guid"`
}

// systemInfo is the subset of /api/v1/system we care about.
type systemInfo struct {
	Name string `json:"name"`
}
