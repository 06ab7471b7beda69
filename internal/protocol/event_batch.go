package protocol

// REPORTS_REQ (client -> server): replay buffered reports after a cursor.
type ReportsReqMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ReqID           string `json:"req_id"`
	SinceCursor     uint64 `json:"since_cursor"`
	Limit           int    `json:"limit"`
}

// REPORT_BATCH (server -> client)
type ReportBatchMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	ReqID           string      `json:"req_id"`
	Reports         []ReportMsg `json:"reports"`
	NextCursor      uint64      `json:"next_cursor"`
}
