package monitor

type DBQueryLabels struct {
	QueryType string
}

// JobLabels identify one job outcome: Kind is "ingestion" or "email", Status the terminal
// status reached.
type JobLabels struct {
	Kind   string
	Status string
}

func (l JobLabels) ToMap() map[string]string {
	return map[string]string{
		"kind":   l.Kind,
		"status": l.Status,
	}
}
