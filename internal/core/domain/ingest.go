package domain

type PathStatus string

const (
	PathProcessed PathStatus = "processed"
	PathMissing   PathStatus = "missing"
	PathFailed    PathStatus = "failed"
)

type PathResult struct {
	Path   string     `json:"path"`
	Status PathStatus `json:"status"`
	Chunks int        `json:"chunks"`
	Error  string     `json:"error,omitempty"`
}

type IngestReport struct {
	Paths       []PathResult `json:"paths"`
	TotalChunks int          `json:"total_chunks"`
}

func (r *IngestReport) Count(status PathStatus) int {
	n := 0
	for _, p := range r.Paths {
		if p.Status == status {
			n++
		}
	}
	return n
}
