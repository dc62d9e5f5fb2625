package jobs

const (
	// TaskRender renders one queued job
	TaskRender = "render:video"
)

// RenderPayload is the queued task body. The request itself stays in the
// job store so the queue only carries the ID.
type RenderPayload struct {
	JobID string `json:"job_id"`
}
