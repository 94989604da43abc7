package dao

import (
	"time"

	"vigil/internal/model"
)

type Hit struct {
	Id         int     `json:"id"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	W          float64 `json:"w"`
	H          float64 `json:"h"`
	Confidence float64 `json:"c"`
	TrackId    *int    `json:"track_id"`
}

// Inference is one detection event: every hit found in a frame at absolute time T.
type Inference struct {
	Id   int     `json:"id"`
	T    float64 `json:"t"`
	Hits []Hit   `json:"hits"`
}

func FromInferenceModel(m *model.Inference) Inference {
	inf := Inference{
		Id:   m.Id,
		T:    m.T,
		Hits: make([]Hit, 0, len(m.Hits)),
	}
	for _, h := range m.Hits {
		inf.Hits = append(inf.Hits, Hit{
			Id:         h.Id,
			X:          h.X,
			Y:          h.Y,
			W:          h.W,
			H:          h.H,
			Confidence: h.C,
			TrackId:    h.TrackId,
		})
	}
	return inf
}

type ListInferencesRequest struct {
	SinceT float64 `form:"since_t"`
	Limit  int     `form:"limit" binding:"min=0,max=5000"`
}

type TaskState string

const (
	TaskStateIdle     TaskState = "idle"
	TaskStateRunning  TaskState = "running"
	TaskStateFinished TaskState = "finished"
	TaskStateStopped  TaskState = "stopped"
	TaskStateFailed   TaskState = "failed"
)

// TaskStatus reports the inference task of one source.
type TaskStatus struct {
	SourceKind model.SourceKind `json:"source_kind"`
	SourceId   int              `json:"source_id"`
	State      TaskState        `json:"state"`
	Frames     int              `json:"frames"`
	Inferences int              `json:"inferences"`
	LastT      float64          `json:"last_t,omitempty"`
	StartedAt  *time.Time       `json:"started_at,omitempty"`
	FinishedAt *time.Time       `json:"finished_at,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// DetectionAlert is published for every stored inference carrying a confident hit.
type DetectionAlert struct {
	SourceKind model.SourceKind `json:"source_kind"`
	SourceId   int              `json:"source_id"`
	T          float64          `json:"t"`
	Hits       []Hit            `json:"hits"`
}
