package domain

import "time"

// TaskStatus is the coarse pipeline marker stored on a VideoTask.
type TaskStatus string

const (
	TaskNotStarted   TaskStatus = "NOT_STARTED"
	TaskTranscribing TaskStatus = "TRANSCRIBING"
	TaskCaptioning   TaskStatus = "CAPTIONING"
	TaskTranscoding  TaskStatus = "TRANSCODING"
	TaskCompleted    TaskStatus = "COMPLETED"
	TaskFailed       TaskStatus = "FAILED"
)

// Stage identifies which processing handler finished.
type Stage string

const (
	StageTranscription Stage = "transcription"
	StageCaptioning    Stage = "captioning"
)

// VideoTask tracks one video through transcription and captioning.
// PK: video_id.
type VideoTask struct {
	VideoID   string     `json:"video_id" dynamodbav:"video_id"`
	UserID    string     `json:"user_id" dynamodbav:"user_id"`
	Status    TaskStatus `json:"status" dynamodbav:"status"`
	CreatedAt time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt time.Time  `json:"updated" dynamodbav:"updated_at"`
}

// NextTaskStatus returns the status after stage completes on a task currently in
// cur. The first finished stage moves the task to its own marker, the other stage
// finishing moves it to TRANSCODING. Repeating a stage never moves backwards and
// terminal statuses are left alone.
func NextTaskStatus(cur TaskStatus, stage Stage) TaskStatus {
	switch cur {
	case TaskNotStarted, "":
		if stage == StageTranscription {
			return TaskTranscribing
		}
		return TaskCaptioning
	case TaskTranscribing:
		if stage == StageCaptioning {
			return TaskTranscoding
		}
	case TaskCaptioning:
		if stage == StageTranscription {
			return TaskTranscoding
		}
	}
	return cur
}
