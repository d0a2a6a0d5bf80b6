package constant

type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusFailed     JobStatus = "FAILED"
	JobStatusCompleted  JobStatus = "COMPLETED"
)

type JobType string

const (
	JobTypeRecordingMerge JobType = "recording_merge"
)

type RecorderState string

const (
	RecorderStateIdle      RecorderState = "IDLE"
	RecorderStateRecording RecorderState = "RECORDING"
	RecorderStateStopped   RecorderState = "STOPPED"
)

type ChunkStatus string

const (
	ChunkStatusUploaded   ChunkStatus = "UPLOADED"
	ChunkStatusProcessing ChunkStatus = "PROCESSING"
	ChunkStatusCompleted  ChunkStatus = "COMPLETED"
	ChunkStatusFailed     ChunkStatus = "FAILED"
)

type StorageBackend string

const (
	StorageBackendMinIO StorageBackend = "minio"
	StorageBackendS3    StorageBackend = "s3"
)

type Environment string

const (
	EnvironmentProduction Environment = "production"
	EnvironmentStaging    Environment = "staging"
	EnvironmentDevelop    Environment = "develop"
)

func (e Environment) String() string {
	return string(e)
}
