package types

// Status is the lifecycle state of a video in the processing pipeline.
type Status string

const (
	StatusQueueing     Status = "QUEUEING"
	StatusConverting   Status = "CONVERTING"
	StatusConverted    Status = "CONVERTED"
	StatusTranscribing Status = "TRANSCRIBING"
	StatusTranscribed  Status = "TRANSCRIBED"
	StatusFailed       Status = "FAILED"
)

var statusRank = map[Status]int{
	StatusQueueing:     0,
	StatusConverting:   1,
	StatusConverted:    2,
	StatusTranscribing: 3,
	StatusTranscribed:  4,
}

// Rank returns the position of a status on the forward chain
// QUEUEING → CONVERTING → CONVERTED → TRANSCRIBING → TRANSCRIBED.
// FAILED and unknown statuses return -1; they are outside the chain.
func (s Status) Rank() int {
	rank, ok := statusRank[s]
	if !ok {
		return -1
	}
	return rank
}

// Terminal reports whether the pipeline takes no further action on s.
func (s Status) Terminal() bool {
	return s == StatusTranscribed || s == StatusFailed
}

// Video is the subset of the videos record the pipeline reads and writes.
type Video struct {
	ID        string
	Title     string
	Type      string
	Status    Status
	URL       string
	Text      string
	CreatedAt int64
	UpdatedAt int64
}
