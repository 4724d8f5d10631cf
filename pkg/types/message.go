package types

// Queue names, one per event in the pipeline vocabulary.
const (
	QueueVideoUploaded  = "video.uploaded"
	QueueAudioConverted = "audio.converted"
)

// VideoUploadedMessage announces that an original video blob is in object
// storage and ready for conversion.
type VideoUploadedMessage struct {
	ID        string `json:"id"`         // video record ID
	SourceKey string `json:"source_key"` // object storage key of the video blob
}

// AudioConvertedMessage announces that the extracted audio blob is in object
// storage and ready for transcription.
type AudioConvertedMessage struct {
	ID       string `json:"id"`        // video record ID
	AudioKey string `json:"audio_key"` // object storage key of the audio blob
}
