package session

// User-facing messages
const (
	msgNoSource           = "Please select a file first"
	msgSourceEnded        = "Live capture has stopped. Start a new capture or select a file."
	msgUnsupported        = "Speech recognition is not available. Check the recognition backend configuration."
	msgNoInternet         = "No internet connection. Speech recognition requires network access."
	msgStartFailed        = "Failed to start speech recognition"
	msgNetworkIssue       = "Network connection issue detected. Please check your internet connection and try again."
	msgTooManyErrors      = "Too many speech recognition errors. Stopping transcription."
	msgNotAllowed         = "Microphone access denied. Please allow microphone access."
	msgServiceNotAllowed  = "Speech recognition service not allowed."
	msgRecognitionError   = "Speech recognition error: "
	msgNoNetworkRestart   = "No network connection. Please check your internet and try again."
	msgConnectionLost     = "Internet connection lost. Transcription requires network access."
	msgConnectionRestored = "Internet connection restored"
	msgCleared            = "Transcription results cleared"
	msgExtractionFailed   = "Audio extraction failed. Please check file format."
	msgUnsupportedMedia   = "Please select an MP4 or audio file"
	msgProcessing         = "Processing media file..."
	msgExtracting         = "Extracting audio..."
	msgExtracted          = "Audio extraction complete, preparing transcription..."
	msgReady              = "Ready to start transcription"
	msgTranscribing       = "Transcribing..."
	msgPaused             = "Transcription paused"
	msgStoppedNetwork     = "Transcription stopped due to network error. Click Start to retry."
	msgResetComplete      = "Reset complete, ready to start transcription"
	msgPlaybackFinished   = "Playback finished"
	msgSelectFile         = "Select a media file to begin"
)
