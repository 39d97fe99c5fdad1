package types

// Workflow payloads are fixed per workflow; each stage's inter-stage datum is
// a scalar or a path into the shared storage volume, never binary content.

// VideoPayload drives the split -> transcode* -> merge pipeline
type VideoPayload struct {
	VideoName    string `json:"video_name"`
	SegmentTime  int    `json:"segment_time"`
	TargetType   string `json:"target_type"`
	OutputPrefix string `json:"output_prefix"`
}

// RecognizerPayload drives the image moderation pipeline
type RecognizerPayload struct {
	ImageFilename string `json:"image_filename"`
}

// SVDPayload drives the svd_start -> svd_compute* -> svd_merge pipeline
type SVDPayload struct {
	RowNum   int `json:"row_num"`
	ColNum   int `json:"col_num"`
	SliceNum int `json:"slice_num"`
}

// WordcountPayload drives the wordcount map/reduce pipeline
type WordcountPayload struct {
	InputFilename string `json:"input_filename"`
	SliceNum      int    `json:"slice_num"`
}

// SVDPartial is one svd_compute result, merged by svd_merge in mat_index order
type SVDPartial struct {
	MatIndex int    `json:"mat_index"`
	UPath    string `json:"u_path"`
	SPath    string `json:"s_path"`
	VPath    string `json:"v_path"`
}

// RecognizerResult is the assembled outcome of the recognizer workflow
type RecognizerResult struct {
	Illegal        bool           `json:"illegal"`
	FinalImagePath string         `json:"final_image_path"`
	TranslatedText string         `json:"translated_text,omitempty"`
	Details        map[string]any `json:"details"`
}
