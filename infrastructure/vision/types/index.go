package types

// Every check in the pipeline reports through one of the fixed-shape result
// records below. A record always carries the raw score(s) that produced its
// verdict so a reviewer can audit the decision. A record with a populated
// Error field was defaulted after an internal fault; whether the default
// passes or fails is the documented policy of that check, not an accident of
// exception handling.

// SimilarityBreakdown holds the per-method scores behind a duplicate verdict.
type SimilarityBreakdown struct {
	SSIM            float64 `json:"ssim"`
	Histogram       float64 `json:"histogram"`
	PixelSimilarity float64 `json:"pixel_similarity"`
	HashSimilarity  float64 `json:"hash_similarity"`
}

// SimilarityResult is the outcome of the duplicate-image gate. Policy on
// internal fault: fail open (IsDuplicate=false, Passed=true).
type SimilarityResult struct {
	IsDuplicate     bool                `json:"is_duplicate"`
	SimilarityScore float64             `json:"similarity_score"`
	Details         SimilarityBreakdown `json:"details"`
	Method          string              `json:"method"`
	Passed          bool                `json:"passed"`
	ThresholdUsed   float64             `json:"threshold_used"`
	Error           *string             `json:"error,omitempty"`
}

// DuplicatePair identifies two images in a batch that exceeded the
// similarity threshold.
type DuplicatePair struct {
	First      int     `json:"first"`
	Second     int     `json:"second"`
	Similarity float64 `json:"similarity"`
}

// UniquenessResult is the outcome of a batch uniqueness sweep.
type UniquenessResult struct {
	AllUnique        bool            `json:"all_unique"`
	DuplicatesFound  []DuplicatePair `json:"duplicates_found"`
	TotalComparisons int             `json:"total_comparisons"`
}

// CardEdgesFeature reports the card/document edge sub-detector.
type CardEdgesFeature struct {
	Detected        bool    `json:"detected"`
	RectanglesFound int     `json:"rectangles_found"`
	Error           *string `json:"error,omitempty"`
}

// TextRegionsFeature reports the structured text-line sub-detector.
type TextRegionsFeature struct {
	HasTextRegions   bool    `json:"has_text_regions"`
	TextRegionsCount int     `json:"text_regions_count"`
	Error            *string `json:"error,omitempty"`
}

// SecurityFeature reports the reflective/security-patch sub-detector.
// Policy on internal fault or grayscale input: fail open (Detected=true).
type SecurityFeature struct {
	Detected   bool    `json:"detected"`
	ShinyRatio float64 `json:"shiny_ratio"`
	Reason     string  `json:"reason,omitempty"`
	Error      *string `json:"error,omitempty"`
}

// PhotoRegionFeature reports the distinct photo-region sub-detector.
type PhotoRegionFeature struct {
	Detected        bool    `json:"detected"`
	PhotoCandidates int     `json:"photo_candidates"`
	Error           *string `json:"error,omitempty"`
}

// ProportionsFeature reports the aspect-ratio sub-detector.
type ProportionsFeature struct {
	IsDocumentSized bool    `json:"is_document_sized"`
	AspectRatio     float64 `json:"aspect_ratio"`
	Orientation     string  `json:"orientation"`
	Error           *string `json:"error,omitempty"`
}

// StructureFeatures bundles the five structural signals.
type StructureFeatures struct {
	CardEdges        CardEdgesFeature   `json:"card_edges"`
	TextRegions      TextRegionsFeature `json:"text_regions"`
	SecurityFeatures SecurityFeature    `json:"security_features"`
	PhotoRegion      PhotoRegionFeature `json:"photo_region"`
	Proportions      ProportionsFeature `json:"proportions"`
}

// StructureResult is the outcome of the document-structure classifier.
type StructureResult struct {
	HasDocument      bool              `json:"has_document"`
	Confidence       float64           `json:"confidence"`
	FeaturesDetected StructureFeatures `json:"features_detected"`
	Passed           bool              `json:"passed"`
	ThresholdUsed    float64           `json:"threshold_used"`
}

// FaceOnlyResult is the outcome of the close-up-face companion check on the
// document image. Policy on internal fault: fail open (Passed=true); absence
// of a detectable face also counts as "not just a face".
type FaceOnlyResult struct {
	IsJustFace    bool    `json:"is_just_face"`
	FaceAreaRatio float64 `json:"face_area_ratio"`
	Reason        string  `json:"reason,omitempty"`
	Passed        bool    `json:"passed"`
	Error         *string `json:"error,omitempty"`
}

// LivenessCheck is one liveness sub-check. Policy on internal fault: fail
// closed. A broken sub-check counts against liveness, never as skipped.
type LivenessCheck struct {
	Passed bool    `json:"passed"`
	Score  float64 `json:"score"`
	Error  *string `json:"error,omitempty"`
}

// LivenessChecks bundles the six liveness sub-checks.
type LivenessChecks struct {
	Blur            LivenessCheck `json:"blur"`
	Reflection      LivenessCheck `json:"specular_reflection"`
	MicroTexture    LivenessCheck `json:"micro_texture"`
	PrintAttack     LivenessCheck `json:"print_attack"`
	DepthCues       LivenessCheck `json:"depth_cues"`
	FaceProportions LivenessCheck `json:"face_proportions"`
}

// LivenessResult is the outcome of the liveness evaluator. No detectable
// face is a hard failure: IsLive=false, LivenessScore=0.
type LivenessResult struct {
	IsLive        bool           `json:"is_live"`
	LivenessScore float64        `json:"liveness_score"`
	ChecksPassed  string         `json:"checks_passed"`
	Confidence    string         `json:"confidence"`
	Checks        LivenessChecks `json:"checks"`
	Error         *string        `json:"error,omitempty"`
}

// TamperCheck reports the noise-uniformity tamper grid.
type TamperCheck struct {
	IsTampered bool    `json:"is_tampered"`
	Uniformity float64 `json:"uniformity"`
	Passed     bool    `json:"passed"`
	Error      *string `json:"error,omitempty"`
}

// ConsistencyCheck reports date-of-birth plausibility.
type ConsistencyCheck struct {
	IsConsistent bool     `json:"is_consistent"`
	Issues       []string `json:"issues"`
	Passed       bool     `json:"passed"`
}

// ExpiryCheck reports document expiry validation.
type ExpiryCheck struct {
	IsValid         bool    `json:"is_valid"`
	Status          string  `json:"status"`
	DaysUntilExpiry int     `json:"days_until_expiry"`
	Passed          bool    `json:"passed"`
	Error           *string `json:"error,omitempty"`
}

// AuthenticityChecks bundles the document-authenticity sub-checks. The
// consistency and expiry checks only run when structured document fields
// were supplied.
type AuthenticityChecks struct {
	Tampering        TamperCheck       `json:"tampering"`
	DataConsistency  *ConsistencyCheck `json:"data_consistency,omitempty"`
	ExpiryValidation *ExpiryCheck      `json:"expiry_validation,omitempty"`
}

// AuthenticityResult is the outcome of the document authenticator. When zero
// checks executed the score defaults to the neutral 50.
type AuthenticityResult struct {
	IsAuthentic       bool               `json:"is_authentic"`
	AuthenticityScore float64            `json:"authenticity_score"`
	ChecksPassed      string             `json:"checks_passed"`
	Checks            AuthenticityChecks `json:"checks"`
}

// QualityMetrics describes an image's fitness for face matching.
type QualityMetrics struct {
	Sharpness     float64 `json:"sharpness"`
	Brightness    float64 `json:"brightness"`
	Contrast      float64 `json:"contrast"`
	Resolution    int     `json:"resolution"`
	QualityScore  float64 `json:"quality_score"`
	IsGoodQuality bool    `json:"is_good_quality"`
}

// FaceMatchResult is the outcome of the face-matching adapter. A missing
// face in either image yields Matched=false, Confidence=0 with an explicit
// error rather than a fault.
type FaceMatchResult struct {
	Matched       bool            `json:"matched"`
	Confidence    float64         `json:"confidence"`
	Distance      float64         `json:"distance"`
	Strategy      string          `json:"strategy"`
	ThresholdUsed float64         `json:"threshold_used"`
	DocQuality    *QualityMetrics `json:"doc_quality,omitempty"`
	SelfieQuality *QualityMetrics `json:"selfie_quality,omitempty"`
	Error         *string         `json:"error,omitempty"`
}

// DeepfakeResult is the outcome of the deepfake classifier adapter. When the
// model is unavailable the result degrades to a neutral default instead of
// failing the pipeline.
type DeepfakeResult struct {
	IsReal         bool    `json:"is_real"`
	Confidence     float64 `json:"confidence"`
	Label          string  `json:"label"`
	ModelAvailable bool    `json:"model_available"`
	Error          *string `json:"error,omitempty"`
}

// DocumentFields carries structured document data (typically from MRZ
// extraction) into the optional authenticity checks. Dates use the layouts
// the extraction subsystem emits (YYYYMMDD, DDMMYYYY or YYYY-MM-DD).
type DocumentFields struct {
	BirthDate  string `json:"birth_date,omitempty"`
	ExpiryDate string `json:"expiry_date,omitempty"`
}
