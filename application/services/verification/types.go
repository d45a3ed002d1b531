package verification

import (
	"image"

	"idgate.io/infrastructure/vision/types"
	"gocv.io/x/gocv"
)

// VerificationStatus is the terminal status of a verification request.
type VerificationStatus string

const (
	StatusApproved     VerificationStatus = "approved"
	StatusManualReview VerificationStatus = "manual_review"
	StatusRejected     VerificationStatus = "rejected"
	StatusError        VerificationStatus = "error"
)

// CheckState distinguishes a check that ran from one a prior gate skipped.
type CheckState string

const (
	CheckEvaluated CheckState = "evaluated"
	CheckSkipped   CheckState = "skipped"
)

// Outcome wraps one check's result with its evaluation state. A skipped
// outcome carries the gate marker in Reason and a nil Result; it is always
// present in the verdict, never omitted.
type Outcome[T any] struct {
	State  CheckState `json:"state"`
	Reason string     `json:"reason,omitempty"`
	Result *T         `json:"result,omitempty"`
}

func evaluated[T any](result *T) Outcome[T] {
	return Outcome[T]{State: CheckEvaluated, Result: result}
}

func skipped[T any](reason string) Outcome[T] {
	return Outcome[T]{State: CheckSkipped, Reason: reason}
}

// CheckReport carries every check's outcome, gates included.
type CheckReport struct {
	Duplicate    Outcome[types.SimilarityResult]   `json:"duplicate"`
	Structure    Outcome[types.StructureResult]    `json:"document_structure"`
	FaceOnly     Outcome[types.FaceOnlyResult]     `json:"face_only"`
	Liveness     Outcome[types.LivenessResult]     `json:"liveness"`
	Deepfake     Outcome[types.DeepfakeResult]     `json:"deepfake"`
	Authenticity Outcome[types.AuthenticityResult] `json:"document_authenticity"`
	FaceMatch    Outcome[types.FaceMatchResult]    `json:"face_match"`
}

// Verdict is the single output of a verification request. Confidence is only
// meaningful when no gate fired; a short-circuit forces it to 0.
type Verdict struct {
	RequestID    string             `json:"request_id"`
	Status       VerificationStatus `json:"status"`
	Confidence   float64            `json:"overall_confidence"`
	Message      string             `json:"message"`
	Checks       CheckReport        `json:"checks"`
	ProcessingMS int64              `json:"processing_ms"`
}

// The pipeline depends on the narrow interfaces below rather than the
// concrete detectors so decision logic is testable without model files.

type SimilarityGate interface {
	AreImagesTooSimilar(image1, image2 gocv.Mat) *types.SimilarityResult
}

type StructureGate interface {
	DetectDocumentStructure(img gocv.Mat) *types.StructureResult
	IsJustAFace(img gocv.Mat) *types.FaceOnlyResult
}

type LivenessChecker interface {
	Check(img gocv.Mat, faceRegion *image.Rectangle) *types.LivenessResult
}

type DeepfakeChecker interface {
	Detect(img gocv.Mat) *types.DeepfakeResult
}

type AuthenticityChecker interface {
	CheckAuthenticity(img gocv.Mat, fields *types.DocumentFields) *types.AuthenticityResult
}

type FaceComparer interface {
	MatchFaces(docImage, selfieImage gocv.Mat) *types.FaceMatchResult
}

// DecisionWeights are the contributions of the four scored checks to the
// overall confidence. They must sum to 1.0.
type DecisionWeights struct {
	Liveness     float64
	FaceMatch    float64
	Authenticity float64
	Deepfake     float64
}
