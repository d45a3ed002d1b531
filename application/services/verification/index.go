package verification

import (
	"context"
	"fmt"
	"math"
	"time"

	"idgate.io/application/utils"
	"idgate.io/infrastructure/logger"
	"idgate.io/infrastructure/vision/types"
	"gocv.io/x/gocv"
)

// Gate markers stamped on skipped checks so a short-circuited verdict is
// still fully populated.
const (
	reasonDuplicate = "duplicate image detected"
	reasonNoDoc     = "no document detected"
	reasonFaceOnly  = "document is just a face"
	reasonAborted   = "verification aborted"
)

// VerificationService sequences the gates and checks of the decision
// pipeline. All detectors are injected at construction and shared across
// requests; per-request data is owned by the request alone.
type VerificationService struct {
	similarity   SimilarityGate
	structure    StructureGate
	liveness     LivenessChecker
	deepfake     DeepfakeChecker
	authenticity AuthenticityChecker
	faceMatch    FaceComparer
	executor     *CheckExecutor

	weights         DecisionWeights
	approveCutPoint float64
	reviewCutPoint  float64
}

// Deps bundles the constructor injection for VerificationService.
type Deps struct {
	Similarity   SimilarityGate
	Structure    StructureGate
	Liveness     LivenessChecker
	Deepfake     DeepfakeChecker
	Authenticity AuthenticityChecker
	FaceMatch    FaceComparer
	Executor     *CheckExecutor

	Weights         DecisionWeights
	ApproveCutPoint float64
	ReviewCutPoint  float64
}

func NewVerificationService(deps Deps) *VerificationService {
	executor := deps.Executor
	if executor == nil {
		executor = NewCheckExecutor(1)
	}
	return &VerificationService{
		similarity:      deps.Similarity,
		structure:       deps.Structure,
		liveness:        deps.Liveness,
		deepfake:        deps.Deepfake,
		authenticity:    deps.Authenticity,
		faceMatch:       deps.FaceMatch,
		executor:        executor,
		weights:         deps.Weights,
		approveCutPoint: deps.ApproveCutPoint,
		reviewCutPoint:  deps.ReviewCutPoint,
	}
}

// Verify runs the full pipeline over a document image and a selfie and
// returns the aggregated verdict. Gates short-circuit to rejected with
// confidence 0; the four scored checks always run to completion once
// started, each fault defaulting per its documented policy.
func (vs *VerificationService) Verify(ctx context.Context, docImage gocv.Mat, selfieImage gocv.Mat, fields *types.DocumentFields) *Verdict {
	requestID := utils.GenerateUULDString()
	start := time.Now()

	verdict := &Verdict{RequestID: requestID}

	var similarity *types.SimilarityResult
	vs.runGate("duplicate_gate", func() {
		similarity = vs.similarity.AreImagesTooSimilar(docImage, selfieImage)
	}, func(r any) {
		msg := fmt.Sprintf("similarity fault: %v", r)
		similarity = &types.SimilarityResult{IsDuplicate: false, Passed: true, Error: &msg}
	})
	verdict.Checks.Duplicate = evaluated(similarity)
	if similarity.IsDuplicate {
		logger.Warning("duplicate image pair rejected", logger.LoggerOptions{
			Key:  "request_id",
			Data: requestID,
		}, logger.LoggerOptions{
			Key:  "similarity_score",
			Data: similarity.SimilarityScore,
		})
		vs.markSkippedFrom(verdict, stageStructure, reasonDuplicate)
		return vs.finishRejected(verdict, start,
			"❌ Verification failed: same image submitted for document and selfie")
	}

	if aborted := vs.abortIfDone(ctx, verdict, start, stageStructure); aborted {
		return verdict
	}

	var structure *types.StructureResult
	vs.runGate("structure_gate", func() {
		structure = vs.structure.DetectDocumentStructure(docImage)
	}, func(r any) {
		structure = &types.StructureResult{HasDocument: true, Passed: true}
	})
	verdict.Checks.Structure = evaluated(structure)
	if !structure.HasDocument {
		vs.markSkippedFrom(verdict, stageFaceOnly, reasonNoDoc)
		return vs.finishRejected(verdict, start,
			"❌ Verification failed: no identity document detected in the image")
	}

	var faceOnly *types.FaceOnlyResult
	vs.runGate("face_only_gate", func() {
		faceOnly = vs.structure.IsJustAFace(docImage)
	}, func(r any) {
		msg := fmt.Sprintf("face-only fault: %v", r)
		faceOnly = &types.FaceOnlyResult{IsJustFace: false, Passed: true, Error: &msg}
	})
	verdict.Checks.FaceOnly = evaluated(faceOnly)
	if faceOnly.IsJustFace {
		vs.markSkippedFrom(verdict, stageScored, reasonFaceOnly)
		return vs.finishRejected(verdict, start,
			"❌ Verification failed: document image is a close-up face, not a document")
	}

	if aborted := vs.abortIfDone(ctx, verdict, start, stageScored); aborted {
		return verdict
	}

	vs.runScoredChecks(verdict, docImage, selfieImage, fields)

	if err := ctx.Err(); err != nil {
		verdict.Status = StatusError
		verdict.Confidence = 0
		verdict.Message = fmt.Sprintf("⛔ Verification aborted: %s", err.Error())
		verdict.ProcessingMS = time.Since(start).Milliseconds()
		return verdict
	}

	return vs.decide(verdict, start)
}

// pipeline stages used to mark every check a gate left unevaluated
type stage int

const (
	stageStructure stage = iota
	stageFaceOnly
	stageScored
)

func (vs *VerificationService) markSkippedFrom(verdict *Verdict, from stage, reason string) {
	if from <= stageStructure {
		verdict.Checks.Structure = skipped[types.StructureResult](reason)
	}
	if from <= stageFaceOnly {
		verdict.Checks.FaceOnly = skipped[types.FaceOnlyResult](reason)
	}
	verdict.Checks.Liveness = skipped[types.LivenessResult](reason)
	verdict.Checks.Deepfake = skipped[types.DeepfakeResult](reason)
	verdict.Checks.Authenticity = skipped[types.AuthenticityResult](reason)
	verdict.Checks.FaceMatch = skipped[types.FaceMatchResult](reason)
}

func (vs *VerificationService) abortIfDone(ctx context.Context, verdict *Verdict, start time.Time, next stage) bool {
	err := ctx.Err()
	if err == nil {
		return false
	}
	reason := fmt.Sprintf("%s: %s", reasonAborted, err.Error())
	vs.markSkippedFrom(verdict, next, reason)
	verdict.Status = StatusError
	verdict.Confidence = 0
	verdict.Message = fmt.Sprintf("⛔ Verification aborted: %s", err.Error())
	verdict.ProcessingMS = time.Since(start).Milliseconds()
	return true
}

// runGate routes a gate heuristic through the shared executor, so a
// single-worker pool serializes gates and scored checks alike across every
// in-flight request. Gates fail open on an escaping fault.
func (vs *VerificationService) runGate(name string, run func(), onPanic func(recovered any)) {
	vs.executor.Run([]Task{{Name: name, Run: run, OnPanic: onPanic}})
}

// runScoredChecks executes the four independent checks. A panicking check is
// replaced by its fault default: liveness and authenticity fail closed, the
// deepfake classifier degrades to its neutral result, face match reports not
// matched with confidence 0.
func (vs *VerificationService) runScoredChecks(verdict *Verdict, docImage gocv.Mat, selfieImage gocv.Mat, fields *types.DocumentFields) {
	tasks := []Task{
		{
			Name: "liveness",
			Run: func() {
				verdict.Checks.Liveness = evaluated(vs.liveness.Check(selfieImage, nil))
			},
			OnPanic: func(r any) {
				msg := fmt.Sprintf("liveness fault: %v", r)
				verdict.Checks.Liveness = evaluated(&types.LivenessResult{
					IsLive:        false,
					LivenessScore: 0,
					ChecksPassed:  "0/6",
					Confidence:    "low",
					Error:         &msg,
				})
			},
		},
		{
			Name: "deepfake",
			Run: func() {
				verdict.Checks.Deepfake = evaluated(vs.deepfake.Detect(selfieImage))
			},
			OnPanic: func(r any) {
				msg := fmt.Sprintf("deepfake fault: %v", r)
				verdict.Checks.Deepfake = evaluated(&types.DeepfakeResult{
					IsReal:         true,
					Confidence:     0.5,
					Label:          "unknown",
					ModelAvailable: false,
					Error:          &msg,
				})
			},
		},
		{
			Name: "document_authenticity",
			Run: func() {
				verdict.Checks.Authenticity = evaluated(vs.authenticity.CheckAuthenticity(docImage, fields))
			},
			OnPanic: func(r any) {
				msg := fmt.Sprintf("authenticity fault: %v", r)
				verdict.Checks.Authenticity = evaluated(&types.AuthenticityResult{
					IsAuthentic:       false,
					AuthenticityScore: 0,
					ChecksPassed:      "0/1",
					Checks: types.AuthenticityChecks{
						Tampering: types.TamperCheck{IsTampered: true, Passed: false, Error: &msg},
					},
				})
			},
		},
		{
			Name: "face_match",
			Run: func() {
				verdict.Checks.FaceMatch = evaluated(vs.faceMatch.MatchFaces(docImage, selfieImage))
			},
			OnPanic: func(r any) {
				msg := fmt.Sprintf("face match fault: %v", r)
				verdict.Checks.FaceMatch = evaluated(&types.FaceMatchResult{
					Matched:    false,
					Confidence: 0,
					Strategy:   "none",
					Error:      &msg,
				})
			},
		},
	}
	vs.executor.Run(tasks)
}

// decide folds the four scored results into the weighted overall confidence
// and maps it onto the terminal statuses.
func (vs *VerificationService) decide(verdict *Verdict, start time.Time) *Verdict {
	liveness := verdict.Checks.Liveness.Result
	deepfake := verdict.Checks.Deepfake.Result
	authenticity := verdict.Checks.Authenticity.Result
	faceMatch := verdict.Checks.FaceMatch.Result

	// the deepfake contribution is the probability of the real class, so a
	// confident fake verdict pulls the score down instead of up
	realScore := deepfake.Confidence
	if !deepfake.IsReal {
		realScore = 1 - deepfake.Confidence
	}

	overall := liveness.LivenessScore*100*vs.weights.Liveness +
		faceMatch.Confidence*vs.weights.FaceMatch +
		authenticity.AuthenticityScore*vs.weights.Authenticity +
		realScore*100*vs.weights.Deepfake
	overall = math.Max(0, math.Min(100, overall))

	verdict.Confidence = overall
	switch {
	case overall >= vs.approveCutPoint:
		verdict.Status = StatusApproved
		verdict.Message = fmt.Sprintf("✅ Identity verified (confidence: %.1f%%)", overall)
	case overall >= vs.reviewCutPoint:
		verdict.Status = StatusManualReview
		verdict.Message = fmt.Sprintf("⚠️ Manual review required (confidence: %.1f%%)", overall)
	default:
		verdict.Status = StatusRejected
		verdict.Message = fmt.Sprintf("❌ Verification failed (confidence: %.1f%%)", overall)
	}
	verdict.ProcessingMS = time.Since(start).Milliseconds()

	logger.Info("verification decided", logger.LoggerOptions{
		Key:  "request_id",
		Data: verdict.RequestID,
	}, logger.LoggerOptions{
		Key:  "status",
		Data: string(verdict.Status),
	}, logger.LoggerOptions{
		Key:  "confidence",
		Data: overall,
	})
	return verdict
}

func (vs *VerificationService) finishRejected(verdict *Verdict, start time.Time, message string) *Verdict {
	verdict.Status = StatusRejected
	verdict.Confidence = 0
	verdict.Message = message
	verdict.ProcessingMS = time.Since(start).Milliseconds()
	return verdict
}
