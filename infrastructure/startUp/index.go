package startup

import (
	"image"

	"idgate.io/application/controller"
	"idgate.io/application/services/extraction"
	"idgate.io/application/services/verification"
	"idgate.io/infrastructure/env"
	"idgate.io/infrastructure/logger"
	"idgate.io/infrastructure/ocr"
	"idgate.io/infrastructure/vision"
)

var faceDetector *vision.FaceDetector
var faceMatcher *vision.FaceMatcher
var deepfakeClassifier *vision.DeepfakeClassifier
var checkExecutor *verification.CheckExecutor

// StartServices constructs every detector and service exactly once and
// wires them into the controllers. Model handles are immutable after this
// point and safe to read concurrently.
func StartServices() {
	logger.InitializeLogger()
	cfg := env.Current()

	faceDetector = vision.NewFaceDetector(cfg.FaceCascadePath)
	faceMatcher = vision.NewFaceMatcher(vision.FaceMatcherConfig{
		ModelPath: cfg.FaceEmbeddingPath,
		InputSize: image.Pt(112, 112),
		Tolerance: cfg.FaceMatchTolerance,
	}, faceDetector)
	deepfakeClassifier = vision.NewDeepfakeClassifier(vision.DeepfakeConfig{
		ModelPath: cfg.DeepfakeModelPath,
		InputSize: image.Pt(224, 224),
	})

	// one shared pool for the whole process; CHECK_WORKERS=1 serializes all
	// image analysis across concurrent requests
	checkExecutor = verification.NewCheckExecutor(cfg.CheckWorkers)

	verificationService := verification.NewVerificationService(verification.Deps{
		Similarity: vision.NewSimilarityDetector(cfg.SimilarityThreshold),
		Structure:  vision.NewStructureClassifier(cfg.StructureMinConfidence, cfg.FaceOnlyAreaRatio, faceDetector),
		Liveness: vision.NewLivenessEvaluator(vision.LivenessConfig{
			BlurThreshold:        cfg.BlurThreshold,
			ReflectionMinPercent: cfg.ReflectionMinPercent,
			MicroTextureMin:      cfg.MicroTextureMin,
			PrintAttackEnergyMax: cfg.PrintAttackEnergyMax,
			DepthCueMin:          cfg.DepthCueMin,
			FaceSizeMin:          cfg.FaceSizeMin,
			FaceSizeMax:          cfg.FaceSizeMax,
			ScoreThreshold:       cfg.LivenessThreshold,
			HighBand:             cfg.LivenessHighBand,
		}, faceDetector),
		Deepfake:     deepfakeClassifier,
		Authenticity: vision.NewDocumentAuthenticator(cfg.AuthenticityMinScore, cfg.TamperUniformityMin),
		FaceMatch:    faceMatcher,
		Executor:     checkExecutor,
		Weights: verification.DecisionWeights{
			Liveness:     cfg.WeightLiveness,
			FaceMatch:    cfg.WeightFaceMatch,
			Authenticity: cfg.WeightAuthenticity,
			Deepfake:     cfg.WeightDeepfake,
		},
		ApproveCutPoint: cfg.ApproveCutPoint,
		ReviewCutPoint:  cfg.ReviewCutPoint,
	})

	extractionService := extraction.NewExtractionService(ocr.NewMRZReader(cfg.TessdataPrefix))

	controller.InjectServices(verificationService, extractionService)
	controller.InjectHealthProbe(func() map[string]bool {
		return map[string]bool{
			"face_detector":       faceDetector.IsHealthy(),
			"face_embedding":      faceMatcher.IsHealthy(),
			"deepfake_classifier": deepfakeClassifier.IsHealthy(),
		}
	})

	logger.Info("services initialized", logger.LoggerOptions{
		Key:  "check_workers",
		Data: cfg.CheckWorkers,
	})
}

// CleanUpServices stops the check workers and releases the native detector
// handles on shutdown.
func CleanUpServices() {
	if checkExecutor != nil {
		checkExecutor.Close()
	}
	if faceDetector != nil {
		faceDetector.Close()
	}
	if faceMatcher != nil {
		faceMatcher.Close()
	}
	if deepfakeClassifier != nil {
		deepfakeClassifier.Close()
	}
}
