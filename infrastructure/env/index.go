package env

import (
	"os"
	"strconv"
	"strings"
	"sync"

	"idgate.io/infrastructure/logger"
	"github.com/joho/godotenv"
)

func init() {
	err := godotenv.Load()
	if err != nil {
		logger.Info("error loading env variables")
	}
}

func LoadEnv() {
}

// Settings holds every tunable of the verification pipeline. Parsed from the
// environment exactly once and immutable afterwards; nothing mutates a field
// per request.
type Settings struct {
	AppName string
	Port    string

	// comma-separated, see middleware.APIKeyMiddleware
	ValidAPIKeys []string

	// upload bounds enforced before images reach the pipeline
	MinImageWidth  int
	MinImageHeight int
	MaxImageWidth  int
	MaxImageHeight int
	MaxUploadBytes int64

	// similarity / duplicate gate
	SimilarityThreshold float64

	// document structure
	StructureMinConfidence float64
	FaceOnlyAreaRatio      float64

	// liveness
	LivenessThreshold     float64
	LivenessHighBand      float64
	BlurThreshold         float64
	ReflectionMinPercent  float64
	MicroTextureMin       float64
	PrintAttackEnergyMax  float64
	DepthCueMin           float64
	FaceSizeMin           int
	FaceSizeMax           int

	// document authenticity
	AuthenticityMinScore float64
	TamperUniformityMin  float64

	// face matching
	FaceMatchTolerance float64

	// decision
	WeightLiveness     float64
	WeightFaceMatch    float64
	WeightAuthenticity float64
	WeightDeepfake     float64
	ApproveCutPoint    float64
	ReviewCutPoint     float64

	// execution; 1 serializes all image analysis system-wide
	CheckWorkers int

	// model files
	FaceCascadePath   string
	FaceEmbeddingPath string
	DeepfakeModelPath string

	// MRZ OCR
	TessdataPrefix string
}

var (
	settings     *Settings
	settingsOnce sync.Once
)

// Current returns the process-wide settings, parsing the environment on first
// use.
func Current() *Settings {
	settingsOnce.Do(func() {
		settings = &Settings{
			AppName: stringEnv("APP_NAME", "idgate"),
			Port:    stringEnv("PORT", "8000"),

			ValidAPIKeys: splitEnv("VALID_API_KEYS"),

			MinImageWidth:  intEnv("MIN_IMAGE_WIDTH", 640),
			MinImageHeight: intEnv("MIN_IMAGE_HEIGHT", 480),
			MaxImageWidth:  intEnv("MAX_IMAGE_WIDTH", 4096),
			MaxImageHeight: intEnv("MAX_IMAGE_HEIGHT", 4096),
			MaxUploadBytes: int64(intEnv("MAX_UPLOAD_SIZE", 10<<20)),

			SimilarityThreshold: floatEnv("SIMILARITY_THRESHOLD", 0.95),

			StructureMinConfidence: floatEnv("STRUCTURE_MIN_CONFIDENCE", 0.25),
			FaceOnlyAreaRatio:      floatEnv("FACE_ONLY_AREA_RATIO", 0.60),

			LivenessThreshold:    floatEnv("LIVENESS_SCORE_MIN", 0.65),
			LivenessHighBand:     floatEnv("LIVENESS_SCORE_HIGH", 0.80),
			BlurThreshold:        floatEnv("BLUR_THRESHOLD", 80.0),
			ReflectionMinPercent: floatEnv("SPECULAR_REFLECTION_MIN", 20.0),
			MicroTextureMin:      floatEnv("MICRO_TEXTURE_SCORE_MIN", 0.15),
			PrintAttackEnergyMax: floatEnv("PRINT_ATTACK_ENERGY_MAX", 8e9),
			DepthCueMin:          floatEnv("DEPTH_CUE_SCORE_MIN", 0.3),
			FaceSizeMin:          intEnv("FACE_SIZE_MIN", 80),
			FaceSizeMax:          intEnv("FACE_SIZE_MAX", 800),

			AuthenticityMinScore: floatEnv("AUTHENTICITY_SCORE_MIN", 50.0),
			TamperUniformityMin:  floatEnv("TAMPER_UNIFORMITY_MIN", 0.7),

			FaceMatchTolerance: floatEnv("FACE_MATCH_TOLERANCE", 0.5),

			WeightLiveness:     floatEnv("WEIGHT_LIVENESS", 0.20),
			WeightFaceMatch:    floatEnv("WEIGHT_FACE_MATCH", 0.50),
			WeightAuthenticity: floatEnv("WEIGHT_AUTHENTICITY", 0.10),
			WeightDeepfake:     floatEnv("WEIGHT_DEEPFAKE", 0.20),
			ApproveCutPoint:    floatEnv("APPROVE_CUT_POINT", 75.0),
			ReviewCutPoint:     floatEnv("REVIEW_CUT_POINT", 55.0),

			CheckWorkers: intEnv("CHECK_WORKERS", 1),

			FaceCascadePath:   stringEnv("FACE_CASCADE_PATH", "./models/haarcascades/haarcascade_frontalface_alt.xml"),
			FaceEmbeddingPath: stringEnv("FACE_EMBEDDING_MODEL_PATH", "./models/face_recognition_sface_2021dec.onnx"),
			DeepfakeModelPath: stringEnv("DEEPFAKE_MODEL_PATH", "./models/deepfake_vs_real.onnx"),

			TessdataPrefix: stringEnv("TESSDATA_PREFIX", "/usr/share/tesseract-ocr/4/tessdata"),
		}
	})
	return settings
}

func stringEnv(key string, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logger.Warning("invalid integer env value, using default", logger.LoggerOptions{
			Key:  key,
			Data: value,
		})
		return fallback
	}
	return parsed
}

func floatEnv(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		logger.Warning("invalid float env value, using default", logger.LoggerOptions{
			Key:  key,
			Data: value,
		})
		return fallback
	}
	return parsed
}

func splitEnv(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	keys := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			keys = append(keys, trimmed)
		}
	}
	return keys
}
