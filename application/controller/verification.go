package controller

import (
	"fmt"
	"net/http"

	apperrors "idgate.io/application/appErrors"
	"idgate.io/application/controller/dto"
	"idgate.io/application/interfaces"
	"idgate.io/application/services/extraction"
	"idgate.io/application/services/verification"
	"idgate.io/application/utils"
	"idgate.io/infrastructure/env"
	server_response "idgate.io/infrastructure/serverResponse"
	"idgate.io/infrastructure/vision"
	"idgate.io/infrastructure/vision/types"
	"gocv.io/x/gocv"
)

var verificationService *verification.VerificationService
var extractionService *extraction.ExtractionService

// InjectServices hands the controllers their service instances. Called once
// during startup, before routes are mounted.
func InjectServices(vs *verification.VerificationService, es *extraction.ExtractionService) {
	verificationService = vs
	extractionService = es
}

func VerifyIdentity(ctx *interfaces.ApplicationContext[dto.VerifyIdentityDTO]) {
	docImage, ok := decodeBoundedImage(ctx.Ctx, ctx.Body.DocumentImage, "document image")
	if !ok {
		return
	}
	defer docImage.Close()

	selfieImage, ok := decodeBoundedImage(ctx.Ctx, ctx.Body.SelfieImage, "selfie image")
	if !ok {
		return
	}
	defer selfieImage.Close()

	var fields *types.DocumentFields
	if ctx.Body.BirthDate != "" || ctx.Body.ExpiryDate != "" {
		fields = &types.DocumentFields{
			BirthDate:  ctx.Body.BirthDate,
			ExpiryDate: ctx.Body.ExpiryDate,
		}
	}

	verdict := verificationService.Verify(ctx.Ctx.Request.Context(), docImage, selfieImage, fields)
	server_response.Responder.Respond(ctx.Ctx, http.StatusOK, verdict.Message, verdict, nil)
}

// decodeBoundedImage decodes a base64 payload and enforces the upload
// bounds before any analysis touches the pixels.
func decodeBoundedImage(ctx interface{}, payload string, label string) (gocv.Mat, bool) {
	raw, err := utils.DecodeBase64Image(payload)
	if err != nil {
		apperrors.ErrorProcessingPayload(ctx)
		return gocv.Mat{}, false
	}

	cfg := env.Current()
	if int64(len(raw)) > cfg.MaxUploadBytes {
		apperrors.ClientError(ctx, fmt.Sprintf("%s exceeds the maximum upload size of %d bytes", label, cfg.MaxUploadBytes), nil)
		return gocv.Mat{}, false
	}

	img, err := vision.DecodeImage(raw)
	if err != nil {
		apperrors.ClientError(ctx, fmt.Sprintf("%s could not be decoded", label), nil)
		return gocv.Mat{}, false
	}

	width, height := img.Cols(), img.Rows()
	if width < cfg.MinImageWidth || height < cfg.MinImageHeight {
		img.Close()
		apperrors.ClientError(ctx, fmt.Sprintf("%s is %dx%d, below the minimum of %dx%d",
			label, width, height, cfg.MinImageWidth, cfg.MinImageHeight), nil)
		return gocv.Mat{}, false
	}
	if width > cfg.MaxImageWidth || height > cfg.MaxImageHeight {
		img.Close()
		apperrors.ClientError(ctx, fmt.Sprintf("%s is %dx%d, above the maximum of %dx%d",
			label, width, height, cfg.MaxImageWidth, cfg.MaxImageHeight), nil)
		return gocv.Mat{}, false
	}
	return img, true
}
