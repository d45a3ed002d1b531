package controller

import (
	"errors"
	"net/http"

	apperrors "idgate.io/application/appErrors"
	"idgate.io/application/controller/dto"
	"idgate.io/application/interfaces"
	"idgate.io/application/services/extraction"
	server_response "idgate.io/infrastructure/serverResponse"
)

func ExtractMRZ(ctx *interfaces.ApplicationContext[dto.ExtractMRZDTO]) {
	docImage, ok := decodeBoundedImage(ctx.Ctx, ctx.Body.DocumentImage, "document image")
	if !ok {
		return
	}
	defer docImage.Close()

	result, err := extractionService.ExtractMRZ(docImage)
	if err != nil {
		if errors.Is(err, extraction.ErrNoMRZFound) {
			apperrors.NotFoundError(ctx.Ctx, "❌ No machine-readable zone could be extracted from this document")
			return
		}
		apperrors.ExternalDependencyError(ctx.Ctx, "tesseract", "500", err)
		return
	}

	server_response.Responder.Respond(ctx.Ctx, http.StatusOK, "✅ MRZ extracted", result, nil)
}
