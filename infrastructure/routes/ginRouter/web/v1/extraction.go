package routev1

import (
	apperrors "idgate.io/application/appErrors"
	"idgate.io/application/controller"
	"idgate.io/application/controller/dto"
	"idgate.io/application/interfaces"
	"idgate.io/application/utils"
	"idgate.io/infrastructure/validator"
	"github.com/gin-gonic/gin"
)

func ExtractionRouter(router *gin.RouterGroup) {
	extractionRouter := router.Group("/extraction")
	{
		extractionRouter.POST("/mrz", func(ctx *gin.Context) {
			var body dto.ExtractMRZDTO
			if err := ctx.ShouldBindJSON(&body); err != nil {
				apperrors.ErrorProcessingPayload(ctx)
				return
			}
			if errs := validator.ValidatorInstance.ValidateStruct(body); errs != nil {
				apperrors.ValidationFailedError(ctx, errs)
				return
			}
			controller.ExtractMRZ(&interfaces.ApplicationContext[dto.ExtractMRZDTO]{
				Ctx:       ctx,
				Body:      &body,
				Header:    ctx.Request.Header,
				RequestID: utils.GenerateUULDString(),
			})
		})
	}
}
