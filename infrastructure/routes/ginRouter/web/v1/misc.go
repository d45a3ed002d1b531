package routev1

import (
	"idgate.io/application/controller"
	"idgate.io/application/interfaces"
	"github.com/gin-gonic/gin"
)

func MiscRouter(router *gin.RouterGroup) {
	router.GET("/health", func(ctx *gin.Context) {
		controller.Health(&interfaces.ApplicationContext[any]{
			Ctx:    ctx,
			Header: ctx.Request.Header,
		})
	})
}
