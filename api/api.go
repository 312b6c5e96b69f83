/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/paymatch/paymatch"
	"github.com/paymatch/paymatch/api/middleware"
	"github.com/paymatch/paymatch/config"
	"github.com/paymatch/paymatch/internal/apierror"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type Api struct {
	paymatch *paymatch.Paymatch
	router   *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router

	router.POST(middleware.DeviceWebhookPath, a.ReceiveSMS)

	router.GET("/messages/review", a.GetReviewQueue)
	router.GET("/messages/:id", a.GetMessage)
	router.GET("/messages/:id/candidates", a.GetCandidates)
	router.POST("/messages/:id/match", a.MatchMessage)
	router.POST("/messages/:id/dismiss", a.DismissMessage)

	router.POST("/requests", a.CreatePendingRequest)
	router.GET("/requests/:id", a.GetPendingRequest)
	router.GET("/requests/:id/matches", a.GetMatchRecords)
	router.POST("/requests/:id/verify", a.VerifyPendingRequest)

	router.POST("/devices", a.RegisterDevice)
	router.GET("/devices/:id", a.GetDevice)
	router.POST("/devices/:id/revoke", a.RevokeDevice)

	router.GET("/audit/:id", a.GetAuditTrail)
	return a.router
}

func NewAPI(p *paymatch.Paymatch) *Api {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil
	}
	r := gin.Default()
	r.Use(otelgin.Middleware(conf.ProjectName))
	r.Use(middleware.RateLimitMiddleware(conf))
	r.Use(middleware.Authenticate())

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, "server running...")
	})

	return &Api{paymatch: p, router: r}
}

// respondWithError writes err with the HTTP status its error code maps to.
func respondWithError(c *gin.Context, err error) {
	status := apierror.MapErrorToHTTPStatus(err)
	var apiErr apierror.APIError
	if errors.As(err, &apiErr) {
		c.JSON(status, gin.H{"error": apiErr.Message, "code": apiErr.Code})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func pathID(c *gin.Context) (string, bool) {
	id, passed := c.Params.Get("id")
	if !passed || id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return "", false
	}
	return id, true
}
