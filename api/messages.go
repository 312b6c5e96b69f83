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
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	model2 "github.com/paymatch/paymatch/api/model"
	"github.com/paymatch/paymatch/api/middleware"
)

// ReceiveSMS admits a message from a forwarding device. The device proves
// itself with its credential as a bearer token.
func (a Api) ReceiveSMS(c *gin.Context) {
	credential := middleware.DeviceCredential(c)
	if credential == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required. Use Authorization: Bearer <device credential>"})
		return
	}

	var webhook model2.SMSWebhook
	if err := c.ShouldBindJSON(&webhook); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	if err := webhook.ValidateSMSWebhook(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	result, err := a.paymatch.IngestMessage(c.Request.Context(), webhook.ToSubmission(credential))
	if err != nil {
		respondWithError(c, err)
		return
	}

	status := http.StatusCreated
	if result.Duplicate {
		status = http.StatusOK
	}
	c.JSON(status, model2.NewSMSWebhookResponse(result))
}

func (a Api) GetMessage(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	resp, err := a.paymatch.GetMessage(c.Request.Context(), id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (a Api) GetReviewQueue(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a number"})
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "offset must be a number"})
		return
	}

	resp, err := a.paymatch.ReviewQueue(c.Request.Context(), c.Query("merchant_id"), limit, offset)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetCandidates ranks the eligible requests for a message as of now.
func (a Api) GetCandidates(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	resp, err := a.paymatch.Candidates(c.Request.Context(), id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (a Api) MatchMessage(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var match model2.ManualMatch
	if err := c.ShouldBindJSON(&match); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}
	if err := match.ValidateManualMatch(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	resp, err := a.paymatch.ManualMatch(c.Request.Context(), id, match.RequestID, match.Actor, match.Note)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (a Api) DismissMessage(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	action, ok := bindOperatorAction(c)
	if !ok {
		return
	}

	resp, err := a.paymatch.Dismiss(c.Request.Context(), id, action.Actor, action.Note)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// bindOperatorAction reads an optional actor/note body.
func bindOperatorAction(c *gin.Context) (model2.OperatorAction, bool) {
	var action model2.OperatorAction
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&action); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
			return action, false
		}
	}
	if err := action.ValidateOperatorAction(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return action, false
	}
	return action, true
}

func (a Api) GetAuditTrail(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	resp, err := a.paymatch.GetAuditTrail(c.Request.Context(), id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
