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

	"github.com/gin-gonic/gin"
	model2 "github.com/paymatch/paymatch/api/model"
)

func (a Api) CreatePendingRequest(c *gin.Context) {
	var newRequest model2.CreatePendingRequest
	if err := c.ShouldBindJSON(&newRequest); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	if err := newRequest.ValidateCreatePendingRequest(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	resp, err := a.paymatch.CreatePendingRequest(c.Request.Context(), newRequest.ToPendingRequest())
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (a Api) GetPendingRequest(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	resp, err := a.paymatch.GetPendingRequest(c.Request.Context(), id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (a Api) GetMatchRecords(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	resp, err := a.paymatch.GetMatchRecords(c.Request.Context(), id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// VerifyPendingRequest settles a request an operator confirmed without an SMS.
func (a Api) VerifyPendingRequest(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	action, ok := bindOperatorAction(c)
	if !ok {
		return
	}

	resp, err := a.paymatch.VerifyRequest(c.Request.Context(), id, action.Actor, action.Note)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}
